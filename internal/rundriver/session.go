// Package rundriver implements the Run Driver (§4.G/component J): the
// top-level orchestration that turns a subject id, run number, and a set
// of capability handles into a completed run — output directory, manifest,
// sequence load, staircase pool, scanner gating, the trial loop, and the
// optional instruction pager.
package rundriver

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/midtask/internal/stimulus"
)

// ErrInstructionsQuit is returned when the end key is pressed while paging
// through instructions, mirroring the original's core.quit() shortcut.
var ErrInstructionsQuit = errors.New("rundriver: quit requested during instructions")

// SessionInfo mirrors the four fields the original task collected via a
// startup dialog (subject id, fMRI mode, run number, show-instructions);
// the Run Driver's CLI flags populate this directly instead of presenting
// a dialog (§1 Non-goals: no GUI).
type SessionInfo struct {
	SubjectID        string
	FMRI             bool
	RunN             string // "1" | "2" | "practice"
	ShowInstructions bool
}

// KeyMode returns the keyboard layout this session uses for navigation.
func (s SessionInfo) KeyMode() stimulus.KeyMode {
	if s.FMRI {
		return stimulus.FMRIKeys
	}
	return stimulus.BehavioralKeys
}

// MakeRunDir creates and returns data/{subject_id}_run{n}_{YYYYMMDDTHHMMSS}/
// under dataDir, matching the original task's naming exactly.
func MakeRunDir(dataDir string, info SessionInfo, sessionTime time.Time) (string, error) {
	ts := sessionTime.Format("20060102T150405")
	dir := filepath.Join(dataDir, fmt.Sprintf("%s_run%s_%s", info.SubjectID, info.RunN, ts))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("rundriver: create run dir %s: %w", dir, err)
	}
	return dir, nil
}

// SequencePath returns the sequence file path for runN under sequencesDir:
// sequences/practice.csv for the practice run, sequences/run_{n}.csv
// otherwise.
func SequencePath(sequencesDir, runN string) string {
	if runN == "practice" {
		return filepath.Join(sequencesDir, "practice.csv")
	}
	return filepath.Join(sequencesDir, fmt.Sprintf("run_%s.csv", runN))
}

// loadPages reads textPath and returns one page per non-empty line,
// matching the original's line-per-page instruction format.
func loadPages(textPath string) ([]string, error) {
	f, err := os.Open(textPath)
	if err != nil {
		return nil, fmt.Errorf("rundriver: open instructions %s: %w", textPath, err)
	}
	defer f.Close()

	var pages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			pages = append(pages, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rundriver: read instructions %s: %w", textPath, err)
	}
	return pages, nil
}

// RunInstructions pages through textPath one non-empty line at a time,
// using mode's forward/back/end keys to navigate and start to dismiss the
// final page. It returns ErrInstructionsQuit if the end key is pressed
// mid-pager (the original's core.quit() shortcut).
//
// Unlike the scanner-gated trial phases, the pager has no timing
// requirement: each iteration redraws the current page, flips (pacing the
// loop to the renderer's frame rate instead of busy-spinning), and polls
// for navigation keys.
func RunInstructions(renderer stimulus.Renderer, input stimulus.InputSource, mode stimulus.KeyMode, textPath string) error {
	pages, err := loadPages(textPath)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return nil
	}

	keys := stimulus.Keys(mode)
	input.Clear()
	pageIdx := 0
	finished := false

	for {
		if finished {
			renderer.DrawInstructionsFinish()
		} else {
			renderer.DrawInstructions(pages[pageIdx], pageIdx == 0)
		}
		renderer.Flip()

		for _, ev := range input.Poll() {
			switch ev.Key {
			case keys.End:
				return ErrInstructionsQuit
			case keys.Start:
				if finished {
					return nil
				}
			case keys.Back:
				if !finished && pageIdx > 0 {
					pageIdx--
				}
			case keys.Forward:
				if finished {
					continue
				}
				pageIdx++
				if pageIdx >= len(pages) {
					finished = true
				}
			}
		}
	}
}
