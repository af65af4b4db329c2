package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lox/midtask/internal/studyconfig"
)

// Manifest is the single JSON object written once at run start (§6).
type Manifest struct {
	Version          string             `json:"version"`
	SubjectID        string             `json:"subject_id"`
	RunN             string             `json:"run_n"`
	FMRI             bool               `json:"fmri"`
	ShowInstructions bool               `json:"show_instructions"`
	SessionTime      string             `json:"session_time"`
	FrameRateHz      float64            `json:"frame_rate_hz"`
	NTrials          int                `json:"n_trials"`
	StudyParams      studyconfig.Params `json:"study_params"`
}

// WriteManifest serializes m to path as pretty-printed JSON, writing it
// atomically so a reader polling the run directory never observes a
// truncated manifest (§6: the manifest is written once, at run start).
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal manifest: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("recorder: write manifest %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in filename's directory and
// renames it into place, so a process polling the run directory never
// observes a half-written manifest.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmpFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
