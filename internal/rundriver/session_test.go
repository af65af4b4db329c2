package rundriver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/midtask/internal/stimulus"
	"github.com/lox/midtask/internal/stimulustest"
)

func TestMakeRunDirNamesAndCreatesTheDirectory(t *testing.T) {
	dataDir := t.TempDir()
	info := SessionInfo{SubjectID: "XXX000", RunN: "1"}
	sessionTime := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)

	dir, err := MakeRunDir(dataDir, info, sessionTime)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "XXX000_run1_20260731T093000"), dir)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestSequencePathPracticeVsNumberedRun(t *testing.T) {
	assert.Equal(t, filepath.Join("sequences", "practice.csv"), SequencePath("sequences", "practice"))
	assert.Equal(t, filepath.Join("sequences", "run_1.csv"), SequencePath("sequences", "1"))
	assert.Equal(t, filepath.Join("sequences", "run_2.csv"), SequencePath("sequences", "2"))
}

func TestKeyModeSelectsFMRIOrBehavioral(t *testing.T) {
	assert.Equal(t, stimulus.FMRIKeys, SessionInfo{FMRI: true}.KeyMode())
	assert.Equal(t, stimulus.BehavioralKeys, SessionInfo{FMRI: false}.KeyMode())
}

func TestRunInstructionsPagesForwardAndDismissesOnStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("page one\npage two\n"), 0o644))

	clock := quartz.NewMock(t)
	renderer := stimulustest.NewRenderer(clock)
	input := stimulustest.NewInput(clock)

	// forward, forward (past the last page into the finish screen), start;
	// all pressed after RunInstructions' initial Clear.
	input.Schedule(stimulus.Keys(stimulus.BehavioralKeys).Forward, 10*time.Millisecond)
	input.Schedule(stimulus.Keys(stimulus.BehavioralKeys).Forward, 20*time.Millisecond)
	input.Schedule(stimulus.Keys(stimulus.BehavioralKeys).Start, 40*time.Millisecond)

	err := RunInstructions(renderer, input, stimulus.BehavioralKeys, path)
	require.NoError(t, err)

	var kinds []string
	for _, c := range renderer.Calls {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, "instructions")
	assert.Contains(t, kinds, "instructions-finish")
}

func TestRunInstructionsEndKeyAbortsImmediately(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("only page\n"), 0o644))

	clock := quartz.NewMock(t)
	renderer := stimulustest.NewRenderer(clock)
	input := stimulustest.NewInput(clock)
	input.Schedule(stimulus.Keys(stimulus.FMRIKeys).End, 10*time.Millisecond)

	err := RunInstructions(renderer, input, stimulus.FMRIKeys, path)
	assert.ErrorIs(t, err, ErrInstructionsQuit)
}

func TestRunInstructionsEmptyFileIsANoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	clock := quartz.NewMock(t)
	renderer := stimulustest.NewRenderer(clock)
	input := stimulustest.NewInput(clock)

	err := RunInstructions(renderer, input, stimulus.BehavioralKeys, path)
	require.NoError(t, err)
	assert.Empty(t, renderer.Calls)
}
