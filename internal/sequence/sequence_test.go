package sequence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seq.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidSequence(t *testing.T) {
	path := writeCSV(t, "cue_type,target_accuracy,n_iti\ngain,80,1\nloss,20,2\nneutral,50,1\n")

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{CueKind: Gain, TargetAccuracy: 80, NITITRs: 1}, rows[0])
	assert.Equal(t, Row{CueKind: Loss, TargetAccuracy: 20, NITITRs: 2}, rows[1])
	assert.Equal(t, Row{CueKind: Neutral, TargetAccuracy: 50, NITITRs: 1}, rows[2])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.ErrorIs(t, err, ErrMissingSequence)
}

func TestLoadMissingColumn(t *testing.T) {
	path := writeCSV(t, "cue_type,target_accuracy\ngain,80\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrMissingSequence)
}

func TestLoadInvalidCueType(t *testing.T) {
	path := writeCSV(t, "cue_type,target_accuracy,n_iti\nbogus,80,1\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrMissingSequence)
}

func TestLoadInvalidAccuracy(t *testing.T) {
	path := writeCSV(t, "cue_type,target_accuracy,n_iti\ngain,33,1\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrMissingSequence)
}

func TestCountsByAccuracy(t *testing.T) {
	rows := []Row{
		{CueKind: Gain, TargetAccuracy: 80, NITITRs: 1},
		{CueKind: Loss, TargetAccuracy: 80, NITITRs: 1},
		{CueKind: Neutral, TargetAccuracy: 20, NITITRs: 1},
	}
	counts := CountsByAccuracy(rows)
	assert.Equal(t, 2, counts[80])
	assert.Equal(t, 1, counts[20])
	assert.Equal(t, 0, counts[50])
}

func TestRewardDollarsAndLabel(t *testing.T) {
	assert.Equal(t, 5, Gain.RewardDollars())
	assert.Equal(t, "+$5", Gain.Label())
	assert.Equal(t, -5, Loss.RewardDollars())
	assert.Equal(t, "-$5", Loss.Label())
	assert.Equal(t, 0, Neutral.RewardDollars())
	assert.Equal(t, "$0", Neutral.Label())
}
