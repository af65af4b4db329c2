package studyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	params, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), params)
}

func TestLoadOverlaysPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "study.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
study_params {
  jitter_max_s = 0.08
}
`), 0o644))

	params, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.08, params.JitterMax)
	assert.Equal(t, Default().TRSeconds, params.TRSeconds)
}

func TestValidateRejectsBadBounds(t *testing.T) {
	p := Default()
	p.MaxTargetDur = p.MinTargetDur
	assert.Error(t, p.Validate())
}

func TestMaxIntensityAndInitialOffset(t *testing.T) {
	p := Default()
	assert.InDelta(t, 0.370, p.MaxIntensity(), 1e-9)
	assert.InDelta(t, 0.135, p.InitialIntensityOffset(), 1e-9)
}
