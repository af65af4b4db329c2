// Package studyconfig loads the static study-parameter block that backs
// the manifest's study_params and lets a site override task timing without
// recompiling.
package studyconfig

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Params holds every timing/bound constant THE CORE needs. All durations
// are seconds; target-duration bounds are seconds above zero, not above
// the floor (MinTargetDur itself is the floor).
type Params struct {
	TRSeconds        float64 `hcl:"tr_seconds,optional" json:"tr_seconds"`
	PulseRate        int     `hcl:"pulse_rate,optional" json:"pulse_rate"`
	CueDur           float64 `hcl:"cue_dur_s,optional" json:"cue_dur_s"`
	FixationDur      float64 `hcl:"fixation_dur_s,optional" json:"fixation_dur_s"`
	ResponseDur      float64 `hcl:"response_dur_s,optional" json:"response_dur_s"`
	OutcomeDur       float64 `hcl:"outcome_dur_s,optional" json:"outcome_dur_s"`
	ITIDur           float64 `hcl:"iti_dur_s,optional" json:"iti_dur_s"`
	MinTargetDur     float64 `hcl:"min_target_dur_s,optional" json:"min_target_dur_s"`
	MaxTargetDur     float64 `hcl:"max_target_dur_s,optional" json:"max_target_dur_s"`
	InitialTargetDur float64 `hcl:"initial_target_dur_s,optional" json:"initial_target_dur_s"`
	InitialStairSD   float64 `hcl:"initial_stair_sd_s,optional" json:"initial_stair_sd_s"`
	JitterMax        float64 `hcl:"jitter_max_s,optional" json:"jitter_max_s"`
	InitialFixDur    float64 `hcl:"initial_fix_dur_s,optional" json:"initial_fix_dur_s"`
	ClosingFixDur    float64 `hcl:"closing_fix_dur_s,optional" json:"closing_fix_dur_s"`
	AccuracySet      []int   `json:"accuracy_set"`
}

// root is the top-level HCL block wrapper: `study_params { ... }`.
type root struct {
	Params Params `hcl:"study_params,block"`
}

// Default returns the built-in study parameters, matching the original
// task's constants (§ Glossary / §4.D).
func Default() Params {
	return Params{
		TRSeconds:        2.0,
		PulseRate:        46,
		CueDur:           2.0,
		FixationDur:      2.0,
		ResponseDur:      2.0,
		OutcomeDur:       2.0,
		ITIDur:           2.0,
		MinTargetDur:     0.130,
		MaxTargetDur:     0.500,
		InitialTargetDur: 0.265,
		InitialStairSD:   0.067,
		JitterMax:        0.05,
		InitialFixDur:    12.0,
		ClosingFixDur:    8.0,
		AccuracySet:      []int{80, 50, 20},
	}
}

// Load reads an optional HCL file at path and overlays it onto Default().
// A missing file is not an error; it simply yields the defaults.
func Load(path string) (Params, error) {
	params := Default()
	if path == "" {
		return params, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return params, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Params{}, fmt.Errorf("studyconfig: parse %s: %s", path, diags.Error())
	}

	var r root
	// Seed with defaults so a partial file only overrides the fields it sets.
	r.Params = params
	if diags := gohcl.DecodeBody(file.Body, nil, &r); diags.HasErrors() {
		return Params{}, fmt.Errorf("studyconfig: decode %s: %s", path, diags.Error())
	}
	return r.Params, nil
}

// Validate checks internal consistency of the parameters.
func (p Params) Validate() error {
	if p.TRSeconds <= 0 {
		return fmt.Errorf("studyconfig: tr_seconds must be positive")
	}
	if p.PulseRate <= 0 {
		return fmt.Errorf("studyconfig: pulse_rate must be positive")
	}
	if p.MaxTargetDur <= p.MinTargetDur {
		return fmt.Errorf("studyconfig: max_target_dur_s must exceed min_target_dur_s")
	}
	if p.InitialTargetDur < p.MinTargetDur || p.InitialTargetDur > p.MaxTargetDur {
		return fmt.Errorf("studyconfig: initial_target_dur_s must lie within [min_target_dur_s, max_target_dur_s]")
	}
	if p.JitterMax < 0 {
		return fmt.Errorf("studyconfig: jitter_max_s must be non-negative")
	}
	return nil
}

// MaxIntensity returns the upper bound on staircase intensity: seconds of
// target display time above MinTargetDur.
func (p Params) MaxIntensity() float64 { return p.MaxTargetDur - p.MinTargetDur }

// InitialIntensityOffset returns the staircase prior mean in intensity
// units (seconds above the floor).
func (p Params) InitialIntensityOffset() float64 { return p.InitialTargetDur - p.MinTargetDur }
