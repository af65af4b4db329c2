// Package recorder implements the two append-only CSV output streams and
// the JSON manifest sidecar (§4.F, §6).
package recorder

// TrialRecord is one row of the behavioral CSV, field order per §3/§6.
type TrialRecord struct {
	TrialN           int
	TrialType        int
	CueKind          string
	RewardDollars    int
	Difficulty       string
	AccuracyTarget   int
	StaircaseName    string
	StaircaseTrialN  int
	StaircaseStepSD  float64
	IntensityS       float64
	TimeOnsetS       float64
	JitterMs         int
	TargetDurMs      int
	EarlyPress       bool
	Hit              bool
	RTMs             float64
	HasRT            bool
	RewardOutcome    string
	TotalEarned      int
	TimeTrialEndS    float64
	TrialDurMs       int
	TimeSchedEndS    float64
	TimingDriftMs    float64
	TotalTRs         int
	SubjectID        string
	RunN             string
	PulseCtAtOnset   uint64
}

// PhaseRecord is one row of the scan-log CSV, field order per §3/§6.
type PhaseRecord struct {
	TrialN          int
	Phase           string
	TRN             int
	PhaseGlobalTime float64
	PhaseTrialTime  float64
	PulseCt         uint64
}

// Phase name constants, matching §4.D's phase set.
const (
	PhaseCue                  = "cue"
	PhaseFixation              = "fixation"
	PhaseResponse              = "response"
	PhaseOutcome               = "outcome"
	PhasePostOutcomeFixation   = "post-outcome-fixation"
)
