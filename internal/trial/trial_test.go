package trial

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/midtask/internal/recorder"
	"github.com/lox/midtask/internal/scanner"
	"github.com/lox/midtask/internal/sequence"
	"github.com/lox/midtask/internal/staircase"
	"github.com/lox/midtask/internal/stimulustest"
	"github.com/lox/midtask/internal/studyconfig"
)

// fakeBackend never makes WaitForTR/Drain block: every Read() jumps well
// past whatever target the Counter is waiting for, so TR-gating is a no-op
// and the trial's own clock (driven entirely by Renderer.Flip) is what
// advances simulated time.
type fakeBackend struct{ n uint64 }

func (f *fakeBackend) Start()           {}
func (f *fakeBackend) PulseRate() uint32 { return 46 }
func (f *fakeBackend) Read() uint64 {
	f.n += 1000
	return f.n
}

func newHarness(t *testing.T) (Deps, *quartz.Mock, *stimulustest.Input, *stimulustest.Renderer) {
	t.Helper()
	clock := quartz.NewMock(t)
	renderer := stimulustest.NewRenderer(clock)
	input := stimulustest.NewInput(clock)
	counter := scanner.NewCounter(&fakeBackend{}, clock)

	params := studyconfig.Default()
	// Zero jitter makes target onset coincide with the start of the response
	// phase, so scenario tests can schedule key presses at absolute offsets
	// instead of reverse-engineering the RNG's jitter draw.
	params.JitterMax = 0

	deps := Deps{
		Renderer: renderer,
		Input:    input,
		Counter:  counter,
		Clock:    clock,
		Params:   params,
	}
	return deps, clock, input, renderer
}

// rspOffset returns the delay from trial start to dur after the response
// phase (and, with zero jitter, target onset) begins. Each phase loop flips
// until its duration has elapsed, so CUE and FIX each last a whole number of
// renderer frames and can run slightly past their nominal durations.
func rspOffset(deps Deps, dur time.Duration) time.Duration {
	frame := deps.Renderer.(*stimulustest.Renderer).FrameEvery
	return phaseLen(secs(deps.Params.CueDur), frame) + phaseLen(secs(deps.Params.FixationDur), frame) + dur
}

// phaseLen rounds d up to a whole number of frames.
func phaseLen(d, frame time.Duration) time.Duration {
	return (d + frame - 1) / frame * frame
}

func newRequest(deps Deps, clock *quartz.Mock, row sequence.Row) Request {
	sc := staircase.New(staircase.Config{
		Name: "high", StartVal: 0.135, StartValSD: 0.067,
		PThreshold: 0.80, Gamma: 0.01, NTrials: 100,
		MinVal: 0, MaxVal: 0.370,
	})
	return Request{
		Row:         row,
		TrialN:      1,
		Staircase:   sc,
		Intensity:   sc.NextIntensity(),
		SubjectID:   "XXX000",
		RunN:        "1",
		GlobalEpoch: clock.Now(),
		RNG:         rand.New(rand.NewPCG(1, 2)),
	}
}

func TestRunTrial_Hit(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 1}
	req := newRequest(deps, clock, row)

	// Respond well inside the target window: with JitterMax zeroed in the
	// harness, target onset is the start of the response phase, and the
	// target stays up for at least MinTargetDur (0.130s).
	input.Schedule("3", rspOffset(deps, 40*time.Millisecond))

	result, err := RunTrial(deps, req)
	require.NoError(t, err)
	assert.True(t, result.Record.Hit)
	assert.True(t, result.Record.HasRT)
	assert.InDelta(t, 40.0, result.Record.RTMs, 20.0)
	assert.False(t, result.Record.EarlyPress)
	assert.Equal(t, "+$5", result.Record.RewardOutcome)
	assert.Equal(t, 5, result.TotalEarned)
	assert.Equal(t, 1, result.Record.TrialType)
}

func TestRunTrial_Miss(t *testing.T) {
	deps, clock, _, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 1}
	req := newRequest(deps, clock, row)

	result, err := RunTrial(deps, req)
	require.NoError(t, err)
	assert.False(t, result.Record.Hit)
	assert.False(t, result.Record.HasRT)
	assert.Equal(t, "$0", result.Record.RewardOutcome)
	assert.Equal(t, 0, result.TotalEarned)
}

func TestRunTrial_LatePressRecordsRTButNotHit(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Loss, TargetAccuracy: 50, NITITRs: 1}
	req := newRequest(deps, clock, row)

	// Press well after the target has been removed (target duration tops
	// out at MaxTargetDur, i.e. 500ms), but still inside the 2s response
	// window.
	input.Schedule("5", rspOffset(deps, 900*time.Millisecond))

	result, err := RunTrial(deps, req)
	require.NoError(t, err)
	assert.False(t, result.Record.Hit)
	assert.True(t, result.Record.HasRT)
	assert.InDelta(t, 900.0, result.Record.RTMs, 20.0)
	// Loss + miss => lose $5.
	assert.Equal(t, "-$5", result.Record.RewardOutcome)
}

func TestRunTrial_EarlyPressInFixationForcesMiss(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 1}
	req := newRequest(deps, clock, row)

	// The fixation phase starts right after CUE (2s in); press partway
	// through it.
	input.Schedule("2", secs(deps.Params.CueDur)+500*time.Millisecond)
	// Also schedule a well-timed "response" so that, absent the early
	// press rule, this trial would otherwise score a hit.
	input.Schedule("2", rspOffset(deps, 40*time.Millisecond))

	result, err := RunTrial(deps, req)
	require.NoError(t, err)
	assert.True(t, result.Record.EarlyPress)
	assert.False(t, result.Record.Hit)
}

func TestRunTrial_NeutralCueNeverPaysOut(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Neutral, TargetAccuracy: 50, NITITRs: 1}
	req := newRequest(deps, clock, row)
	input.Schedule("1", rspOffset(deps, 40*time.Millisecond))

	result, err := RunTrial(deps, req)
	require.NoError(t, err)
	assert.Equal(t, "$0", result.Record.RewardOutcome)
	assert.Equal(t, 0, result.TotalEarned)
	assert.Equal(t, 0, result.Record.RewardDollars)
}

func TestRunTrial_DriftCorrectionShortensITI(t *testing.T) {
	deps, clock, _, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 1}
	req := newRequest(deps, clock, row)
	req.NominalTime = 0

	result, err := RunTrial(deps, req)
	require.NoError(t, err)

	// With no injected delay, actual time tracks nominal time closely, so
	// the scheduled ITI length should be close to the configured ITIDur
	// and drift should be small.
	assert.InDelta(t, 0, result.Record.TimingDriftMs, 100)
	assert.InDelta(t, deps.Params.CueDur+deps.Params.FixationDur+deps.Params.ResponseDur+deps.Params.OutcomeDur+deps.Params.ITIDur, result.NominalTime, 1e-9)
}

func TestRunTrial_QuitDuringCueAbortsSession(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 1}
	req := newRequest(deps, clock, row)
	input.Schedule("escape", 0)

	_, err := RunTrial(deps, req)
	assert.ErrorIs(t, err, ErrSessionAborted)
}

func TestRunTrial_StaircaseAdvancesAndRecordsStepSD(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 1}
	req := newRequest(deps, clock, row)
	input.Schedule("9", rspOffset(deps, 40*time.Millisecond))

	result, err := RunTrial(deps, req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Record.StaircaseTrialN)
	assert.Equal(t, "high", result.Record.StaircaseName)
	assert.Greater(t, result.Record.StaircaseStepSD, 0.0)
}

func TestRunTrial_PhaseRecordsCoverAllPhasesInOrder(t *testing.T) {
	deps, clock, input, _ := newHarness(t)
	row := sequence.Row{CueKind: sequence.Gain, TargetAccuracy: 80, NITITRs: 2}
	req := newRequest(deps, clock, row)
	input.Schedule("1", rspOffset(deps, 40*time.Millisecond))

	result, err := RunTrial(deps, req)
	require.NoError(t, err)

	require.Len(t, result.Phases, 6) // cue, fixation, response, outcome, iti x2
	wantOrder := []string{
		recorder.PhaseCue, recorder.PhaseFixation, recorder.PhaseResponse,
		recorder.PhaseOutcome, recorder.PhasePostOutcomeFixation, recorder.PhasePostOutcomeFixation,
	}
	for i, ph := range result.Phases {
		assert.Equal(t, wantOrder[i], ph.Phase)
		assert.Equal(t, i+1, ph.TRN)
	}
}
