// Package trial implements the trial state machine (§4.D): one run_trial
// call drives a single MID trial through cue, fixation (anticipation),
// response, outcome, and a caller-specified number of drift-corrected ITI
// phases, scoring the response against the staircase-controlled target
// window and emitting one trial record plus one phase record per phase
// entry.
package trial

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/midtask/internal/recorder"
	"github.com/lox/midtask/internal/scanner"
	"github.com/lox/midtask/internal/sequence"
	"github.com/lox/midtask/internal/staircase"
	"github.com/lox/midtask/internal/stimulus"
	"github.com/lox/midtask/internal/studyconfig"
)

// ErrSessionAborted is returned when a quit key is observed in any phase;
// the caller should unwind cleanly without writing the in-progress trial
// record (§7).
var ErrSessionAborted = errors.New("trial: session aborted")

// ErrClockAnomaly is returned if the global clock is observed to move
// backwards between phase boundaries (§7: fatal).
var ErrClockAnomaly = errors.New("trial: clock anomaly: non-monotone global clock read")

// trialTypeMap is the (cue_kind, accuracy) -> 1..9 lookup table (§3).
var trialTypeMap = map[sequence.CueKind]map[int]int{
	sequence.Gain:    {80: 1, 50: 2, 20: 3},
	sequence.Loss:    {80: 4, 50: 5, 20: 6},
	sequence.Neutral: {80: 7, 50: 8, 20: 9},
}

var difficultyName = map[int]string{80: "high", 50: "medium", 20: "low"}

// AccuracyLevel maps a sequence row's target_accuracy to its staircase pool
// key.
func AccuracyLevel(accuracy int) staircase.Level {
	return staircase.Level(accuracy)
}

// Deps are the handles a trial borrows from the Run Driver for the
// duration of one RunTrial call (§3 Ownership).
type Deps struct {
	Renderer stimulus.Renderer
	Input    stimulus.InputSource
	Counter  *scanner.Counter
	Clock    quartz.Clock
	Params   studyconfig.Params
}

// Request is everything one trial needs beyond Deps.
type Request struct {
	Row         sequence.Row
	TrialN      int // 1-based
	Staircase   *staircase.Staircase
	Intensity   float64 // sampled above the floor, seconds
	SubjectID   string
	RunN        string
	NominalTime float64 // seconds, mutated across the run
	TotalEarned int     // dollars, mutated across the run
	PulseCt     uint64  // cumulative pulses since scan start, mutated
	GlobalEpoch time.Time
	RNG         *rand.Rand
}

// Result carries the trial's output record, its phase records, and the
// updated running state the Run Driver threads into the next trial.
type Result struct {
	Record      recorder.TrialRecord
	Phases      []recorder.PhaseRecord
	NominalTime float64
	TotalEarned int
	PulseCt     uint64
}

// phaseCtx threads the bookkeeping shared across all five phases of one
// trial.
type phaseCtx struct {
	deps        Deps
	trialN      int
	epoch       time.Time
	timeOnset   float64 // phase_global_time at CUE onset, seconds since epoch
	trWithin    int
	pulseCt     uint64
	phases      []recorder.PhaseRecord
	lastGlobal  float64
	sawGlobal   bool
}

func (c *phaseCtx) now() float64 {
	return c.deps.Clock.Now().Sub(c.epoch).Seconds()
}

func (c *phaseCtx) recordPhase(phase string, global float64) error {
	if c.sawGlobal && global < c.lastGlobal {
		return ErrClockAnomaly
	}
	c.lastGlobal = global
	c.sawGlobal = true
	c.trWithin++
	c.phases = append(c.phases, recorder.PhaseRecord{
		TrialN:          c.trialN,
		Phase:           phase,
		TRN:             c.trWithin,
		PhaseGlobalTime: global,
		PhaseTrialTime:  global - c.timeOnset,
		PulseCt:         c.pulseCt,
	})
	return nil
}

// RunTrial drives req through CUE->FIX->RSP->OUT->ITI and returns the
// completed Result. If a quit key is observed, it returns ErrSessionAborted
// and a zero Result; the caller must not write a record for this trial.
func RunTrial(deps Deps, req Request) (Result, error) {
	p := deps.Params
	ctx := &phaseCtx{deps: deps, trialN: req.TrialN, epoch: req.GlobalEpoch, pulseCt: req.PulseCt}

	cueKind := req.Row.CueKind
	accuracy := req.Row.TargetAccuracy
	trialType := trialTypeMap[cueKind][accuracy]
	difficulty := difficultyName[accuracy]
	rewardDollars := cueKind.RewardDollars()
	jitterS := req.RNG.Float64() * p.JitterMax

	nominalTime := req.NominalTime
	totalEarned := req.TotalEarned

	// ---- CUE --------------------------------------------------------
	ctx.pulseCt += uint64(deps.Counter.Drain())
	ctx.timeOnset = ctx.now()
	if err := ctx.recordPhase(recorder.PhaseCue, ctx.timeOnset); err != nil {
		return Result{}, err
	}
	accuracyCaption := fmt.Sprintf("%d%%", accuracy)
	if err := runCue(deps, cueKind.Label(), accuracyCaption, stimulus.CueEdgeCount[string(cueKind)], secs(p.CueDur)); err != nil {
		return Result{}, err
	}
	nominalTime += p.CueDur

	// ---- FIXATION (anticipation) -------------------------------------
	ctx.pulseCt += uint64(deps.Counter.WaitForTR())
	if err := ctx.recordPhase(recorder.PhaseFixation, ctx.now()); err != nil {
		return Result{}, err
	}
	earlyPress, err := runFixation(deps, secs(p.FixationDur))
	if err != nil {
		return Result{}, err
	}
	nominalTime += p.FixationDur

	// ---- RESPONSE -----------------------------------------------------
	ctx.pulseCt += uint64(deps.Counter.WaitForTR())
	if err := ctx.recordPhase(recorder.PhaseResponse, ctx.now()); err != nil {
		return Result{}, err
	}
	targetDurS := p.MinTargetDur + req.Intensity
	hit, rtMs, hasRT, rspEarly, err := runResponse(deps, jitterS, targetDurS, secs(p.ResponseDur), earlyPress)
	if err != nil {
		return Result{}, err
	}
	earlyPress = earlyPress || rspEarly

	req.Staircase.AddResponse(req.Intensity, hit)
	staircaseTrialN := req.Staircase.TrialN()
	stepSD := req.Staircase.PosteriorSD()
	nominalTime += p.ResponseDur

	// ---- OUTCOME --------------------------------------------------------
	ctx.pulseCt += uint64(deps.Counter.WaitForTR())
	if err := ctx.recordPhase(recorder.PhaseOutcome, ctx.now()); err != nil {
		return Result{}, err
	}
	rewardOutcome, newTotal := computeReward(cueKind, hit)
	totalEarned += newTotal
	if err := runOutcome(deps, cueKind.Label(), rewardOutcome, hit, secs(p.OutcomeDur)); err != nil {
		return Result{}, err
	}
	nominalTime += p.OutcomeDur

	// ---- ITI --------------------------------------------------------
	for i := 0; i < req.Row.NITITRs; i++ {
		ctx.pulseCt += uint64(deps.Counter.WaitForTR())
		itiGlobal := ctx.now()
		if err := ctx.recordPhase(recorder.PhasePostOutcomeFixation, itiGlobal); err != nil {
			return Result{}, err
		}

		fixDur := p.ITIDur - (itiGlobal - nominalTime)
		nominalTime += p.ITIDur
		if fixDur < 0 {
			fixDur = 0
		}
		if err := runITI(deps, secs(fixDur)); err != nil {
			return Result{}, err
		}
	}

	// ---- BUILD RECORD --------------------------------------------------
	timeTrialEnd := ctx.now()
	rec := recorder.TrialRecord{
		TrialN:          req.TrialN,
		TrialType:       trialType,
		CueKind:         string(cueKind),
		RewardDollars:   rewardDollars,
		Difficulty:      difficulty,
		AccuracyTarget:  accuracy,
		StaircaseName:   req.Staircase.Name(),
		StaircaseTrialN: staircaseTrialN,
		StaircaseStepSD: stepSD,
		IntensityS:      req.Intensity,
		TimeOnsetS:      ctx.timeOnset,
		JitterMs:        int(round(jitterS * 1000)),
		TargetDurMs:     int(round(targetDurS * 1000)),
		EarlyPress:      earlyPress,
		Hit:             hit,
		RTMs:            rtMs,
		HasRT:           hasRT,
		RewardOutcome:   rewardOutcome,
		TotalEarned:     totalEarned,
		TimeTrialEndS:   timeTrialEnd,
		TrialDurMs:      int(round((timeTrialEnd - ctx.timeOnset) * 1000)),
		TimeSchedEndS:   nominalTime,
		TimingDriftMs:   round((timeTrialEnd - nominalTime) * 1000),
		TotalTRs:        ctx.trWithin,
		SubjectID:       req.SubjectID,
		RunN:            req.RunN,
		PulseCtAtOnset:  req.PulseCt,
	}

	return Result{
		Record:      rec,
		Phases:      ctx.phases,
		NominalTime: nominalTime,
		TotalEarned: totalEarned,
		PulseCt:     ctx.pulseCt,
	}, nil
}

// computeReward applies the §4.D OUT reward table. It forces hit=false
// semantics are already applied by the caller (early press / late press);
// this function only maps (cue, hit) -> (label, delta).
func computeReward(cue sequence.CueKind, hit bool) (label string, delta int) {
	switch cue {
	case sequence.Gain:
		if hit {
			return "+$5", 5
		}
		return "$0", 0
	case sequence.Loss:
		if hit {
			return "$0", 0
		}
		return "-$5", -5
	default: // neutral
		return "$0", 0
	}
}

func secs(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func round(v float64) float64 {
	if v < 0 {
		return -round(-v)
	}
	return float64(int64(v + 0.5))
}

