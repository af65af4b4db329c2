package rundriver

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/midtask/internal/livetable"
	"github.com/lox/midtask/internal/randutil"
	"github.com/lox/midtask/internal/recorder"
	"github.com/lox/midtask/internal/scanner"
	"github.com/lox/midtask/internal/sequence"
	"github.com/lox/midtask/internal/staircase"
	"github.com/lox/midtask/internal/statistics"
	"github.com/lox/midtask/internal/stimulus"
	"github.com/lox/midtask/internal/studyconfig"
	"github.com/lox/midtask/internal/trial"
)

// Config bundles the capability handles and paths a run needs. Renderer,
// Input, and Backend are supplied by the caller (the actual display and
// input device are external capabilities per §1); everything else is
// resolved by the Run Driver itself.
type Config struct {
	Renderer      stimulus.Renderer
	Input         stimulus.InputSource
	Backend       scanner.Backend
	Clock         quartz.Clock
	Params        studyconfig.Params
	DataDir       string
	SequencesDir  string
	TextDir       string
	Seed          int64 // 0 means derive from SubjectID (invariant 8)
	Logger        *log.Logger
	Table         *livetable.Table
}

// Summary is returned by Run once a session completes normally.
type Summary struct {
	RunDir      string
	NTrials     int
	TotalEarned int
}

// Run drives one full session: dialog fields are assumed already resolved
// into info by the caller, output directory and manifest are created,
// the sequence and staircase pool are loaded, the scanner is started, and
// the trial loop runs to completion (or returns trial.ErrSessionAborted
// for an orderly quit).
func Run(cfg Config, info SessionInfo) (Summary, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	sessionTime := time.Now()
	runDir, err := MakeRunDir(cfg.DataDir, info, sessionTime)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("run directory created", "path", runDir)

	if info.ShowInstructions {
		textPath := filepath.Join(cfg.TextDir, "instructions_MID.txt")
		if err := RunInstructions(cfg.Renderer, cfg.Input, info.KeyMode(), textPath); err != nil {
			return Summary{}, err
		}
	}

	seqPath := SequencePath(cfg.SequencesDir, info.RunN)
	rows, err := sequence.Load(seqPath)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("sequence loaded", "path", seqPath, "trials", len(rows))

	seed := cfg.Seed
	if seed == 0 {
		seed = randutil.SeedFromSubject(info.SubjectID)
	}
	rng := randutil.New(seed)

	rawCounts := sequence.CountsByAccuracy(rows)
	counts := make(map[staircase.Level]int, len(rawCounts))
	for accuracy, n := range rawCounts {
		counts[trial.AccuracyLevel(accuracy)] = n
	}

	pool := staircase.NewPool(staircase.Params{
		StartValOffset: cfg.Params.InitialIntensityOffset(),
		StartValSD:     cfg.Params.InitialStairSD,
		MinVal:         0,
		MaxVal:         cfg.Params.MaxIntensity(),
	}, counts)

	behavioralPath := filepath.Join(runDir, fmt.Sprintf("behavioral_%s_run%s.csv", info.SubjectID, info.RunN))
	scanLogPath := filepath.Join(runDir, fmt.Sprintf("scan_log_%s_run%s.csv", info.SubjectID, info.RunN))
	manifestPath := filepath.Join(runDir, "manifest.json")

	behavioral, err := recorder.NewBehavioralWriter(behavioralPath)
	if err != nil {
		return Summary{}, err
	}
	defer behavioral.Close()

	scanLog, err := recorder.NewScanLogWriter(scanLogPath)
	if err != nil {
		return Summary{}, err
	}
	defer scanLog.Close()

	if err := recorder.WriteManifest(manifestPath, recorder.Manifest{
		Version:          "1.0",
		SubjectID:        info.SubjectID,
		RunN:             info.RunN,
		FMRI:             info.FMRI,
		ShowInstructions: info.ShowInstructions,
		SessionTime:      sessionTime.Format("20060102T150405"),
		FrameRateHz:      60,
		NTrials:          len(rows),
		StudyParams:      cfg.Params,
	}); err != nil {
		return Summary{}, err
	}

	cfg.Backend.Start()
	counter := scanner.NewCounter(cfg.Backend, cfg.Clock)
	counter.WaitForStart()
	logger.Info("scan start detected")

	epoch := cfg.Clock.Now()

	if err := runHold(cfg, secs(cfg.Params.InitialFixDur)); err != nil {
		return Summary{}, err
	}

	deps := trial.Deps{
		Renderer: cfg.Renderer,
		Input:    cfg.Input,
		Counter:  counter,
		Clock:    cfg.Clock,
		Params:   cfg.Params,
	}

	// nominal_time is seeded to the actual elapsed time once the initial
	// fixation completes, not to zero, so the first trial's ITI drift
	// correction measures against reality instead of against the 12s hold.
	nominalTime := cfg.Clock.Now().Sub(epoch).Seconds()
	var totalEarned int
	var pulseCt uint64
	var summary statistics.Summary

	for i, row := range rows {
		sc, err := pool.Get(trial.AccuracyLevel(row.TargetAccuracy))
		if err != nil {
			return Summary{}, err
		}

		result, err := trial.RunTrial(deps, trial.Request{
			Row:         row,
			TrialN:      i + 1,
			Staircase:   sc,
			Intensity:   sc.NextIntensity(),
			SubjectID:   info.SubjectID,
			RunN:        info.RunN,
			NominalTime: nominalTime,
			TotalEarned: totalEarned,
			PulseCt:     pulseCt,
			GlobalEpoch: epoch,
			RNG:         rng,
		})
		if err != nil {
			return Summary{}, err
		}
		if sc.Exhausted() {
			logger.Warn("staircase trial budget exhausted; reusing last intensity",
				"staircase", sc.Name(), "staircase_trial_n", sc.TrialN())
		}

		if err := behavioral.Append(result.Record); err != nil {
			return Summary{}, fmt.Errorf("rundriver: write behavioral row: %w", err)
		}
		for _, ph := range result.Phases {
			if err := scanLog.Append(ph); err != nil {
				return Summary{}, fmt.Errorf("rundriver: write scan-log row: %w", err)
			}
		}
		if cfg.Table != nil {
			cfg.Table.AppendTrial(result.Record)
		}
		summary.Add(statistics.TrialOutcome{
			TrialType:     result.Record.TrialType,
			Hit:           result.Record.Hit,
			HasRT:         result.Record.HasRT,
			RTMs:          result.Record.RTMs,
			RewardDollars: result.Record.RewardDollars,
		})

		nominalTime = result.NominalTime
		totalEarned = result.TotalEarned
		pulseCt = result.PulseCt
	}

	if err := runHold(cfg, secs(cfg.Params.ClosingFixDur)); err != nil {
		return Summary{}, err
	}

	if err := summary.Validate(totalEarned); err != nil {
		logger.Warn("reward ledger inconsistency detected", "err", err)
	}
	logger.Info("run complete",
		"trials", len(rows),
		"total_earned", totalEarned,
		"hit_rate", fmt.Sprintf("%.2f", summary.HitRate()),
		"mean_rt_ms", fmt.Sprintf("%.0f", summary.MeanRT()),
	)
	if cfg.Table != nil {
		cfg.Table.AppendNote(fmt.Sprintf("hit rate %.0f%%, mean RT %.0fms, median RT %.0fms",
			summary.HitRate()*100, summary.MeanRT(), summary.MedianRT()))
	}

	return Summary{RunDir: runDir, NTrials: len(rows), TotalEarned: totalEarned}, nil
}

// runHold draws a plain fixation cross for dur, checking for a quit key
// each frame; used for the initial and closing holds that bracket the
// trial loop (§4.G).
func runHold(cfg Config, dur time.Duration) error {
	start := cfg.Clock.Now()
	for cfg.Clock.Now().Sub(start) < dur {
		cfg.Renderer.DrawFixation()
		cfg.Renderer.Flip()
		if stimulus.IsQuit(cfg.Input.Poll()) {
			return trial.ErrSessionAborted
		}
	}
	return nil
}

func secs(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
