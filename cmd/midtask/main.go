package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/midtask/internal/livetable"
	"github.com/lox/midtask/internal/rundriver"
	"github.com/lox/midtask/internal/scanner"
	"github.com/lox/midtask/internal/stimulus"
	"github.com/lox/midtask/internal/studyconfig"
)

// CLI mirrors the four fields the original task collected via a startup
// dialog (session.py: show_dialog), plus the flags needed to drive the
// Run Driver from a terminal instead of a GUI.
type CLI struct {
	Subject      string  `required:"" help:"Subject ID (e.g. XXX000)"`
	Run          string  `default:"practice" help:"Run number: 1, 2, or practice"`
	FMRI         bool    `help:"Run in fMRI mode (fMRI keyboard map; the scanner backend is chosen by --emulated)"`
	Instructions bool    `default:"true" negatable:"" help:"Show the instruction pager before the trial loop"`
	Seed         int64   `help:"Override the RNG seed (0 derives it from --subject)"`
	Config       string  `help:"Path to an optional HCL study-parameter override file"`
	DataDir      string  `default:"data" help:"Directory under which the run directory is created"`
	SequencesDir string  `default:"sequences" help:"Directory containing practice.csv / run_N.csv"`
	TextDir      string  `default:"text" help:"Directory containing instructions_MID.txt"`
	Emulated     bool    `default:"true" negatable:"" help:"Use the emulated scanner backend instead of real hardware"`
	FrameRateHz  float64 `default:"60" help:"Terminal renderer's frame pacing"`
	Verbose      bool    `short:"v" help:"Verbose logging"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli, kong.Description("MID trial engine Run Driver"))

	level := log.InfoLevel
	if cli.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})

	params := studyconfig.Default()
	if cli.Config != "" {
		loaded, err := studyconfig.Load(cli.Config)
		if err != nil {
			logger.Fatal("failed to load study config", "err", err)
		}
		params = loaded
	}
	if err := params.Validate(); err != nil {
		logger.Fatal("invalid study parameters", "err", err)
	}

	clock := quartz.NewReal()

	var backend scanner.Backend
	if cli.Emulated {
		backend = scanner.NewEmulated(clock, time.Duration(params.TRSeconds*float64(time.Second)), uint32(params.PulseRate))
	} else {
		logger.Fatal("hardware scanner backend requires a site-specific DAQ channel; wire scanner.NewHardware in a build that has one")
	}

	renderer := stimulus.NewTerminal(os.Stdout, cli.FrameRateHz, clock)
	input := stimulus.NullInput{}

	table := livetable.New(os.Stdout)

	info := rundriver.SessionInfo{
		SubjectID:        cli.Subject,
		FMRI:             cli.FMRI,
		RunN:             cli.Run,
		ShowInstructions: cli.Instructions,
	}

	summary, err := rundriver.Run(rundriver.Config{
		Renderer:     renderer,
		Input:        input,
		Backend:      backend,
		Clock:        clock,
		Params:       params,
		DataDir:      cli.DataDir,
		SequencesDir: cli.SequencesDir,
		TextDir:      cli.TextDir,
		Seed:         cli.Seed,
		Logger:       logger,
		Table:        table,
	}, info)
	if err != nil {
		logger.Error("run ended with error", "err", err)
		kctx.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "\nrun complete: %d trials, $%d earned, data in %s\n",
		summary.NTrials, summary.TotalEarned, summary.RunDir)
	kctx.Exit(0)
}
