package stimulus

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/coder/quartz"
)

// terminalStyles mirrors the teacher's DisplayStyles construction: a small
// fixed palette reused across every drawn element.
type terminalStyles struct {
	Gain     lipgloss.Style
	Loss     lipgloss.Style
	Neutral  lipgloss.Style
	Target   lipgloss.Style
	Feedback lipgloss.Style
}

func newTerminalStyles() terminalStyles {
	return terminalStyles{
		Gain:     lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		Loss:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Neutral:  lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Target:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		Feedback: lipgloss.NewStyle().Bold(true),
	}
}

// Terminal is a non-GUI Renderer stub: it prints one styled line per draw
// call and treats Flip as a vsync wait paced by a measured frame rate. It
// exists for headless operation and is not part of THE CORE's contract —
// the real rendering surface is an external capability (§1).
type Terminal struct {
	out        io.Writer
	styles     terminalStyles
	clock      quartz.Clock
	frameEvery time.Duration
	onFlip     []func()
}

// NewTerminal constructs a Terminal renderer writing to out, pacing Flip
// at frameRateHz (falls back to 60Hz if non-positive, per §4.G).
func NewTerminal(out io.Writer, frameRateHz float64, clock quartz.Clock) *Terminal {
	if frameRateHz <= 0 {
		frameRateHz = 60
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Terminal{
		out:        out,
		styles:     newTerminalStyles(),
		clock:      clock,
		frameEvery: time.Duration(float64(time.Second) / frameRateHz),
	}
}

var _ Renderer = (*Terminal)(nil)

func (t *Terminal) DrawCue(cueLabel, accuracyCaption string, edgeCount int) {
	style := t.styles.Neutral
	switch cueLabel {
	case "+$5":
		style = t.styles.Gain
	case "-$5":
		style = t.styles.Loss
	}
	fmt.Fprintf(t.out, "%s  (%s, %d-gon)\n", style.Render(cueLabel), accuracyCaption, edgeCount)
}

func (t *Terminal) DrawFixation() {
	fmt.Fprintln(t.out, t.styles.Neutral.Render("+"))
}

func (t *Terminal) DrawTarget() {
	fmt.Fprintln(t.out, t.styles.Target.Render("▲"))
}

func (t *Terminal) DrawFeedback(hit bool, cueLabel, rewardOutcome string) {
	msg := "You missed!"
	style := t.styles.Loss
	if hit {
		msg = "You won!"
		style = t.styles.Gain
	}
	fmt.Fprintf(t.out, "%s  %s\n", style.Render(msg), rewardOutcome)
}

func (t *Terminal) DrawInstructions(text string, isFirstPage bool) {
	prompt := "[forward] next   [end] quit"
	if !isFirstPage {
		prompt = "[back] prev   [forward] next   [end] quit"
	}
	fmt.Fprintf(t.out, "%s\n%s\n", text, t.styles.Neutral.Render(prompt))
}

func (t *Terminal) DrawInstructionsFinish() {
	fmt.Fprintln(t.out, t.styles.Gain.Render("Ready. [start] to begin."))
}

func (t *Terminal) OnFlip(fn func()) {
	t.onFlip = append(t.onFlip, fn)
}

func (t *Terminal) Flip() {
	callbacks := t.onFlip
	t.onFlip = nil
	for _, fn := range callbacks {
		fn()
	}
	t.clock.Sleep(t.frameEvery)
}

// NullInput is an InputSource that never produces a key event. It is the
// default for headless/emulated operation where no real input device is
// wired up; a GUI or hardware button box is expected to satisfy
// InputSource in a real deployment (§1: input device is an external
// capability).
type NullInput struct{}

var _ InputSource = NullInput{}

func (NullInput) Poll() []KeyEvent { return nil }
func (NullInput) Clear()           {}
func (NullInput) ResetClock()      {}
