// Package livetable renders the run's live per-trial console table (§7:
// "user-visible failures surface via the live console table"), mirroring
// the teacher's lipgloss-based display styling.
package livetable

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/midtask/internal/recorder"
)

// Styles holds the lipgloss styles used by Table.
type Styles struct {
	Header  lipgloss.Style
	Hit     lipgloss.Style
	Miss    lipgloss.Style
	Early   lipgloss.Style
	Neutral lipgloss.Style
}

// NewStyles constructs the default style set.
func NewStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true),
		Hit: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true),
		Miss: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),
		Early: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Neutral: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")),
	}
}

// Table writes one header line and one line per completed trial to out.
type Table struct {
	out    io.Writer
	styles Styles
	header bool
}

// New constructs a Table writing to out.
func New(out io.Writer) *Table {
	return &Table{out: out, styles: NewStyles()}
}

func (t *Table) writeHeader() {
	fmt.Fprintln(t.out, t.styles.Header.Render(
		fmt.Sprintf("%-5s %-8s %-5s %-10s %-8s %-8s %-10s", "trial", "cue", "acc", "result", "rt_ms", "earned", "staircase")))
	t.header = true
}

// AppendTrial renders one TrialRecord as a table row.
func (t *Table) AppendTrial(rec recorder.TrialRecord) {
	if !t.header {
		t.writeHeader()
	}

	result := "miss"
	style := t.styles.Miss
	if rec.EarlyPress {
		result = "early"
		style = t.styles.Early
	} else if rec.Hit {
		result = "hit"
		style = t.styles.Hit
	}
	if rec.RewardDollars == 0 {
		style = t.styles.Neutral
	}

	rt := "-"
	if rec.HasRT {
		rt = fmt.Sprintf("%.0f", rec.RTMs)
	}

	fmt.Fprintln(t.out, style.Render(fmt.Sprintf("%-5d %-8s %-5d %-10s %-8s %-8s %-10s",
		rec.TrialN, rec.CueKind, rec.AccuracyTarget, result, rt,
		fmt.Sprintf("$%d", rec.TotalEarned), fmt.Sprintf("%s(%d)", rec.StaircaseName, rec.StaircaseTrialN))))
}

// AppendNote writes a free-form status line (session start/end, aborts).
func (t *Table) AppendNote(note string) {
	fmt.Fprintln(t.out, t.styles.Neutral.Render(note))
}
