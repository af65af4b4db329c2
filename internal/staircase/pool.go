package staircase

import "fmt"

// Level identifies one of the three accuracy targets the pool tracks.
type Level int

const (
	High   Level = 80 // target_accuracy 80, pThreshold 0.80
	Medium Level = 50 // target_accuracy 50, pThreshold 0.50
	Low    Level = 20 // target_accuracy 20, pThreshold 0.20
)

// Name returns the staircase name for this level, as used in the trial
// record's staircase_name column.
func (l Level) Name() string {
	switch l {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

var levels = [...]Level{High, Medium, Low}

// Pool holds one independent Staircase per accuracy Level. Between
// NextIntensity and AddResponse for a given level, no other pool operation
// observes or mutates that level's state: callers must sample and score
// each level serially, which the single-threaded trial loop guarantees.
type Pool struct {
	stairs map[Level]*Staircase
}

const (
	// defaultGamma is the near-zero guess rate shared by all staircases.
	defaultGamma = 0.01
)

// Params supplies the shared prior and bounds used to seed every
// staircase in the pool (only the per-level trial budget differs).
type Params struct {
	StartValOffset float64 // initial threshold estimate, seconds above the floor
	StartValSD     float64
	MinVal         float64
	MaxVal         float64
}

// NewPool constructs a Pool with one Staircase per Level, sized by
// counts[level] = number of trial-plan rows at that accuracy level.
func NewPool(params Params, counts map[Level]int) *Pool {
	p := &Pool{stairs: make(map[Level]*Staircase, len(levels))}
	for _, lvl := range levels {
		p.stairs[lvl] = New(Config{
			Name:       lvl.Name(),
			StartVal:   params.StartValOffset,
			StartValSD: params.StartValSD,
			PThreshold: float64(lvl) / 100,
			Gamma:      defaultGamma,
			NTrials:    counts[lvl],
			MinVal:     params.MinVal,
			MaxVal:     params.MaxVal,
		})
	}
	return p
}

// Get returns the Staircase for lvl, or an error if lvl is not one of the
// three configured accuracy levels.
func (p *Pool) Get(lvl Level) (*Staircase, error) {
	s, ok := p.stairs[lvl]
	if !ok {
		return nil, fmt.Errorf("staircase: unknown accuracy level %d", lvl)
	}
	return s, nil
}
