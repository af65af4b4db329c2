// Package stimulustest provides deterministic Renderer and InputSource
// fakes for driving the trial state machine under test, mirroring the
// teacher's internal/testing package (a non-test package that exists
// purely to support other packages' tests).
package stimulustest

import (
	"time"

	"github.com/coder/quartz"

	"github.com/lox/midtask/internal/stimulus"
)

// DrawCall records one Renderer draw invocation for assertions.
type DrawCall struct {
	Kind string // "cue", "fixation", "target", "feedback", "instructions", "instructions-finish"
	Hit  bool   // only meaningful for "feedback"
}

// Renderer is a scripted Renderer: Flip advances a quartz.Mock clock by
// one synthetic frame interval and runs any OnFlip callbacks at the
// moment of the swap, exactly like the real contract.
type Renderer struct {
	Clock      *quartz.Mock
	FrameEvery time.Duration
	Calls      []DrawCall
	FlipCount  int
	onFlip     []func()
}

var _ stimulus.Renderer = (*Renderer)(nil)

// NewRenderer constructs a Renderer paced at 60Hz unless frameEvery is
// overridden by the caller via FrameEvery.
func NewRenderer(clock *quartz.Mock) *Renderer {
	return &Renderer{Clock: clock, FrameEvery: time.Second / 60}
}

func (r *Renderer) DrawCue(string, string, int) { r.Calls = append(r.Calls, DrawCall{Kind: "cue"}) }
func (r *Renderer) DrawFixation()                { r.Calls = append(r.Calls, DrawCall{Kind: "fixation"}) }
func (r *Renderer) DrawTarget()                  { r.Calls = append(r.Calls, DrawCall{Kind: "target"}) }
func (r *Renderer) DrawFeedback(hit bool, _, _ string) {
	r.Calls = append(r.Calls, DrawCall{Kind: "feedback", Hit: hit})
}

func (r *Renderer) DrawInstructions(string, bool) {
	r.Calls = append(r.Calls, DrawCall{Kind: "instructions"})
}

func (r *Renderer) DrawInstructionsFinish() {
	r.Calls = append(r.Calls, DrawCall{Kind: "instructions-finish"})
}

func (r *Renderer) OnFlip(fn func()) {
	r.onFlip = append(r.onFlip, fn)
}

func (r *Renderer) Flip() {
	r.FlipCount++
	callbacks := r.onFlip
	r.onFlip = nil
	for _, fn := range callbacks {
		fn()
	}
	if r.Clock != nil {
		r.Clock.Advance(r.FrameEvery)
	}
}

// Input is a scripted InputSource: a test schedules key events at
// absolute clock times; Poll returns (and consumes) whichever scheduled
// events have become due since the last ResetClock/Clear.
type Input struct {
	Clock     *quartz.Mock
	resetAt   time.Time
	pending   []scheduledKey
	haveReset bool
}

type scheduledKey struct {
	key string
	at  time.Time
}

// NewInput constructs an Input tied to clock.
func NewInput(clock *quartz.Mock) *Input {
	return &Input{Clock: clock}
}

// Schedule arranges for key to be "pressed" delay after the most recent
// ResetClock call, or, if ResetClock has not been called yet, delay after
// the clock's current time (the time of the Schedule call).
func (i *Input) Schedule(key string, delay time.Duration) {
	base := i.Clock.Now()
	if i.haveReset {
		base = i.resetAt
	}
	i.pending = append(i.pending, scheduledKey{key: key, at: base.Add(delay)})
}

func (i *Input) ResetClock() {
	i.resetAt = i.Clock.Now()
	i.haveReset = true
}

func (i *Input) Clear() {
	now := i.Clock.Now()
	kept := i.pending[:0]
	for _, k := range i.pending {
		if k.at.After(now) {
			kept = append(kept, k)
		}
	}
	i.pending = kept
}

func (i *Input) Poll() []stimulus.KeyEvent {
	now := i.Clock.Now()
	var fired []stimulus.KeyEvent
	var remaining []scheduledKey
	for _, k := range i.pending {
		if !k.at.After(now) {
			rt := now.Sub(i.resetAt)
			if !i.haveReset {
				rt = 0
			}
			fired = append(fired, stimulus.KeyEvent{Key: k.key, RT: rt})
		} else {
			remaining = append(remaining, k)
		}
	}
	i.pending = remaining
	return fired
}

var _ stimulus.InputSource = (*Input)(nil)
