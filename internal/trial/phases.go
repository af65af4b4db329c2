package trial

import (
	"time"

	"github.com/lox/midtask/internal/stimulus"
)

// runCue draws the cue stimulus for dur, checking only for a quit key
// (§4.D CUE: no response scoring happens during this phase).
func runCue(deps Deps, cueLabel, accuracyCaption string, edgeCount int, dur time.Duration) error {
	start := deps.Clock.Now()
	for deps.Clock.Now().Sub(start) < dur {
		deps.Renderer.DrawCue(cueLabel, accuracyCaption, edgeCount)
		deps.Renderer.Flip()
		if stimulus.IsQuit(deps.Input.Poll()) {
			return ErrSessionAborted
		}
	}
	return nil
}

// runFixation draws the anticipation fixation cross for dur, accumulating
// an early_press flag for any response key observed during the phase
// (§4.D FIX).
func runFixation(deps Deps, dur time.Duration) (earlyPress bool, err error) {
	deps.Input.Clear()
	start := deps.Clock.Now()
	for deps.Clock.Now().Sub(start) < dur {
		deps.Renderer.DrawFixation()
		deps.Renderer.Flip()
		events := deps.Input.Poll()
		if stimulus.IsQuit(events) {
			return earlyPress, ErrSessionAborted
		}
		if hasResponseKey(events) {
			earlyPress = true
		}
	}
	return earlyPress, nil
}

// runResponse drives the RSP phase: a fixation-only window of jitterS,
// followed by the target display window of targetDurS, followed by a
// return to fixation for the remainder of dur. The RT clock resets and the
// input queue clears on the exact flip that first shows the target
// (§4.D RSP, §5 vsync contract).
func runResponse(deps Deps, jitterS, targetDurS float64, dur time.Duration, earlyPressIn bool) (hit bool, rtMs float64, hasRT bool, earlyPress bool, err error) {
	deps.Input.Clear()

	jitter := time.Duration(jitterS * float64(time.Second))
	targetDur := time.Duration(targetDurS * float64(time.Second))

	start := deps.Clock.Now()
	var targetShown, targetRemoved, resetScheduled, scored bool

	for {
		elapsed := deps.Clock.Now().Sub(start)
		if elapsed >= dur {
			break
		}

		if !resetScheduled && elapsed >= jitter {
			deps.Renderer.OnFlip(deps.Input.ResetClock)
			deps.Renderer.OnFlip(deps.Input.Clear)
			resetScheduled = true
			targetShown = true
		}
		if targetShown && !targetRemoved && elapsed-jitter >= targetDur {
			targetRemoved = true
		}

		if targetShown && !targetRemoved {
			deps.Renderer.DrawTarget()
		} else {
			deps.Renderer.DrawFixation()
		}
		deps.Renderer.Flip()

		events := deps.Input.Poll()
		if stimulus.IsQuit(events) {
			return false, 0, false, earlyPress, ErrSessionAborted
		}

		if !targetShown {
			// Pre-target window: any response key is an early press.
			if hasResponseKey(events) {
				earlyPress = true
			}
			continue
		}

		if !scored && !earlyPressIn && !earlyPress {
			if rt, ok := firstResponseKey(events); ok {
				rtMs = rt.Seconds() * 1000
				hasRT = true
				scored = true
				if !targetRemoved {
					hit = true
				}
			}
		}
	}

	return hit, rtMs, hasRT, earlyPress, nil
}

// runOutcome draws the feedback stimulus for dur, checking only for a quit
// key.
func runOutcome(deps Deps, cueLabel, rewardOutcome string, hit bool, dur time.Duration) error {
	start := deps.Clock.Now()
	for deps.Clock.Now().Sub(start) < dur {
		deps.Renderer.DrawFeedback(hit, cueLabel, rewardOutcome)
		deps.Renderer.Flip()
		if stimulus.IsQuit(deps.Input.Poll()) {
			return ErrSessionAborted
		}
	}
	return nil
}

// runITI draws the post-outcome fixation for the drift-corrected dur.
func runITI(deps Deps, dur time.Duration) error {
	start := deps.Clock.Now()
	for deps.Clock.Now().Sub(start) < dur {
		deps.Renderer.DrawFixation()
		deps.Renderer.Flip()
		if stimulus.IsQuit(deps.Input.Poll()) {
			return ErrSessionAborted
		}
	}
	return nil
}

func hasResponseKey(events []stimulus.KeyEvent) bool {
	_, ok := firstResponseKey(events)
	return ok
}

func firstResponseKey(events []stimulus.KeyEvent) (time.Duration, bool) {
	for _, e := range events {
		if stimulus.IsResponseKey(e.Key) {
			return e.RT, true
		}
	}
	return 0, false
}
