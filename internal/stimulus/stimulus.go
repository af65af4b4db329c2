// Package stimulus defines the two external capabilities THE CORE depends
// on but does not implement: a visual rendering surface that draws named
// stimuli and performs a vsync flip, and an input device that produces
// timestamped key events. Both are out of scope per §1; this package only
// fixes the contract the trial state machine drives.
package stimulus

import "time"

// CueEdgeCount maps a cue kind to its polygon edge count (gain: near-circle,
// loss: diamond, neutral: hexagon), matching the original task's shapes.
var CueEdgeCount = map[string]int{
	"gain":    128,
	"loss":    4,
	"neutral": 6,
}

// KeyEvent is one timestamped response keypress.
type KeyEvent struct {
	Key string
	// RT is the elapsed time since the InputSource's RT clock was last
	// reset via ResetClock.
	RT time.Duration
}

// Renderer is the visual rendering surface capability. All Draw* calls are
// buffered until the next Flip; Flip performs the buffer swap and blocks
// until the next vsync (or its emulated equivalent).
type Renderer interface {
	DrawCue(cueLabel, accuracyCaption string, edgeCount int)
	DrawFixation()
	DrawTarget()
	DrawFeedback(hit bool, cueLabel, rewardOutcome string)

	// DrawInstructions renders one instruction page. isFirstPage selects
	// the "press forward to continue" vs. "press back/forward to
	// navigate" prompt variant.
	DrawInstructions(text string, isFirstPage bool)
	// DrawInstructionsFinish renders the pager's closing screen.
	DrawInstructionsFinish()

	// Flip performs the buffer swap, running any callbacks registered via
	// OnFlip (in registration order) at the moment of the swap, then
	// clearing them, and returns once the swap has completed.
	Flip()

	// OnFlip schedules fn to run on the next Flip call, exactly once. The
	// trial state machine relies on this to reset the RT clock and clear
	// pending input on the identical vsync that first shows the target.
	OnFlip(fn func())
}

// InputSource is the input device capability: a source of timestamped
// response keypresses plus a resettable RT clock.
type InputSource interface {
	// Poll returns and clears all key events received since the last
	// Poll or Clear call. Non-blocking.
	Poll() []KeyEvent

	// Clear discards any buffered key events without returning them.
	Clear()

	// ResetClock resets the RT reference point to now; subsequent
	// KeyEvent.RT values are measured from this instant.
	ResetClock()
}

// QuitKeys are recognized as an immediate session-abort signal in every
// phase, regardless of the run's keyboard mode.
var QuitKeys = map[string]bool{"escape": true, "l": true}

// IsQuit reports whether any of the given keys is a quit key.
func IsQuit(keys []KeyEvent) bool {
	for _, k := range keys {
		if QuitKeys[k.Key] {
			return true
		}
	}
	return false
}

// ResponseKeys are the valid response buttons, "1" through "10".
func ResponseKeys() []string {
	return []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
}

// IsResponseKey reports whether key is one of the valid response buttons.
func IsResponseKey(key string) bool {
	for _, k := range ResponseKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// KeyMode selects the navigation/mode keyboard layout.
type KeyMode int

const (
	FMRIKeys KeyMode = iota
	BehavioralKeys
)

// NavKeys holds one mode's forward/back/start/end keys.
type NavKeys struct {
	Forward, Back, Start, End string
}

// Keys returns the navigation keyboard map for the given mode (§6).
func Keys(mode KeyMode) NavKeys {
	if mode == FMRIKeys {
		return NavKeys{Forward: "7", Back: "6", Start: "0", End: "l"}
	}
	return NavKeys{Forward: "4", Back: "3", Start: "0", End: "l"}
}
