package scanner

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmulatedReadZeroBeforeStart(t *testing.T) {
	clock := quartz.NewMock(t)
	e := NewEmulated(clock, 2*time.Second, 46)
	assert.Zero(t, e.Read())
}

func TestEmulatedReadTracksElapsedPulses(t *testing.T) {
	clock := quartz.NewMock(t)
	e := NewEmulated(clock, 2*time.Second, 46)
	e.Start()

	assert.Zero(t, e.Read())

	clock.Advance(1 * time.Second) // half a TR
	assert.EqualValues(t, 23, e.Read())

	clock.Advance(1 * time.Second) // one full TR elapsed
	assert.EqualValues(t, 46, e.Read())

	clock.Advance(2 * time.Second) // two full TRs elapsed
	assert.EqualValues(t, 92, e.Read())
}

func TestCounterDrainIsNonBlockingAndNonNegative(t *testing.T) {
	clock := quartz.NewMock(t)
	e := NewEmulated(clock, 2*time.Second, 46)
	e.Start()
	c := NewCounter(e, clock)

	assert.Zero(t, c.Drain())

	clock.Advance(2 * time.Second)
	assert.EqualValues(t, 46, c.Drain())
	assert.Zero(t, c.Drain()) // cache now caught up
}

func TestCounterWaitForTRBlocksUntilOneTRElapsed(t *testing.T) {
	// Exercised against the real clock with a tiny TR so the blocking
	// poll loop in WaitForTR resolves on its own; a quartz.Mock would
	// need a concurrent Advance to unblock the Sleep inside it.
	clock := quartz.NewReal()
	e := NewEmulated(clock, 5*time.Millisecond, 10)
	e.Start()
	c := NewCounter(e, clock)

	done := make(chan uint32, 1)
	go func() { done <- c.WaitForTR() }()

	select {
	case delta := <-done:
		assert.GreaterOrEqual(t, delta, uint32(10))
	case <-time.After(time.Second):
		t.Fatal("WaitForTR did not return within 1s")
	}
}

func TestCounterWaitForStartBlocksUntilPulseCountChanges(t *testing.T) {
	clock := quartz.NewReal()
	e := NewEmulated(clock, 5*time.Millisecond, 10)
	c := NewCounter(e, clock) // constructed before Start, so last caches 0

	done := make(chan struct{})
	go func() {
		e.Start()
		c.WaitForStart()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForStart did not return within 1s")
	}
}

func TestHardwareReadFallsBackToLastValueOnChannelError(t *testing.T) {
	calls := 0
	var lastErr error
	h := NewHardware(func() (uint64, error) {
		calls++
		if calls == 1 {
			return 7, nil
		}
		return 0, errChannelFailure
	}, 46, func(err error) { lastErr = err })

	require.EqualValues(t, 7, h.Read())
	require.EqualValues(t, 7, h.Read()) // falls back to last good value on error
	assert.ErrorIs(t, lastErr, errChannelFailure)
	assert.EqualValues(t, 46, h.PulseRate())
}

var errChannelFailure = errTest("channel read failed")

type errTest string

func (e errTest) Error() string { return string(e) }
