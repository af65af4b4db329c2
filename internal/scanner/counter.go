package scanner

import (
	"time"

	"github.com/coder/quartz"
)

// pollInterval is the poll-sleep cadence used by the blocking Counter
// operations, matching the original PulseCounter's 1ms cadence.
const pollInterval = time.Millisecond

// Counter wraps a Backend and caches the last-seen pulse count. All of its
// operations are built purely on Backend.Read and Backend.PulseRate; no
// hardware or emulation logic lives here.
type Counter struct {
	backend Backend
	clock   quartz.Clock
	last    uint64
}

// NewCounter wraps backend. clock, used only for the poll-sleep cadence of
// the blocking calls, defaults to the real wall clock if nil.
func NewCounter(backend Backend, clock quartz.Clock) *Counter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Counter{backend: backend, clock: clock, last: backend.Read()}
}

// WaitForStart blocks until the backend's pulse count changes, then
// refreshes the cache.
func (c *Counter) WaitForStart() {
	for c.backend.Read() == c.last {
		c.clock.Sleep(pollInterval)
	}
	c.last = c.backend.Read()
}

// Drain snapshots the current pulse count and returns the non-negative
// delta since the last cache refresh, without blocking.
func (c *Counter) Drain() uint32 {
	curr := c.backend.Read()
	var delta uint64
	if curr > c.last {
		delta = curr - c.last
	}
	c.last = curr
	return uint32(delta)
}

// WaitForTR blocks until one TR's worth of pulses (PulseRate) has arrived,
// then refreshes the cache and returns the actual delta observed (which
// may exceed PulseRate if pulses arrived in a burst).
func (c *Counter) WaitForTR() uint32 {
	target := c.last + uint64(c.backend.PulseRate())
	for c.backend.Read() < target {
		c.clock.Sleep(pollInterval)
	}
	curr := c.backend.Read()
	delta := curr - c.last
	c.last = curr
	return uint32(delta)
}
