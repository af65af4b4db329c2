// Package scanner provides the scanner-gated clock: an abstract source of
// monotonically increasing TR pulse counts, plus the PulseCounter built on
// top of it.
package scanner

import (
	"time"

	"github.com/coder/quartz"
)

// Backend is the low-level scanner interface: an absolute, monotonically
// non-decreasing pulse count, a scan-start signal, and the pulses-per-TR
// constant. Hardware and Emulated are the only two variants.
type Backend interface {
	// Read returns the current absolute pulse count.
	Read() uint64
	// Start signals scan commencement. No-op for Hardware.
	Start()
	// PulseRate returns the number of pulses per one TR.
	PulseRate() uint32
}

// Hardware delegates Read to an external DAQ counter channel (board 0,
// channel 0 per the scanner trigger wiring). The channel is injected so
// the caller owns the lifetime of the underlying device handle.
type Hardware struct {
	Channel   func() (uint64, error)
	Rate      uint32
	onReadErr func(error)
	last      uint64
}

// NewHardware constructs a Hardware backend reading from channel at the
// given pulses-per-TR rate. onReadErr, if non-nil, is invoked whenever the
// channel read fails; Read then returns the last successfully read value.
func NewHardware(channel func() (uint64, error), rate uint32, onReadErr func(error)) *Hardware {
	return &Hardware{Channel: channel, Rate: rate, onReadErr: onReadErr}
}

var _ Backend = (*Hardware)(nil)

func (h *Hardware) Start() {}

func (h *Hardware) PulseRate() uint32 { return h.Rate }

func (h *Hardware) Read() uint64 {
	v, err := h.Channel()
	if err != nil {
		if h.onReadErr != nil {
			h.onReadErr(err)
		}
		return h.last
	}
	h.last = v
	return v
}

// Emulated is a deterministic software TR clock for development and tests.
// Read returns floor((now-start)/TR * pulse_rate), and 0 before Start is
// called. TR and the clock are both injectable so tests can drive it with
// a quartz.Mock.
type Emulated struct {
	clock   quartz.Clock
	tr      time.Duration
	rate    uint32
	started bool
	start   time.Time
}

var _ Backend = (*Emulated)(nil)

// NewEmulated constructs an Emulated backend. clock defaults to the real
// wall clock if nil.
func NewEmulated(clock quartz.Clock, tr time.Duration, rate uint32) *Emulated {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Emulated{clock: clock, tr: tr, rate: rate}
}

func (e *Emulated) Start() {
	e.start = e.clock.Now()
	e.started = true
}

func (e *Emulated) PulseRate() uint32 { return e.rate }

func (e *Emulated) Read() uint64 {
	if !e.started {
		return 0
	}
	elapsed := e.clock.Now().Sub(e.start)
	if elapsed <= 0 {
		return 0
	}
	pulses := elapsed.Seconds() / e.tr.Seconds() * float64(e.rate)
	if pulses < 0 {
		return 0
	}
	return uint64(pulses)
}
