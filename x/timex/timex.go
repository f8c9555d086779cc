package timex

import (
	"sync/atomic"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Clock is a free-running tick counter. Ticks wrap at 2^32; callers measure
// intervals with unsigned subtraction (now - start).
type Clock interface {
	Now() uint32
}

// Elapsed returns ticks since start, correct across a single wrap.
func Elapsed(c Clock, start uint32) uint32 { return c.Now() - start }

// Millis ticks once per millisecond since its construction.
type Millis struct {
	epoch time.Time
}

// NewMillis starts a millisecond clock at zero.
func NewMillis() *Millis { return &Millis{epoch: time.Now()} }

func (m *Millis) Now() uint32 { return uint32(time.Since(m.epoch).Milliseconds()) }

// Manual is a clock advanced explicitly. With Step > 0 every Now call returns
// the current tick and then advances by Step, so a polling loop sees time
// pass without sleeping.
type Manual struct {
	t    atomic.Uint32
	step atomic.Uint32
}

// NewManual returns a manual clock at start that advances step per Now.
func NewManual(start, step uint32) *Manual {
	m := &Manual{}
	m.t.Store(start)
	m.step.Store(step)
	return m
}

func (m *Manual) Now() uint32 {
	s := m.step.Load()
	return m.t.Add(s) - s
}

// Advance moves the clock forward by d ticks.
func (m *Manual) Advance(d uint32) { m.t.Add(d) }

// Peek returns the current tick without advancing.
func (m *Manual) Peek() uint32 { return m.t.Load() }

// SetStep changes the per-read advance.
func (m *Manual) SetStep(step uint32) { m.step.Store(step) }
