// Package sim provides software peripherals on top of regs.File. They model
// the timing quirks the drivers must cope with, deterministically.
package sim

import (
	"sync"

	"periphhal/drivers/rng"
	"periphhal/regs"
)

// RNG simulates a random number generator peripheral.
//
// Divider writes take Lag CR reads to land, and any divider write issued
// meanwhile is dropped. A sample becomes ready Latency SR polls after the
// previous value was taken; a negative Latency means never.
type RNG struct {
	*regs.File

	mu      sync.Mutex
	lag     int
	latency int
	next    func() uint32

	pending   bool
	pendDiv   uint32
	countdown int
	dropped   int
	polls     int
	samples   int
}

// NewRNG returns a stopped peripheral that yields next() per sample.
func NewRNG(next func() uint32, lag, latency int) *RNG {
	s := &RNG{File: regs.NewFile(), lag: lag, latency: latency, next: next}
	s.Poke(rng.OffsetCR, rng.CRDisable)
	s.OnWrite(rng.OffsetCR, s.writeCR)
	s.OnRead(rng.OffsetCR, s.readCR)
	s.OnRead(rng.OffsetSR, s.readSR)
	s.OnRead(rng.OffsetVAL, s.readVAL)
	return s
}

var divider = rng.DividerField()

func (s *RNG) writeCR(_ *regs.File, _ uint32, prev, v uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := divider.Get(v)
	if s.pending {
		s.dropped++
		return divider.Put(v, divider.Get(prev))
	}
	if want != divider.Get(prev) {
		if s.lag <= 0 {
			return v
		}
		s.pending = true
		s.pendDiv = want
		s.countdown = s.lag
	}
	return divider.Put(v, divider.Get(prev))
}

func (s *RNG) readCR(f *regs.File, off, cur uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		s.countdown--
		if s.countdown <= 0 {
			s.pending = false
			cur = divider.Put(cur, s.pendDiv)
			f.Poke(off, cur)
		}
	}
	return cur
}

func (s *RNG) readSR(f *regs.File, off, cur uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Peek(rng.OffsetCR)&rng.CRDisable != 0 || s.latency < 0 {
		return cur
	}
	if cur&rng.SRReady == 0 {
		s.polls++
		if s.polls > s.latency {
			f.Poke(rng.OffsetVAL, s.next())
			cur |= rng.SRReady
			f.Poke(off, cur)
		}
	}
	return cur
}

func (s *RNG) readVAL(f *regs.File, _ uint32, cur uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Peek(rng.OffsetSR)&rng.SRReady != 0 {
		s.samples++
	}
	f.ClearBits(rng.OffsetSR, rng.SRReady)
	s.polls = 0
	return cur
}

// SetLatency changes the number of polls before the next sample is ready.
func (s *RNG) SetLatency(n int) {
	s.mu.Lock()
	s.latency = n
	s.polls = 0
	s.mu.Unlock()
}

// Dropped returns how many divider writes were ignored during resync.
func (s *RNG) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Samples returns how many ready values have been consumed.
func (s *RNG) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Counter returns a deterministic sample source start, start+step, ...
func Counter(start, step uint32) func() uint32 {
	var mu sync.Mutex
	v := start
	return func() uint32 {
		mu.Lock()
		defer mu.Unlock()
		out := v
		v += step
		return out
	}
}
