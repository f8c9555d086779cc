package sim

import (
	"sync"

	"periphhal/drivers/uartex"
	"periphhal/regs"
)

// UART simulates the receive side of a UART: words queued with Feed appear
// in RDR one at a time, and the line reports idle once the queue drains
// after at least one word.
type UART struct {
	*regs.File

	mu    sync.Mutex
	rx    []uint16
	armed bool
}

func NewUART() *UART {
	s := &UART{File: regs.NewFile()}
	s.OnRead(uartex.OffsetISR, s.readISR)
	s.OnRead(uartex.OffsetRDR, s.readRDR)
	s.OnWrite(uartex.OffsetICR, s.writeICR)
	return s
}

// Feed queues raw words as the hardware would deliver them, parity bit
// included.
func (s *UART) Feed(words ...uint16) {
	s.mu.Lock()
	s.rx = append(s.rx, words...)
	s.mu.Unlock()
}

// FeedBytes queues 8-bit words.
func (s *UART) FeedBytes(p []byte) {
	for _, b := range p {
		s.Feed(uint16(b))
	}
}

// Pending returns the number of queued words not yet read.
func (s *UART) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rx)
}

func (s *UART) readISR(f *regs.File, off, cur uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Peek(uartex.OffsetCR1)&uartex.CR1Enable == 0 {
		return cur &^ (uartex.ISRRxNotEmpty | uartex.ISRIdle)
	}
	if len(s.rx) > 0 {
		cur |= uartex.ISRRxNotEmpty
	} else {
		cur &^= uartex.ISRRxNotEmpty
		if s.armed {
			cur |= uartex.ISRIdle
			s.armed = false
		}
	}
	f.Poke(off, cur)
	return cur
}

func (s *UART) readRDR(_ *regs.File, _ uint32, cur uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) == 0 {
		return cur
	}
	w := s.rx[0]
	s.rx = s.rx[1:]
	s.armed = true
	return uint32(w)
}

func (s *UART) writeICR(f *regs.File, _ uint32, _ uint32, v uint32) uint32 {
	if v&uartex.ICRIdleClear != 0 {
		f.ClearBits(uartex.OffsetISR, uartex.ISRIdle)
	}
	return 0
}
