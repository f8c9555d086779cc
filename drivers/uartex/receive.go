package uartex

import (
	"context"

	"periphhal/errcode"
	"periphhal/x/timex"
)

// MaxDelay disables the tick timeout in ReceiveToIdle; only ctx can end the
// wait.
const MaxDelay = ^uint32(0)

// ReceiveToIdle polls for data until p is full or the line goes idle after
// at least one item. Each received word is masked with Mask. With 9-bit
// words and no parity every item takes two bytes (little-endian) in p.
//
// It returns the number of bytes stored. errcode.Timeout is returned with
// the partial count when no completion arrives within timeout ticks; a zero
// timeout means a single pass.
func (h *Handle) ReceiveToIdle(ctx context.Context, p []byte, timeout uint32) (int, error) {
	if !h.valid() {
		return 0, errcode.InvalidHandle
	}
	wide := h.cfg.WordLength == WordLength9 && h.cfg.Parity == ParityNone
	size := len(p)
	if wide {
		size /= 2
	}
	if size == 0 {
		return 0, errcode.InvalidParams
	}
	if err := h.acquire(); err != nil {
		return 0, err
	}
	defer h.release()

	if h.state != StateReady {
		return 0, errcode.NotReady
	}
	h.state = StateBusy
	defer func() { h.state = StateReady }()

	n := 0
	stored := func() int {
		if wide {
			return n * 2
		}
		return n
	}

	start := h.clock.Now()
	for n < size {
		isr := h.bus.Read(regISR)
		if isr&isrIDLE != 0 {
			h.bus.Write(regICR, icrIDLECF)
			if n > 0 {
				return stored(), nil
			}
		}
		if isr&isrRXNE != 0 {
			w := uint16(h.bus.Read(regRDR)) & h.mask
			if wide {
				p[2*n] = byte(w)
				p[2*n+1] = byte(w >> 8)
			} else {
				p[n] = byte(w)
			}
			n++
			continue
		}
		if timeout != MaxDelay {
			if timeout == 0 || timex.Elapsed(h.clock, start) > timeout {
				return stored(), errcode.Timeout
			}
		}
		if err := ctx.Err(); err != nil {
			return stored(), err
		}
	}
	return stored(), nil
}
