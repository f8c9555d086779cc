//go:build rp2040 || rp2350

package uartex

import (
	"github.com/jangala-dev/tinygo-uartx/uartx"

	"periphhal/errcode"
)

// ApplyFormat mirrors the handle's word length and parity onto an
// interrupt-driven rp2 UART. rp2 counts data bits without parity and
// supports 5..8 of them, so 9-bit words without parity are rejected.
func (h *Handle) ApplyFormat(u *uartx.UART, stopBits uint8) error {
	if !h.valid() || u == nil {
		return errcode.InvalidHandle
	}
	db := DataBits(h.cfg.WordLength, h.cfg.Parity)
	if db < 5 || db > 8 {
		return errcode.Unsupported
	}
	var par uartx.UARTParity
	switch h.cfg.Parity {
	case ParityEven:
		par = uartx.ParityEven
	case ParityOdd:
		par = uartx.ParityOdd
	default:
		par = uartx.ParityNone
	}
	return u.SetFormat(db, stopBits, par)
}

// PortBuffered reports bytes waiting in the rp2 UART's software ring, so
// callers can compare it against NbDataToProcess before draining.
func PortBuffered(u *uartx.UART) int { return u.Buffered() }
