package periph

import (
	"periphhal/errcode"
	"periphhal/regs"
)

// Capability kinds.
const (
	KindRNG  = "rng"
	KindUART = "uart"
)

// CapInfo describes one capability's info document.
type CapInfo struct {
	Kind string         // capability kind
	Info map[string]any // small JSONable map
}

// Adaptor fronts one driver handle. It must not own goroutines.
type Adaptor interface {
	ID() string
	Capabilities() []CapInfo
	// Control runs a device-specific method. Errors carry an errcode.Code.
	Control(kind, method string, payload any) (result any, err error)
	// Close de-initialises the handle.
	Close() error
}

// errLatched is implemented by buses that swallow transfer errors, such as
// regs.I2CBus.
type errLatched interface{ Err() error }

// busErr surfaces a latched transfer error after an operation.
func busErr(b regs.Bus, op string) error {
	l, ok := b.(errLatched)
	if !ok {
		return nil
	}
	if err := l.Err(); err != nil {
		return &errcode.E{C: errcode.Error, Op: op, Msg: "bus transfer failed", Err: err}
	}
	return nil
}
