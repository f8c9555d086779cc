// Package rng drives a true random number generator peripheral.
//
// The handle is a small state machine:
//
//	Reset --Init--> Ready --GenerateRandomNumber--> Busy --> Ready
//	                  any --DeInit--> Reset
//
// Generation polls the data-ready flag for at most Config.Timeout ticks. A
// timeout is recoverable: the handle returns to Ready and the sticky
// ErrTimeout flag records what happened until the next Init or DeInit.
//
// A handle serves one operation at a time. A second caller arriving while an
// operation is in flight gets errcode.Busy immediately; it never waits.
package rng

import (
	"sync/atomic"

	"periphhal/errcode"
	"periphhal/regs"
	"periphhal/x/timex"
)

// DefaultTimeout bounds the data-ready poll, in clock ticks.
const DefaultTimeout = 2

// DefaultSyncAttempts bounds the divider write/read-back loop in Init.
const DefaultSyncAttempts = 1 << 16

// State is the handle lifecycle state.
type State uint8

const (
	StateReset State = iota
	StateReady
	StateBusy
	StateError
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateError:
		return "error"
	case StateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ErrorFlags accumulates failure causes until Init or DeInit clears them.
type ErrorFlags uint32

const (
	ErrNone        ErrorFlags = 0
	ErrTimeout     ErrorFlags = 1 << 1 // data-ready not seen within Timeout
	ErrDividerSync ErrorFlags = 1 << 2 // divider never read back as written
)

func (f ErrorFlags) Has(flag ErrorFlags) bool { return f&flag != 0 }

func (f ErrorFlags) String() string {
	if f == ErrNone {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if f.Has(ErrTimeout) {
		add("timeout")
	}
	if f.Has(ErrDividerSync) {
		add("divider_sync")
	}
	if rest := f &^ (ErrTimeout | ErrDividerSync); rest != 0 {
		add("unknown")
	}
	return s
}

// Divider selects the sampling clock enable divider.
type Divider uint8

const (
	DivNone Divider = iota
	Div2
	Div4
	Div8
)

// Valid reports whether d is a divider the peripheral supports.
func (d Divider) Valid() bool { return d <= Div8 }

// Msp holds optional board hooks (clock gating, pin setup). Nil means no-op.
type Msp struct {
	Init   func(h *Handle)
	DeInit func(h *Handle)
}

// Config carries non-register behaviour. All fields are optional.
type Config struct {
	// Timeout bounds the data-ready poll in clock ticks. Default 2.
	Timeout uint32
	// SyncAttempts bounds divider resynchronisation writes. Default 65536.
	SyncAttempts int
	Msp          Msp
}

// Handle is one RNG peripheral instance.
type Handle struct {
	bus   regs.Bus
	clock timex.Clock
	cfg   Config

	divider Divider
	state   State
	errs    ErrorFlags
	last    uint32

	locked atomic.Bool
}

// New binds a handle to a register window. A nil clock selects a millisecond
// clock. The handle starts in StateReset and does not touch the hardware.
func New(bus regs.Bus, clock timex.Clock, cfg Config) *Handle {
	if clock == nil {
		clock = timex.NewMillis()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SyncAttempts <= 0 {
		cfg.SyncAttempts = DefaultSyncAttempts
	}
	return &Handle{bus: bus, clock: clock, cfg: cfg}
}

func (h *Handle) valid() bool { return h != nil && h.bus != nil }

// Init programs the sampling clock divider and enables the peripheral.
// Board setup runs only on the first Init after Reset.
func (h *Handle) Init(div Divider) error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if !div.Valid() {
		return errcode.InvalidParams
	}
	if h.state == StateReset {
		h.locked.Store(false)
		if h.cfg.Msp.Init != nil {
			h.cfg.Msp.Init(h)
		}
	}
	h.state = StateBusy
	h.divider = div

	if !h.syncDivider(uint32(div)) {
		h.state = StateError
		h.errs |= ErrDividerSync
		return errcode.Timeout
	}

	regs.ClearBits(h.bus, regCR, crDisable)
	h.state = StateReady
	h.errs = ErrNone
	return nil
}

// syncDivider writes the divider until it reads back. Writes issued while an
// earlier value is still resynchronising are ignored, so one write is not
// enough.
func (h *Handle) syncDivider(want uint32) bool {
	for i := 0; i < h.cfg.SyncAttempts; i++ {
		if regs.ReadField(h.bus, regCR, crDivider) == want {
			return true
		}
		regs.WriteField(h.bus, regCR, crDivider, want)
	}
	return regs.ReadField(h.bus, regCR, crDivider) == want
}

// DeInit runs board teardown, stops the peripheral and returns the handle to
// Reset. Safe to call in any state, including after a failed Init.
func (h *Handle) DeInit() error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if h.cfg.Msp.DeInit != nil {
		h.cfg.Msp.DeInit(h)
	}
	regs.SetBits(h.bus, regCR, crDisable)
	h.state = StateReset
	h.errs = ErrNone
	h.locked.Store(false)
	return nil
}

// GenerateRandomNumber waits for a fresh value and returns it.
//
// Errors: errcode.Busy when another operation holds the handle,
// errcode.NotReady when the handle is not Ready, errcode.Timeout when the
// data-ready flag did not rise within Config.Timeout ticks.
func (h *Handle) GenerateRandomNumber() (uint32, error) {
	if !h.valid() {
		return 0, errcode.InvalidHandle
	}
	if !h.locked.CompareAndSwap(false, true) {
		return 0, errcode.Busy
	}
	defer h.locked.Store(false)

	if h.state != StateReady {
		return 0, errcode.NotReady
	}
	h.state = StateBusy

	start := h.clock.Now()
	for !regs.HasBits(h.bus, regSR, srReady) {
		if timex.Elapsed(h.clock, start) > h.cfg.Timeout {
			h.state = StateReady
			h.errs |= ErrTimeout
			return 0, errcode.Timeout
		}
	}

	// The read itself acknowledges the sample.
	v := h.bus.Read(regVAL)
	h.last = v
	h.state = StateReady
	return v, nil
}

// ReadLastRandomNumber returns the value from the last successful generation,
// or zero if there has been none.
func (h *Handle) ReadLastRandomNumber() uint32 { return h.last }

func (h *Handle) State() State          { return h.state }
func (h *Handle) ErrorCode() ErrorFlags { return h.errs }
func (h *Handle) Divider() Divider      { return h.divider }
func (h *Handle) Locked() bool          { return h.locked.Load() }
