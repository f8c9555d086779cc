// Package uartex holds the frame-format and FIFO configuration side of a UART
// peripheral: the receive data mask, FIFO mode, FIFO thresholds and the
// multiprocessor address length.
//
// Every configuration change follows the same sequence: take the handle,
// disable the peripheral, apply the change, restore the previous CR1 and
// release the handle. Changing a live peripheral is not allowed by the
// hardware, and the caller's enable state survives the change.
package uartex

import (
	"sync/atomic"

	"periphhal/errcode"
	"periphhal/regs"
	"periphhal/x/mathx"
	"periphhal/x/timex"
)

// WordLength is the frame length in bits, parity bit included.
type WordLength uint8

const (
	WordLength7 WordLength = 7
	WordLength8 WordLength = 8
	WordLength9 WordLength = 9
)

func (w WordLength) Valid() bool {
	return w == WordLength7 || w == WordLength8 || w == WordLength9
}

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) Valid() bool { return p <= ParityOdd }

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "invalid"
	}
}

// AddressLength selects 4-bit or 7-bit wake-up address detection.
type AddressLength uint8

const (
	Address4Bit AddressLength = iota
	Address7Bit
)

func (a AddressLength) Valid() bool { return a <= Address7Bit }

// Threshold is a FIFO fill level in eighths of the FIFO depth. The numeric
// values are the hardware encodings.
type Threshold uint8

const (
	Threshold1_8 Threshold = iota
	Threshold1_4
	Threshold1_2
	Threshold3_4
	Threshold7_8
	Threshold8_8
)

func (t Threshold) Valid() bool { return t <= Threshold8_8 }

func (t Threshold) String() string {
	switch t {
	case Threshold1_8:
		return "1/8"
	case Threshold1_4:
		return "1/4"
	case Threshold1_2:
		return "1/2"
	case Threshold3_4:
		return "3/4"
	case Threshold7_8:
		return "7/8"
	case Threshold8_8:
		return "8/8"
	default:
		return "invalid"
	}
}

// ParseThreshold accepts "1/8" ... "8/8".
func ParseThreshold(s string) (Threshold, bool) {
	for t := Threshold1_8; t <= Threshold8_8; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// Direction selects the transmit or receive FIFO.
type Direction uint8

const (
	DirTx Direction = iota
	DirRx
)

type State uint8

const (
	StateReset State = iota
	StateReady
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Config is the frame and FIFO setup applied by Configure.
type Config struct {
	WordLength    WordLength
	Parity        Parity
	AddressLength AddressLength
	FIFOMode      bool
	TxThreshold   Threshold
	RxThreshold   Threshold
}

// DefaultConfig is 8N1 with FIFO mode off.
func DefaultConfig() Config {
	return Config{WordLength: WordLength8, Parity: ParityNone}
}

// Validate rejects values outside the supported sets.
func (c Config) Validate() error {
	if !c.WordLength.Valid() || !c.Parity.Valid() || !c.AddressLength.Valid() ||
		!c.TxThreshold.Valid() || !c.RxThreshold.Valid() {
		return errcode.InvalidParams
	}
	return nil
}

// ComputeMask returns the bits of a received word that carry data. With
// parity enabled the hardware delivers the parity bit as the top bit of the
// word, so it is stripped. An unsupported word length yields 0.
func ComputeMask(wl WordLength, p Parity) uint16 {
	parity := p != ParityNone
	switch wl {
	case WordLength9:
		if parity {
			return 0x00FF
		}
		return 0x01FF
	case WordLength8:
		if parity {
			return 0x007F
		}
		return 0x00FF
	case WordLength7:
		if parity {
			return 0x003F
		}
		return 0x007F
	default:
		return 0x0000
	}
}

// DataBits returns the payload bits per frame (word length minus parity).
func DataBits(wl WordLength, p Parity) uint8 {
	if p != ParityNone {
		return uint8(wl) - 1
	}
	return uint8(wl)
}

// Handle is one UART peripheral instance.
type Handle struct {
	bus   regs.Bus
	clock timex.Clock

	cfg   Config
	mask  uint16
	state State

	nbTx, nbRx uint16

	locked atomic.Bool
}

// New binds a handle to a register window. A nil clock selects a millisecond
// clock. Nothing is written until Configure.
func New(bus regs.Bus, clock timex.Clock) *Handle {
	if clock == nil {
		clock = timex.NewMillis()
	}
	return &Handle{bus: bus, clock: clock, nbTx: 1, nbRx: 1}
}

func (h *Handle) valid() bool { return h != nil && h.bus != nil }

func (h *Handle) acquire() error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if !h.locked.CompareAndSwap(false, true) {
		return errcode.Busy
	}
	return nil
}

func (h *Handle) release() { h.locked.Store(false) }

// reconfigure runs apply with the peripheral disabled. apply receives the
// saved CR1 and returns the CR1 to restore.
func (h *Handle) reconfigure(apply func(cr1 uint32) uint32) error {
	if err := h.acquire(); err != nil {
		return err
	}
	defer h.release()

	prev := h.state
	h.state = StateBusy

	cr1 := h.bus.Read(regCR1)
	h.bus.Write(regCR1, cr1&^cr1UE)
	cr1 = apply(cr1)
	h.bus.Write(regCR1, cr1)

	h.state = prev
	return nil
}

// Configure applies the full frame and FIFO setup and enables the peripheral
// with transmitter and receiver on.
func (h *Handle) Configure(cfg Config) error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	err := h.reconfigure(func(cr1 uint32) uint32 {
		cr1 = withFormat(cr1, cfg.WordLength, cfg.Parity)
		if cfg.FIFOMode {
			cr1 |= cr1FIFOEN
		} else {
			cr1 &^= cr1FIFOEN
		}
		h.writeAddressLength(cfg.AddressLength)
		regs.WriteField(h.bus, regCR3, cr3TXFTCFG, uint32(cfg.TxThreshold))
		regs.WriteField(h.bus, regCR3, cr3RXFTCFG, uint32(cfg.RxThreshold))

		h.cfg = cfg
		h.mask = ComputeMask(cfg.WordLength, cfg.Parity)
		h.updateNbData()
		return cr1 | cr1UE | cr1TE | cr1RE
	})
	if err != nil {
		return err
	}
	h.state = StateReady
	return nil
}

// SetFormat changes word length and parity and recomputes the data mask.
func (h *Handle) SetFormat(wl WordLength, p Parity) error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if !wl.Valid() || !p.Valid() {
		return errcode.InvalidParams
	}
	return h.reconfigure(func(cr1 uint32) uint32 {
		h.cfg.WordLength = wl
		h.cfg.Parity = p
		h.mask = ComputeMask(wl, p)
		return withFormat(cr1, wl, p)
	})
}

func withFormat(cr1 uint32, wl WordLength, p Parity) uint32 {
	cr1 &^= cr1M0 | cr1M1 | cr1PCE | cr1PS
	switch wl {
	case WordLength9:
		cr1 |= cr1M0
	case WordLength7:
		cr1 |= cr1M1
	}
	switch p {
	case ParityEven:
		cr1 |= cr1PCE
	case ParityOdd:
		cr1 |= cr1PCE | cr1PS
	}
	return cr1
}

// SetFifoThreshold sets the transmit or receive FIFO threshold. Only the
// selected CR3 field changes; an invalid threshold leaves it untouched.
func (h *Handle) SetFifoThreshold(t Threshold, dir Direction) error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if !t.Valid() || dir > DirRx {
		return errcode.InvalidParams
	}
	return h.reconfigure(func(cr1 uint32) uint32 {
		regs.WriteField(h.bus, regCR3, ThresholdField(dir), uint32(t))
		if dir == DirRx {
			h.cfg.RxThreshold = t
		} else {
			h.cfg.TxThreshold = t
		}
		h.updateNbData()
		return cr1
	})
}

func (h *Handle) SetTxFifoThreshold(t Threshold) error { return h.SetFifoThreshold(t, DirTx) }
func (h *Handle) SetRxFifoThreshold(t Threshold) error { return h.SetFifoThreshold(t, DirRx) }

// FifoThreshold reads the threshold currently programmed for dir.
func (h *Handle) FifoThreshold(dir Direction) Threshold {
	return Threshold(regs.ReadField(h.bus, regCR3, ThresholdField(dir)))
}

func (h *Handle) EnableFifoMode() error  { return h.setFifoMode(true) }
func (h *Handle) DisableFifoMode() error { return h.setFifoMode(false) }

func (h *Handle) setFifoMode(on bool) error {
	return h.reconfigure(func(cr1 uint32) uint32 {
		h.cfg.FIFOMode = on
		h.updateNbData()
		if on {
			return cr1 | cr1FIFOEN
		}
		return cr1 &^ cr1FIFOEN
	})
}

// FifoMode reports whether FIFO mode is on in hardware.
func (h *Handle) FifoMode() bool { return regs.HasBits(h.bus, regCR1, cr1FIFOEN) }

// SetAddressLength selects 4-bit or 7-bit address detection for
// multiprocessor mode.
func (h *Handle) SetAddressLength(a AddressLength) error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	if !a.Valid() {
		return errcode.InvalidParams
	}
	return h.reconfigure(func(cr1 uint32) uint32 {
		h.writeAddressLength(a)
		h.cfg.AddressLength = a
		return cr1
	})
}

func (h *Handle) writeAddressLength(a AddressLength) {
	if a == Address7Bit {
		regs.SetBits(h.bus, regCR2, cr2ADDM7)
	} else {
		regs.ClearBits(h.bus, regCR2, cr2ADDM7)
	}
}

// Fraction of the FIFO depth per threshold encoding.
var (
	thresholdNum = [8]uint16{1, 1, 1, 3, 7, 1, 0, 0}
	thresholdDen = [8]uint16{8, 4, 2, 4, 8, 1, 1, 1}
)

// updateNbData recomputes how many items one FIFO service handles.
func (h *Handle) updateNbData() {
	if !h.cfg.FIFOMode {
		h.nbTx, h.nbRx = 1, 1
		return
	}
	tx := h.cfg.TxThreshold & 7
	rx := h.cfg.RxThreshold & 7
	h.nbTx = mathx.Frac(txFIFODepth, thresholdNum[tx], thresholdDen[tx])
	h.nbRx = mathx.Frac(rxFIFODepth, thresholdNum[rx], thresholdDen[rx])
}

// NbDataToProcess returns the per-service item counts for tx and rx.
func (h *Handle) NbDataToProcess() (tx, rx uint16) { return h.nbTx, h.nbRx }

// DeInit disables the peripheral, clears its configuration registers and
// returns the handle to Reset. Safe in any state.
func (h *Handle) DeInit() error {
	if !h.valid() {
		return errcode.InvalidHandle
	}
	h.bus.Write(regCR1, 0)
	h.bus.Write(regCR2, 0)
	h.bus.Write(regCR3, 0)
	h.cfg = Config{}
	h.mask = 0
	h.nbTx, h.nbRx = 1, 1
	h.state = StateReset
	h.locked.Store(false)
	return nil
}

func (h *Handle) Mask() uint16   { return h.mask }
func (h *Handle) Config() Config { return h.cfg }
func (h *Handle) State() State   { return h.state }
