package regs

import (
	"sync"

	"tinygo.org/x/drivers"
)

// I2CBus reaches a register window through an I²C register bridge.
// The bridge takes an 8-bit sub-address (offset/4) followed by 32-bit
// little-endian words.
//
// Bus has no error return, so a failed transfer reads as zero and the first
// failure is latched until Err is called.
type I2CBus struct {
	i2c  drivers.I2C
	addr uint16

	mu  sync.Mutex
	err error
	w   [5]byte
	r   [4]byte
}

// NewI2CBus binds a bridge at the given 7-bit address.
func NewI2CBus(i2c drivers.I2C, addr uint16) *I2CBus {
	return &I2CBus{i2c: i2c, addr: addr}
}

var _ Bus = (*I2CBus)(nil)

func (b *I2CBus) Read(off uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.w[0] = byte(off >> 2)
	if err := b.i2c.Tx(b.addr, b.w[:1], b.r[:4]); err != nil {
		b.latch(err)
		return 0
	}
	return uint32(b.r[0]) | uint32(b.r[1])<<8 | uint32(b.r[2])<<16 | uint32(b.r[3])<<24
}

func (b *I2CBus) Write(off uint32, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.w[0] = byte(off >> 2)
	b.w[1] = byte(v)
	b.w[2] = byte(v >> 8)
	b.w[3] = byte(v >> 16)
	b.w[4] = byte(v >> 24)
	if err := b.i2c.Tx(b.addr, b.w[:5], nil); err != nil {
		b.latch(err)
	}
}

// Err returns and clears the first transfer error since the last call.
func (b *I2CBus) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}

func (b *I2CBus) latch(err error) {
	if b.err == nil {
		b.err = err
	}
}
