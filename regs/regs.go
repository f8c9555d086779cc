// Package regs models a peripheral's register window as an injected surface.
// Drivers address registers by byte offset from the peripheral base and never
// touch memory directly. I2CBus reaches a window through an I²C register
// bridge; File is an in-memory window with hooks for simulation.
package regs

// Bus is the raw 32-bit register access a driver needs.
// Reads may have side effects (e.g. popping a data register).
type Bus interface {
	Read(off uint32) uint32
	Write(off uint32, v uint32)
}

// Field describes a contiguous bit-field inside a register.
type Field struct {
	Shift uint8
	Width uint8
}

// Mask returns the in-place mask of the field.
func (f Field) Mask() uint32 { return ((1 << f.Width) - 1) << f.Shift }

// Get extracts the field value from a register word.
func (f Field) Get(reg uint32) uint32 { return (reg & f.Mask()) >> f.Shift }

// Put returns reg with the field replaced by v (excess bits of v are dropped).
func (f Field) Put(reg, v uint32) uint32 {
	return (reg &^ f.Mask()) | ((v << f.Shift) & f.Mask())
}

// Modify performs a read-modify-write: (current | set) &^ clear.
func Modify(b Bus, off, set, clear uint32) {
	cur := b.Read(off)
	b.Write(off, (cur|set)&^clear)
}

func SetBits(b Bus, off, mask uint32)   { Modify(b, off, mask, 0) }
func ClearBits(b Bus, off, mask uint32) { Modify(b, off, 0, mask) }

// HasBits reports whether all bits in mask are set.
func HasBits(b Bus, off, mask uint32) bool { return b.Read(off)&mask == mask }

// ReadField reads a single field.
func ReadField(b Bus, off uint32, f Field) uint32 { return f.Get(b.Read(off)) }

// WriteField replaces a single field, leaving the rest of the register intact.
func WriteField(b Bus, off uint32, f Field, v uint32) {
	b.Write(off, f.Put(b.Read(off), v))
}
