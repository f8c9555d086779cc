package regs

import "sync"

// ReadHook observes a read of off whose stored value is cur and returns the
// value the caller sees. It may mutate the File (e.g. clear a status flag).
type ReadHook func(f *File, off, cur uint32) uint32

// WriteHook receives a write of v to off and returns the value to store.
// Returning the previous value models a write the hardware ignores.
type WriteHook func(f *File, off, prev, v uint32) uint32

// File is an in-memory register window with optional per-register hooks.
// It stands in for hardware in host builds and tests.
type File struct {
	mu     sync.Mutex
	words  map[uint32]uint32
	reads  map[uint32]ReadHook
	writes map[uint32]WriteHook

	nRead  map[uint32]int
	nWrite map[uint32]int
}

// NewFile returns an empty register window (all registers read as zero).
func NewFile() *File {
	return &File{
		words:  make(map[uint32]uint32),
		reads:  make(map[uint32]ReadHook),
		writes: make(map[uint32]WriteHook),
		nRead:  make(map[uint32]int),
		nWrite: make(map[uint32]int),
	}
}

var _ Bus = (*File)(nil)

func (f *File) Read(off uint32) uint32 {
	f.mu.Lock()
	h := f.reads[off]
	cur := f.words[off]
	f.nRead[off]++
	f.mu.Unlock()
	if h == nil {
		return cur
	}
	return h(f, off, cur)
}

func (f *File) Write(off uint32, v uint32) {
	f.mu.Lock()
	h := f.writes[off]
	prev := f.words[off]
	f.nWrite[off]++
	f.mu.Unlock()
	if h != nil {
		v = h(f, off, prev, v)
	}
	f.Poke(off, v)
}

// OnRead installs (or with nil removes) a read hook for off.
func (f *File) OnRead(off uint32, h ReadHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.reads, off)
		return
	}
	f.reads[off] = h
}

// OnWrite installs (or with nil removes) a write hook for off.
func (f *File) OnWrite(off uint32, h WriteHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.writes, off)
		return
	}
	f.writes[off] = h
}

// Peek returns the stored value without hooks or counting.
func (f *File) Peek(off uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.words[off]
}

// Poke stores v without hooks or counting.
func (f *File) Poke(off uint32, v uint32) {
	f.mu.Lock()
	f.words[off] = v
	f.mu.Unlock()
}

// SetBits and ClearBits alter stored bits without hooks; used to model
// hardware-driven status changes.
func (f *File) SetBits(off, mask uint32) {
	f.mu.Lock()
	f.words[off] |= mask
	f.mu.Unlock()
}

func (f *File) ClearBits(off, mask uint32) {
	f.mu.Lock()
	f.words[off] &^= mask
	f.mu.Unlock()
}

// Reads and Writes report access counts for off.
func (f *File) Reads(off uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nRead[off]
}

func (f *File) Writes(off uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nWrite[off]
}
