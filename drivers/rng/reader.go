package rng

import "io"

// Reader adapts a Ready handle to io.Reader. Each 32-bit sample fills up to
// four bytes, least significant first. A failed generation ends the Read
// with the bytes gathered so far; Reader does not retry.
type Reader struct {
	h *Handle
}

func NewReader(h *Handle) *Reader { return &Reader{h: h} }

var _ io.Reader = (*Reader)(nil)

func (r *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		v, err := r.h.GenerateRandomNumber()
		if err != nil {
			return n, err
		}
		for i := 0; i < 4 && n < len(p); i++ {
			p[n] = byte(v >> (8 * i))
			n++
		}
	}
	return n, nil
}

// Uint64 draws two samples, high word first.
func (h *Handle) Uint64() (uint64, error) {
	hi, err := h.GenerateRandomNumber()
	if err != nil {
		return 0, err
	}
	lo, err := h.GenerateRandomNumber()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}
