package uartex

import "periphhal/regs"

// Register offsets from the peripheral base.
const (
	regCR1 = 0x00
	regCR2 = 0x04
	regCR3 = 0x08
	regISR = 0x1C
	regICR = 0x20
	regRDR = 0x24 // reading pops one word and clears ISR.RXNE when empty
)

// CR1 bits.
const (
	cr1UE     = 1 << 0  // peripheral enable
	cr1RE     = 1 << 2  // receiver enable
	cr1TE     = 1 << 3  // transmitter enable
	cr1PS     = 1 << 9  // parity select: 0 even, 1 odd
	cr1PCE    = 1 << 10 // parity control enable
	cr1M0     = 1 << 12 // word length bit 0
	cr1M1     = 1 << 28 // word length bit 1
	cr1FIFOEN = 1 << 29 // FIFO mode enable
)

// CR2 bits.
const (
	cr2ADDM7 = 1 << 4 // 7-bit address detection
)

// CR3 FIFO threshold fields.
var (
	cr3RXFTCFG = regs.Field{Shift: 25, Width: 3}
	cr3TXFTCFG = regs.Field{Shift: 29, Width: 3}
)

// ISR / ICR bits.
const (
	isrIDLE   = 1 << 4
	isrRXNE   = 1 << 5
	icrIDLECF = 1 << 4
)

// FIFO depth in data items, both directions.
const (
	rxFIFODepth = 8
	txFIFODepth = 8
)

// Exported layout for simulators and board code.
const (
	OffsetCR1 = regCR1
	OffsetCR2 = regCR2
	OffsetCR3 = regCR3
	OffsetISR = regISR
	OffsetICR = regICR
	OffsetRDR = regRDR

	CR1Enable      = cr1UE
	CR1FIFOEnable  = cr1FIFOEN
	CR2AddrDetect7 = cr2ADDM7
	ISRIdle        = isrIDLE
	ISRRxNotEmpty  = isrRXNE
	ICRIdleClear   = icrIDLECF
)

// ThresholdField returns the CR3 field holding the threshold for dir.
func ThresholdField(dir Direction) regs.Field {
	if dir == DirRx {
		return cr3RXFTCFG
	}
	return cr3TXFTCFG
}
