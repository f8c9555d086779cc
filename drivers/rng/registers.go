package rng

import "periphhal/regs"

// Register offsets from the peripheral base.
const (
	regCR  = 0x00 // R/W control
	regSR  = 0x04 // R status
	regVAL = 0x08 // R value; reading pops it and clears SR.RNGRDY
)

// CR bits.
const (
	crDisable = 1 << 2 // RNG_DIS: set = peripheral stopped
)

// crDivider is the sampling clock enable divider. Writes land in a shadow
// register and are resynchronised into the TRNG clock domain; a write issued
// while a previous value is still crossing is dropped by the hardware.
var crDivider = regs.Field{Shift: 8, Width: 2}

// SR bits.
const (
	srReady = 1 << 0 // RNGRDY
)

// Exported offsets for simulators and board code.
const (
	OffsetCR  = regCR
	OffsetSR  = regSR
	OffsetVAL = regVAL

	CRDisable = crDisable
	SRReady   = srReady
)

// DividerField exposes the divider layout to simulators.
func DividerField() regs.Field { return crDivider }
