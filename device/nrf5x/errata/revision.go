package errata

import (
	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
)

// Stepping is an nRF52840 silicon revision.
type Stepping uint8

// nRF52840 steppings.
const (
	SteppingUnknown Stepping = iota
	SteppingEngA
	SteppingEngB
	SteppingEngC
	SteppingEngD
)

// String returns the stepping name.
func (s Stepping) String() string {
	switch s {
	case SteppingEngA:
		return "Engineering A"
	case SteppingEngB:
		return "Engineering B"
	case SteppingEngC:
		return "Engineering C"
	case SteppingEngD:
		return "Engineering D"
	default:
		return "unknown"
	}
}

// Revision identifies the chip from its identification words. Nothing is
// cached: each query reads the bus.
type Revision struct {
	part     hal.U32
	variant  hal.U32
	revision hal.U32
	minor    hal.U32
}

// NewRevision returns a Revision reading from bus.
func NewRevision(bus hal.Bus) *Revision {
	return &Revision{
		part:     hal.NewReg32[uint32](bus, regs.ChipIDPart),
		variant:  hal.NewReg32[uint32](bus, regs.ChipIDVariant),
		revision: hal.NewReg32[uint32](bus, regs.ChipIDRevision),
		minor:    hal.NewReg32[uint32](bus, regs.ChipIDMinor),
	}
}

// Is52840 reports whether the chip is an nRF52840.
func (r *Revision) Is52840() bool {
	return r.part.Get()&0xFF == 0x08 && r.variant.Get()&0x0F == 0x00
}

// Stepping returns the nRF52840 stepping, or SteppingUnknown for other
// parts and unrecognised revisions.
func (r *Revision) Stepping() Stepping {
	if !r.Is52840() || r.minor.Get()&0xF0 != 0x00 {
		return SteppingUnknown
	}
	switch r.revision.Get() & 0xF0 {
	case 0x00:
		return SteppingEngA
	case 0x10:
		return SteppingEngB
	case 0x20:
		return SteppingEngC
	case 0x30:
		return SteppingEngD
	default:
		return SteppingUnknown
	}
}

// Applies implements Checker.
func (r *Revision) Applies(n Number) bool {
	if !r.Is52840() {
		return false
	}
	switch n {
	case Errata104, Errata154:
		return r.Stepping() == SteppingEngA
	case Errata166, Errata171:
		return true
	case Errata187:
		switch r.Stepping() {
		case SteppingEngB, SteppingEngC, SteppingEngD:
			return true
		}
	}
	return false
}

var _ Checker = (*Revision)(nil)
