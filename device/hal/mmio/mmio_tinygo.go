//go:build tinygo

package mmio

import (
	"device/arm"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"github.com/ardnew/usbdpower/device/hal"
)

// Bus accesses the physical address space.
type Bus struct{}

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// Load32 implements hal.Bus.
func (Bus) Load32(addr uintptr) uint32 {
	return reg(addr).Get()
}

// Store32 implements hal.Bus.
func (Bus) Store32(addr uintptr, v uint32) {
	reg(addr).Set(v)
}

// Barrier issues full-system instruction and data synchronization barriers.
type Barrier struct{}

// InstructionSync implements hal.Barrier.
func (Barrier) InstructionSync() {
	arm.Asm("isb 0xF")
}

// DataSync implements hal.Barrier.
func (Barrier) DataSync() {
	arm.Asm("dsb 0xF")
}

// CriticalSection is a sync.Locker that masks interrupts between Lock and
// Unlock. It does not nest; each patch sequence takes it once.
type CriticalSection struct {
	state interrupt.State
}

// Lock masks interrupts.
func (c *CriticalSection) Lock() {
	c.state = interrupt.Disable()
}

// Unlock restores the interrupt mask saved by Lock.
func (c *CriticalSection) Unlock() {
	interrupt.Restore(c.state)
}

var (
	_ hal.Bus     = Bus{}
	_ hal.Barrier = Barrier{}
)
