// Package nvic drives the Cortex-M nested vectored interrupt controller
// through a [hal.Bus].
package nvic

import (
	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Controller enables, disables and prioritizes interrupt lines.
// All operations are idempotent: the set/clear register blocks only act on
// the bits written as one.
type Controller struct {
	bus hal.Bus
}

// New returns a Controller on bus.
func New(bus hal.Bus) *Controller {
	return &Controller{bus: bus}
}

func word(base uintptr, irq uint32) uintptr {
	return base + uintptr(irq/32)*4
}

func bit(irq uint32) uint32 {
	return 1 << (irq % 32)
}

// Enable unmasks irq.
func (c *Controller) Enable(irq uint32) {
	c.bus.Store32(word(regs.NVICISER, irq), bit(irq))
	pkg.LogDebug(pkg.ComponentNVIC, "irq enabled", "irq", irq)
}

// Disable masks irq.
func (c *Controller) Disable(irq uint32) {
	c.bus.Store32(word(regs.NVICICER, irq), bit(irq))
	pkg.LogDebug(pkg.ComponentNVIC, "irq disabled", "irq", irq)
}

// ClearPending clears a latched request for irq.
func (c *Controller) ClearPending(irq uint32) {
	c.bus.Store32(word(regs.NVICICPR, irq), bit(irq))
}

// SetPriority sets the priority of irq. Only the top NVICPriorityBits of
// the priority byte are implemented, so prio is shifted into place.
func (c *Controller) SetPriority(irq uint32, prio uint8) {
	addr := regs.NVICIPR + uintptr(irq/4)*4
	shift := (irq % 4) * 8
	v := c.bus.Load32(addr)
	v &^= 0xFF << shift
	v |= uint32(prio<<(8-regs.NVICPriorityBits)) << shift
	c.bus.Store32(addr, v)
	pkg.LogDebug(pkg.ComponentNVIC, "irq priority", "irq", irq, "priority", prio)
}

// Enabled reports whether irq is unmasked.
func (c *Controller) Enabled(irq uint32) bool {
	return c.bus.Load32(word(regs.NVICISER, irq))&bit(irq) != 0
}

// Pending reports whether irq has a latched request.
func (c *Controller) Pending(irq uint32) bool {
	return c.bus.Load32(word(regs.NVICISPR, irq))&bit(irq) != 0
}

// Priority returns the priority of irq.
func (c *Controller) Priority(irq uint32) uint8 {
	addr := regs.NVICIPR + uintptr(irq/4)*4
	shift := (irq % 4) * 8
	return uint8(c.bus.Load32(addr)>>shift) >> (8 - regs.NVICPriorityBits)
}
