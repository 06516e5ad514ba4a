// Package hal defines the hardware access primitives used by the nRF5x USBD
// power controller.
//
// The controller never dereferences absolute addresses itself. Every
// register access goes through a [Bus], so the same sequencing code runs
// against silicon (see [github.com/ardnew/usbdpower/device/hal/mmio]) and
// against the simulated address space in
// [github.com/ardnew/usbdpower/device/hal/sim].
//
// # Primitives
//
//   - [Bus]: 32-bit load/store on a memory-mapped address space
//   - [Reg32]: a typed handle to one register on a Bus
//   - [Barrier]: instruction and data synchronization barriers
//   - [Poller]: the blocking wait used for hardware-ready conditions
//
// # Waiting on hardware
//
// Bring-up waits on two hardware conditions with no timeout. [Spin]
// reproduces that exactly. [Bounded] gives up after a poll count, a
// duration, or context cancellation and reports
// [github.com/ardnew/usbdpower/pkg.ErrWaitTimeout]:
//
//	p := hal.Bounded{MaxPolls: 1000}
//	if err := p.Wait(ctx, ready); errors.Is(err, pkg.ErrWaitTimeout) {
//	    // peripheral never reported ready
//	}
package hal
