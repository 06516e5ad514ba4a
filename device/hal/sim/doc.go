// Package sim provides a simulated nRF52840 for exercising the USBD power
// controller without hardware.
//
// [Chip] implements [github.com/ardnew/usbdpower/device/hal.Bus] over an
// in-memory address space and models the register side effects the
// bring-up sequence depends on:
//
//   - USBD.ENABLE raises EVENTCAUSE.READY after a configurable number of reads
//   - EVENTCAUSE is write-one-to-clear
//   - INTENSET and INTENCLR set and clear bits of INTEN
//   - CLOCK.TASKS_HFCLKSTART starts HFCLK after a configurable number of polls
//   - NVIC set/clear-enable and set/clear-pending words
//   - the errata register block toggles its lock on every key write
//
// [SoftDevice] models the radio stack's HFCLK arbitration and power event
// forwarding on top of a Chip.
//
// Completion delays count polls rather than wall time, so tests are
// deterministic and the unbounded hardware waits still terminate. Setting a
// delay to [Never] simulates silicon that never completes.
package sim
