// Package power is the nRF5x USBD power-event state machine.
//
// A [Controller] reacts to the three USB power events and walks the USBD
// peripheral through the start-up sequence required by the silicon:
//
//	Detected: clear READY cause, errata 187/171, ENABLE=1, request HFCLK
//	Ready:    wait READY, errata revert + 166, ISOSPLIT, INTEN, NVIC,
//	          wait HFCLK, assert pull-up
//	Removed:  release pull-up, mask NVIC, clear INTEN, ENABLE=0, release HFCLK
//
// The states Disabled, Enabling and Active are never stored. [Controller.State]
// derives them from the peripheral registers on demand.
//
// # Failure surfaces
//
// Nothing in the sequence reports an error. Detected and Removed silently do
// nothing when the peripheral is already in the target state, and Ready
// blocks until the hardware completes. Pass a [hal.Bounded] poller and use
// [Controller.HandlePowerEventContext] to turn the two waits into errors.
package power
