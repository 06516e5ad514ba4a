// Package nrf5x assembles the USBD power controller for an nRF52840.
//
// A [System] owns one instance each of the interrupt controller, the HFCLK
// manager, the errata applier and the power event controller, all sharing a
// single bus. On hardware the system is a process-wide singleton created by
// [Init] during start-up and never torn down; the power event handler of
// the board support package reaches it through [Get]. Tests and the
// simulator build private systems with [New] or [NewSimulation].
package nrf5x
