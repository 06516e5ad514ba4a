// Package mmio implements the hal interfaces on real Cortex-M silicon.
//
// It is only built by TinyGo. [Bus] performs volatile 32-bit accesses at
// absolute addresses, [Barrier] issues the ISB and DSB instructions, and
// [CriticalSection] masks interrupts for the duration of an errata patch
// sequence so that no higher-priority handler can touch the same registers.
package mmio
