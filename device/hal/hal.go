package hal

// Bus provides 32-bit access to a memory-mapped address space.
//
// On hardware every call is a single volatile load or store. Simulated
// implementations apply peripheral side effects (write-one-to-clear,
// task triggers) inside Store32, so callers must never batch or reorder
// accesses.
type Bus interface {
	// Load32 reads the word at addr.
	Load32(addr uintptr) uint32

	// Store32 writes v to the word at addr.
	Store32(addr uintptr, v uint32)
}

// Barrier issues processor synchronization barriers.
type Barrier interface {
	// InstructionSync flushes the pipeline (ISB).
	InstructionSync()

	// DataSync waits for all outstanding memory accesses (DSB).
	DataSync()
}

// NopBarrier is a Barrier that does nothing. Hosted builds use it when no
// simulated barrier is wired.
type NopBarrier struct{}

// InstructionSync does nothing.
func (NopBarrier) InstructionSync() {}

// DataSync does nothing.
func (NopBarrier) DataSync() {}

var _ Barrier = NopBarrier{}

// NopLocker is a sync.Locker that does nothing, for single-context
// systems where no other execution context can reach the guarded registers.
type NopLocker struct{}

// Lock does nothing.
func (NopLocker) Lock() {}

// Unlock does nothing.
func (NopLocker) Unlock() {}
