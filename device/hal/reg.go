package hal

// Reg32 is a typed handle to one 32-bit register on a Bus.
//
// The type parameter lets register maps give each register its own bit-set
// type so that masks from one register cannot be written to another by
// accident. A Reg32 holds no cached state; every method touches the bus.
type Reg32[T ~uint32] struct {
	bus  Bus
	addr uintptr
}

// U32 is an untyped 32-bit register.
type U32 = Reg32[uint32]

// NewReg32 returns a handle to the register at addr.
func NewReg32[T ~uint32](bus Bus, addr uintptr) Reg32[T] {
	return Reg32[T]{bus: bus, addr: addr}
}

// Addr returns the absolute register address.
func (r Reg32[T]) Addr() uintptr {
	return r.addr
}

// Get reads the register.
func (r Reg32[T]) Get() T {
	return T(r.bus.Load32(r.addr))
}

// Set writes the register.
func (r Reg32[T]) Set(v T) {
	r.bus.Store32(r.addr, uint32(v))
}

// HasBits reports whether any bit of mask is set.
func (r Reg32[T]) HasBits(mask T) bool {
	return r.Get()&mask != 0
}

// SetBits performs a read-modify-write setting the bits of mask.
// Do not use on write-one-to-set or write-one-to-clear registers.
func (r Reg32[T]) SetBits(mask T) {
	r.Set(r.Get() | mask)
}

// ClearBits performs a read-modify-write clearing the bits of mask.
// Do not use on write-one-to-set or write-one-to-clear registers.
func (r Reg32[T]) ClearBits(mask T) {
	r.Set(r.Get() &^ mask)
}
