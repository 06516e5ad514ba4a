package errata

import (
	"sync"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Config holds the collaborators of an Applier.
type Config struct {
	// Bus reaches the patched registers. Required.
	Bus hal.Bus

	// Checker selects the workarounds. Required.
	Checker Checker

	// Barrier is issued after the errata 166 patch. Defaults to hal.NopBarrier.
	Barrier hal.Barrier

	// Locker guards each patch sequence against other execution contexts.
	// Defaults to a private mutex; on hardware pass a critical section that
	// masks interrupts.
	Locker sync.Locker
}

type write struct {
	reg hal.U32
	v   uint32
}

// Applier patches and reverts the USBD errata registers.
type Applier struct {
	check   Checker
	barrier hal.Barrier
	lock    sync.Locker

	key  hal.U32
	e171 hal.U32
	e187 hal.U32
	e166 [2]hal.U32
}

// New returns an Applier.
func New(cfg Config) *Applier {
	a := &Applier{
		check:   cfg.Checker,
		barrier: cfg.Barrier,
		lock:    cfg.Locker,
		key:     hal.NewReg32[uint32](cfg.Bus, regs.ErrataLock),
		e171:    hal.NewReg32[uint32](cfg.Bus, regs.Errata171Target),
		e187:    hal.NewReg32[uint32](cfg.Bus, regs.Errata187Target),
		e166: [2]hal.U32{
			hal.NewReg32[uint32](cfg.Bus, regs.Errata166Addr0),
			hal.NewReg32[uint32](cfg.Bus, regs.Errata166Addr1),
		},
	}
	if a.barrier == nil {
		a.barrier = hal.NopBarrier{}
	}
	if a.lock == nil {
		a.lock = new(sync.Mutex)
	}
	return a
}

// Applies reports whether n applies, asking the Checker afresh.
func (a *Applier) Applies(n Number) bool {
	return a.check.Applies(n)
}

// BeforeEnable applies the workarounds that must be in place before
// USBD.ENABLE is set: 187, then 171.
func (a *Applier) BeforeEnable() {
	if a.check.Applies(Errata187) {
		a.unlocked(write{a.e187, regs.Errata187Apply})
		pkg.LogDebug(pkg.ComponentErrata, "applied", "errata", Errata187)
	}
	if a.check.Applies(Errata171) {
		a.unlocked(write{a.e171, regs.Errata171Apply})
		pkg.LogDebug(pkg.ComponentErrata, "applied", "errata", Errata171)
	}
}

// AfterReady runs once the peripheral reports ready. It reverts 171 and
// 187 to their defaults, then applies 166 followed by an instruction and a
// data barrier.
func (a *Applier) AfterReady() {
	if a.check.Applies(Errata171) {
		a.unlocked(write{a.e171, regs.Errata171Revert})
		pkg.LogDebug(pkg.ComponentErrata, "reverted", "errata", Errata171)
	}
	if a.check.Applies(Errata187) {
		a.unlocked(write{a.e187, regs.Errata187Revert})
		pkg.LogDebug(pkg.ComponentErrata, "reverted", "errata", Errata187)
	}
	if a.check.Applies(Errata166) {
		a.apply166()
		pkg.LogDebug(pkg.ComponentErrata, "applied", "errata", Errata166)
	}
}

// unlocked writes the payload through the errata register lock. If the lock
// reads as locked the payload is bracketed by two key writes, the second
// restoring the lock; otherwise the payload is written with no key at all.
func (a *Applier) unlocked(payload ...write) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.key.Get() == regs.ErrataLockedWitness {
		a.key.Set(regs.ErrataUnlockKey)
		for _, w := range payload {
			w.reg.Set(w.v)
		}
		a.key.Set(regs.ErrataUnlockKey)
		return
	}
	for _, w := range payload {
		w.reg.Set(w.v)
	}
}

func (a *Applier) apply166() {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.e166[0].Set(regs.Errata166Value0)
	a.e166[1].Set(regs.Errata166Value1)
	a.barrier.InstructionSync()
	a.barrier.DataSync()
}
