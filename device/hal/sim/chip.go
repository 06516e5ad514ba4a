package sim

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Never disables a simulated completion: the awaited bit is never raised.
const Never = -1

// Trace call names recorded by the chip.
const (
	CallISB = "barrier.isb"
	CallDSB = "barrier.dsb"
)

// ChipID holds the four identification words read for errata selection.
type ChipID struct {
	Part     uint32
	Variant  uint32
	Revision uint32
	Minor    uint32
}

// Common chip identities.
var (
	ChipNRF52840EngA = ChipID{Part: 0x08, Variant: 0x00, Revision: 0x00, Minor: 0x00}
	ChipNRF52840EngB = ChipID{Part: 0x08, Variant: 0x00, Revision: 0x10, Minor: 0x00}
	ChipNRF52840EngC = ChipID{Part: 0x08, Variant: 0x00, Revision: 0x20, Minor: 0x00}
	ChipNRF52832     = ChipID{Part: 0x06, Variant: 0x00, Revision: 0x30, Minor: 0x00}
)

// Options configures a simulated chip.
type Options struct {
	// Recorder receives every store and, if enabled on it, every load.
	Recorder *trace.Recorder

	// ReadyDelay is the number of EVENTCAUSE reads after USBD.ENABLE is set
	// before EVENTCAUSE.READY is raised. Zero raises it on the enable write;
	// Never leaves it clear.
	ReadyDelay int

	// ClockDelay is the number of running-state polls after an HFCLK start
	// before the clock reports running. Zero starts it on the request;
	// Never leaves it stopped.
	ClockDelay int

	// ID selects the chip identification words.
	ID ChipID

	// USBRegStatus is the latched regulator status at power-on.
	USBRegStatus regs.USBRegStatus

	// ErrataUnlocked starts the errata register block unlocked.
	ErrataUnlocked bool
}

// Register is a snapshot of one simulated register.
type Register struct {
	Addr  uintptr
	Name  string
	Value uint32
}

// Chip is a simulated nRF52840 address space. It implements [hal.Bus] and
// [hal.Barrier] and applies the side effects of the registers the USBD
// power controller touches. Every other address behaves as plain memory.
//
// Chip is safe for concurrent use, though the controller drives it from a
// single context.
type Chip struct {
	mutex sync.Mutex
	opts  Options
	rec   *trace.Recorder
	mem   map[uintptr]uint32

	readyCountdown int // EVENTCAUSE reads until READY; <0 when idle
	clockCountdown int // running polls until HFCLK runs; <0 when idle
	errataUnlocked bool

	clockStarts int
	clockStops  int
}

// NewChip returns a simulated chip in its power-on state.
func NewChip(opts Options) *Chip {
	c := &Chip{opts: opts, rec: opts.Recorder}
	c.reset()
	return c
}

// Reset returns the chip to its power-on state. Recorded events are kept.
func (c *Chip) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.reset()
}

func (c *Chip) reset() {
	c.mem = map[uintptr]uint32{
		regs.ChipIDPart:        c.opts.ID.Part,
		regs.ChipIDVariant:     c.opts.ID.Variant,
		regs.ChipIDRevision:    c.opts.ID.Revision,
		regs.ChipIDMinor:       c.opts.ID.Minor,
		regs.PowerUSBRegStatus: uint32(c.opts.USBRegStatus),
	}
	c.readyCountdown = -1
	c.clockCountdown = -1
	c.errataUnlocked = c.opts.ErrataUnlocked
	c.clockStarts = 0
	c.clockStops = 0
}

// Recorder returns the trace recorder, which may be nil.
func (c *Chip) Recorder() *trace.Recorder {
	return c.rec
}

// Load32 implements hal.Bus.
func (c *Chip) Load32(addr uintptr) uint32 {
	c.mutex.Lock()
	v := c.load(addr)
	c.mutex.Unlock()
	c.rec.Load(addr, v)
	return v
}

func (c *Chip) load(addr uintptr) uint32 {
	switch {
	case addr == regs.USBDEventCause:
		if c.readyCountdown > 0 {
			c.readyCountdown--
			if c.readyCountdown == 0 {
				c.raiseReady()
			}
		}
	case addr == regs.USBDIntEnSet || addr == regs.USBDIntEnClr:
		return c.mem[regs.USBDIntEn]
	case addr == regs.ClockHFClkStat:
		c.pollClock()
	case addr == regs.ErrataLock:
		if c.errataUnlocked {
			return 1
		}
		return regs.ErrataLockedWitness
	case inBlock(addr, regs.NVICICER):
		return c.mem[addr-regs.NVICICER+regs.NVICISER]
	case inBlock(addr, regs.NVICICPR):
		return c.mem[addr-regs.NVICICPR+regs.NVICISPR]
	}
	return c.mem[addr]
}

// Store32 implements hal.Bus.
func (c *Chip) Store32(addr uintptr, v uint32) {
	c.rec.Store(addr, v)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.store(addr, v)
}

func (c *Chip) store(addr uintptr, v uint32) {
	switch {
	case addr == regs.USBDEnable:
		c.mem[addr] = v & 1
		if v&1 == 0 {
			c.readyCountdown = -1
			return
		}
		switch {
		case c.opts.ReadyDelay == 0:
			c.raiseReady()
		case c.opts.ReadyDelay > 0:
			c.readyCountdown = c.opts.ReadyDelay
		}
	case addr == regs.USBDPullup:
		c.mem[addr] = v & 1
	case addr == regs.USBDEventCause:
		c.mem[addr] &^= v
	case addr == regs.USBDIntEnSet:
		c.mem[regs.USBDIntEn] |= v
	case addr == regs.USBDIntEnClr:
		c.mem[regs.USBDIntEn] &^= v
	case addr == regs.ClockTasksHFClkStart:
		if v != 0 {
			c.startClock()
		}
	case addr == regs.ClockTasksHFClkStop:
		if v != 0 {
			c.stopClock()
		}
	case addr == regs.ErrataLock:
		if v == regs.ErrataUnlockKey {
			c.errataUnlocked = !c.errataUnlocked
		}
	case inBlock(addr, regs.NVICISER):
		c.mem[addr] |= v
	case inBlock(addr, regs.NVICICER):
		c.mem[addr-regs.NVICICER+regs.NVICISER] &^= v
	case inBlock(addr, regs.NVICISPR):
		c.mem[addr] |= v
	case inBlock(addr, regs.NVICICPR):
		c.mem[addr-regs.NVICICPR+regs.NVICISPR] &^= v
	default:
		c.mem[addr] = v
	}
}

func inBlock(addr, base uintptr) bool {
	return addr >= base && addr < base+0x20 && (addr-base)%4 == 0
}

func (c *Chip) raiseReady() {
	c.readyCountdown = -1
	c.mem[regs.USBDEventCause] |= uint32(regs.EventCauseReady)
	pkg.LogDebug(pkg.ComponentSim, "usbd ready")
}

func (c *Chip) startClock() {
	c.clockStarts++
	if c.clockRunning() || c.clockCountdown > 0 {
		return
	}
	switch {
	case c.opts.ClockDelay == 0:
		c.runClock()
	case c.opts.ClockDelay > 0:
		c.clockCountdown = c.opts.ClockDelay
	}
}

func (c *Chip) stopClock() {
	c.clockStops++
	c.clockCountdown = -1
	c.mem[regs.ClockHFClkStat] = 0
	pkg.LogDebug(pkg.ComponentSim, "hfclk stopped")
}

func (c *Chip) runClock() {
	c.clockCountdown = -1
	c.mem[regs.ClockHFClkStat] = uint32(regs.HFClkStatHighAccuracy)
	c.mem[regs.ClockEventsHFClkStarted] = 1
	pkg.LogDebug(pkg.ComponentSim, "hfclk running")
}

func (c *Chip) clockRunning() bool {
	return regs.HFClkStat(c.mem[regs.ClockHFClkStat])&regs.HFClkStatRunning != 0
}

// pollClock advances a pending clock start by one poll.
func (c *Chip) pollClock() {
	if c.clockCountdown > 0 {
		c.clockCountdown--
		if c.clockCountdown == 0 {
			c.runClock()
		}
	}
}

// InstructionSync implements hal.Barrier.
func (c *Chip) InstructionSync() {
	c.rec.Call(CallISB)
}

// DataSync implements hal.Barrier.
func (c *Chip) DataSync() {
	c.rec.Call(CallDSB)
}

// Peek reads addr without side effects or tracing.
func (c *Chip) Peek(addr uintptr) uint32 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	switch addr {
	case regs.ErrataLock:
		if c.errataUnlocked {
			return 1
		}
		return regs.ErrataLockedWitness
	case regs.USBDIntEnSet, regs.USBDIntEnClr:
		return c.mem[regs.USBDIntEn]
	}
	return c.mem[addr]
}

// Poke writes addr without side effects or tracing.
func (c *Chip) Poke(addr uintptr, v uint32) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if addr == regs.ErrataLock {
		c.errataUnlocked = v != regs.ErrataLockedWitness
		return
	}
	c.mem[addr] = v
}

// SetUSBRegStatus latches a new regulator status, as the POWER peripheral
// does when VBUS appears or the regulator settles.
func (c *Chip) SetUSBRegStatus(st regs.USBRegStatus) {
	c.Poke(regs.PowerUSBRegStatus, uint32(st))
}

// ErrataUnlocked reports the current state of the errata register lock.
func (c *Chip) ErrataUnlocked() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.errataUnlocked
}

// ClockRunning reports whether HFCLK runs, without advancing a pending start.
func (c *Chip) ClockRunning() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.clockRunning()
}

// ClockStarts returns the number of HFCLK start requests seen, from either
// the CLOCK task or the SoftDevice.
func (c *Chip) ClockStarts() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.clockStarts
}

// ClockStops returns the number of HFCLK stop requests seen.
func (c *Chip) ClockStops() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.clockStops
}

// Dump returns every register holding a value, in address order.
func (c *Chip) Dump() []Register {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	addrs := maps.Keys(c.mem)
	slices.Sort(addrs)
	out := make([]Register, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, Register{Addr: a, Name: regs.Name(a), Value: c.mem[a]})
	}
	return out
}

var (
	_ hal.Bus     = (*Chip)(nil)
	_ hal.Barrier = (*Chip)(nil)
)
