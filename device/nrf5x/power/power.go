package power

import (
	"context"
	"fmt"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Clock controls the high-frequency clock.
type Clock interface {
	Running() bool
	Enable()
	Disable()
}

// Errata applies silicon workarounds at the two fixed points of bring-up.
type Errata interface {
	BeforeEnable()
	AfterReady()
}

// InterruptController gates the USBD interrupt line.
type InterruptController interface {
	Enable(irq uint32)
	Disable(irq uint32)
	ClearPending(irq uint32)
	SetPriority(irq uint32, prio uint8)
}

// Coexistence is the radio stack's view of the USB power events. When it
// is present and enabled it owns the POWER peripheral, so event forwarding
// and the latched regulator status are read through it.
type Coexistence interface {
	Enabled() bool
	USBDetectedEnable(on bool)
	USBPowerReadyEnable(on bool)
	USBRemovedEnable(on bool)
	USBRegStatus() regs.USBRegStatus
}

// Config holds the collaborators of a Controller.
type Config struct {
	// Bus reaches the USBD and POWER registers. Required.
	Bus hal.Bus

	// Clock controls HFCLK. Required.
	Clock Clock

	// Errata applies the enable-time workarounds. Required.
	Errata Errata

	// IRQ gates the USBD interrupt line. Required.
	IRQ InterruptController

	// Poller performs the two hardware waits of the ready event.
	// Defaults to hal.Spin.
	Poller hal.Poller

	// Coexistence is the radio stack, or nil when none is linked in.
	Coexistence Coexistence

	// SenseRegulator makes Init read POWER.USBREGSTATUS directly when no
	// coexistence layer is active.
	SenseRegulator bool

	// Priority is the USBD interrupt priority. Zero selects
	// regs.USBDIRQPriority; levels reserved by the SoftDevice must not be used.
	Priority uint8
}

// Controller sequences USBD enable and disable in response to power
// events.
//
// It keeps no state of its own: whether the peripheral is enabled is read
// from USBD.ENABLE on every event. Controller is not safe for concurrent
// use; events must be delivered from one execution context at a time.
type Controller struct {
	clock  Clock
	errata Errata
	irq    InterruptController
	poll   hal.Poller
	coex   Coexistence

	senseRegulator bool
	priority       uint8

	enable     hal.U32
	pullup     hal.U32
	eventCause hal.Reg32[regs.EventCause]
	usbEvent   hal.U32
	isoSplit   hal.U32
	inten      hal.Reg32[regs.Inten]
	intenSet   hal.Reg32[regs.Inten]
	intenClr   hal.Reg32[regs.Inten]
	regStatus  hal.Reg32[regs.USBRegStatus]
}

// New returns a Controller. It performs no hardware access.
func New(cfg Config) *Controller {
	c := &Controller{
		clock:          cfg.Clock,
		errata:         cfg.Errata,
		irq:            cfg.IRQ,
		poll:           cfg.Poller,
		coex:           cfg.Coexistence,
		senseRegulator: cfg.SenseRegulator,
		priority:       cfg.Priority,

		enable:     hal.NewReg32[uint32](cfg.Bus, regs.USBDEnable),
		pullup:     hal.NewReg32[uint32](cfg.Bus, regs.USBDPullup),
		eventCause: hal.NewReg32[regs.EventCause](cfg.Bus, regs.USBDEventCause),
		usbEvent:   hal.NewReg32[uint32](cfg.Bus, regs.USBDEventsUSBEvent),
		isoSplit:   hal.NewReg32[uint32](cfg.Bus, regs.USBDISOSplit),
		inten:      hal.NewReg32[regs.Inten](cfg.Bus, regs.USBDIntEn),
		intenSet:   hal.NewReg32[regs.Inten](cfg.Bus, regs.USBDIntEnSet),
		intenClr:   hal.NewReg32[regs.Inten](cfg.Bus, regs.USBDIntEnClr),
		regStatus:  hal.NewReg32[regs.USBRegStatus](cfg.Bus, regs.PowerUSBRegStatus),
	}
	if c.poll == nil {
		c.poll = hal.Spin{}
	}
	if c.priority == 0 {
		c.priority = regs.USBDIRQPriority
	}
	return c
}

// Init prepares event delivery and always returns true.
//
// The regulator may already be up when the controller starts, in which case
// no event will ever be generated for it. Init therefore reads the latched
// regulator status, through the coexistence layer when it is active or
// directly when SenseRegulator is set, and synthesizes Detected and Ready
// for whatever it finds.
func (c *Controller) Init() bool {
	if err := c.InitContext(context.Background()); err != nil {
		pkg.LogError(pkg.ComponentPower, "init", "error", err)
	}
	return true
}

// InitContext is Init with a context for the ready-event waits.
func (c *Controller) InitContext(ctx context.Context) error {
	var status regs.USBRegStatus
	switch {
	case c.coex != nil && c.coex.Enabled():
		c.coex.USBDetectedEnable(true)
		c.coex.USBPowerReadyEnable(true)
		c.coex.USBRemovedEnable(true)
		status = c.coex.USBRegStatus()
	case c.senseRegulator:
		status = c.regStatus.Get()
	default:
		return nil
	}

	pkg.LogDebug(pkg.ComponentPower, "latched regulator status", "status", uint32(status))
	if status&regs.USBRegStatusVBUSDetect != 0 {
		if err := c.HandlePowerEventContext(ctx, EventDetected); err != nil {
			return err
		}
	}
	if status&regs.USBRegStatusOutputRdy != 0 {
		if err := c.HandlePowerEventContext(ctx, EventReady); err != nil {
			return err
		}
	}
	return nil
}

// InterruptEnable unmasks the USBD interrupt. port is ignored; there is
// one USBD instance.
func (c *Controller) InterruptEnable(port uint8) {
	c.irq.Enable(regs.USBDIRQ)
}

// InterruptDisable masks the USBD interrupt. port is ignored.
func (c *Controller) InterruptDisable(port uint8) {
	c.irq.Disable(regs.USBDIRQ)
}

// HandlePowerEvent runs the sequence for ev to completion. It must be called
// exactly once per physical event.
//
// Detected and Removed are no-ops if USBD.ENABLE already has the target
// value. Ready assumes Detected ran and blocks twice: until the peripheral
// reports EVENTCAUSE.READY, and until HFCLK runs. With the default Spin
// poller either wait hangs forever if the hardware never gets there; these
// are the only two failure modes of the controller.
func (c *Controller) HandlePowerEvent(ev Event) {
	if err := c.HandlePowerEventContext(context.Background(), ev); err != nil {
		pkg.LogError(pkg.ComponentPower, "power event", "event", ev, "error", err)
	}
}

// HandlePowerEventContext is HandlePowerEvent with a context for the ready
// waits. It returns an error only for an unknown event or when a bounded
// Poller gives up, in which case the sequence stops where it was.
func (c *Controller) HandlePowerEventContext(ctx context.Context, ev Event) error {
	switch ev {
	case EventDetected:
		c.detected()
		return nil
	case EventReady:
		return c.ready(ctx)
	case EventRemoved:
		c.removed()
		return nil
	default:
		return fmt.Errorf("%w: %d", pkg.ErrInvalidEvent, uint8(ev))
	}
}

func (c *Controller) detected() {
	if c.enable.Get() != regs.EnableDisabled {
		pkg.LogDebug(pkg.ComponentPower, "already enabled", "event", EventDetected)
		return
	}

	c.eventCause.Set(regs.EventCauseReady)
	c.errata.BeforeEnable()
	c.enable.Set(regs.EnableEnabled)
	c.clock.Enable()

	pkg.LogDebug(pkg.ComponentPower, "peripheral enabled", "event", EventDetected)
}

func (c *Controller) ready(ctx context.Context) error {
	ready := func() bool { return c.eventCause.HasBits(regs.EventCauseReady) }
	if err := c.poll.Wait(ctx, ready); err != nil {
		return fmt.Errorf("wait for usbd ready: %w", err)
	}
	c.eventCause.Set(regs.EventCauseReady)
	c.usbEvent.Set(0)

	c.errata.AfterReady()

	c.isoSplit.Set(regs.ISOSplitHalfIN)
	c.intenSet.Set(regs.IntenActive)

	c.irq.SetPriority(regs.USBDIRQ, c.priority)
	c.irq.ClearPending(regs.USBDIRQ)
	c.irq.Enable(regs.USBDIRQ)

	if err := c.poll.Wait(ctx, c.clock.Running); err != nil {
		return fmt.Errorf("wait for hfclk: %w", err)
	}

	c.pullup.Set(regs.PullupEnabled)

	pkg.LogDebug(pkg.ComponentPower, "pull-up asserted", "event", EventReady)
	return nil
}

func (c *Controller) removed() {
	if c.enable.Get() == regs.EnableDisabled {
		pkg.LogDebug(pkg.ComponentPower, "already disabled", "event", EventRemoved)
		return
	}

	// Transfers in flight are the upper stack's to abort.
	c.pullup.Set(regs.PullupDisabled)
	c.irq.Disable(regs.USBDIRQ)
	c.intenClr.Set(c.inten.Get())
	c.enable.Set(regs.EnableDisabled)
	c.clock.Disable()

	pkg.LogDebug(pkg.ComponentPower, "peripheral disabled", "event", EventRemoved)
}

// Enabled reports whether USBD.ENABLE is set.
func (c *Controller) Enabled() bool {
	return c.enable.Get() != regs.EnableDisabled
}

// State infers the controller state from USBD.ENABLE and USBD.USBPULLUP.
func (c *Controller) State() State {
	if c.enable.Get() == regs.EnableDisabled {
		return StateDisabled
	}
	if c.pullup.Get() == regs.PullupEnabled {
		return StateActive
	}
	return StateEnabling
}
