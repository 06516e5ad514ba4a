package nrf5x

import (
	"sync"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/nrf5x/clock"
	"github.com/ardnew/usbdpower/device/nrf5x/errata"
	"github.com/ardnew/usbdpower/device/nrf5x/nvic"
	"github.com/ardnew/usbdpower/device/nrf5x/power"
	"github.com/ardnew/usbdpower/pkg"
)

// SoftDevice is a radio stack that arbitrates HFCLK and forwards USB power
// events.
type SoftDevice interface {
	clock.Coexistence
	power.Coexistence
}

// Config describes the platform a System runs on.
type Config struct {
	// Bus reaches every peripheral register. Required.
	Bus hal.Bus

	// Barrier is issued after the errata 166 patch.
	Barrier hal.Barrier

	// Locker guards errata patch sequences.
	Locker sync.Locker

	// Poller performs the hardware waits. Defaults to hal.Spin.
	Poller hal.Poller

	// SoftDevice is the radio stack, or nil.
	SoftDevice SoftDevice

	// Checker selects errata. Defaults to decoding the chip revision.
	Checker errata.Checker

	// SenseRegulator lets Init read POWER.USBREGSTATUS directly.
	SenseRegulator bool

	// Priority is the USBD interrupt priority; zero selects the default.
	Priority uint8
}

// System is a fully wired USBD power controller.
type System struct {
	IRQ    *nvic.Controller
	Clock  *clock.Manager
	Errata *errata.Applier
	Power  *power.Controller
}

// New wires a System. It performs no hardware access.
func New(cfg Config) *System {
	var (
		clockCoex clock.Coexistence
		powerCoex power.Coexistence
	)
	if cfg.SoftDevice != nil {
		clockCoex = cfg.SoftDevice
		powerCoex = cfg.SoftDevice
	}
	check := cfg.Checker
	if check == nil {
		check = errata.NewRevision(cfg.Bus)
	}

	s := &System{
		IRQ:   nvic.New(cfg.Bus),
		Clock: clock.New(cfg.Bus, clockCoex),
		Errata: errata.New(errata.Config{
			Bus:     cfg.Bus,
			Checker: check,
			Barrier: cfg.Barrier,
			Locker:  cfg.Locker,
		}),
	}
	s.Power = power.New(power.Config{
		Bus:            cfg.Bus,
		Clock:          s.Clock,
		Errata:         s.Errata,
		IRQ:            s.IRQ,
		Poller:         cfg.Poller,
		Coexistence:    powerCoex,
		SenseRegulator: cfg.SenseRegulator,
		Priority:       cfg.Priority,
	})
	return s
}

// HandlePowerEvent forwards ev to the power controller.
func (s *System) HandlePowerEvent(ev power.Event) {
	s.Power.HandlePowerEvent(ev)
}

var (
	system     *System
	systemOnce sync.Once
)

// Init creates the process-wide System from cfg and runs the power
// controller's Init. Only the first call has any effect; later calls return
// the existing System and ignore cfg.
func Init(cfg Config) *System {
	systemOnce.Do(func() {
		system = New(cfg)
		system.Power.Init()
		pkg.LogInfo(pkg.ComponentPower, "system initialized", "softdevice", cfg.SoftDevice != nil)
	})
	return system
}

// Get returns the process-wide System, or nil before Init.
func Get() *System {
	return system
}
