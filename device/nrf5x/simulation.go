package nrf5x

import (
	"context"

	"github.com/ardnew/usbdpower/config"
	"github.com/ardnew/usbdpower/device/hal/sim"
	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x/errata"
	"github.com/ardnew/usbdpower/device/nrf5x/power"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Simulation is a System running on a simulated chip.
type Simulation struct {
	*System

	Profile    config.Profile
	Chip       *sim.Chip
	SoftDevice *sim.SoftDevice
	Recorder   *trace.Recorder
}

// NewSimulation builds a simulated chip and System as described by p.
// rec may be nil to disable tracing.
func NewSimulation(p config.Profile, rec *trace.Recorder) *Simulation {
	chip := sim.NewChip(p.SimOptions(rec))
	s := &Simulation{Profile: p, Chip: chip, Recorder: rec}

	cfg := Config{
		Bus:            chip,
		Barrier:        chip,
		Poller:         p.Poller(),
		Checker:        p.Checker(errata.NewRevision(chip)),
		SenseRegulator: p.SenseRegulator,
		Priority:       p.IRQPriority,
	}
	if p.SoftDevice.Present {
		s.SoftDevice = sim.NewSoftDevice(chip, p.SoftDevice.Enabled)
		cfg.SoftDevice = s.SoftDevice
	}
	s.System = New(cfg)

	pkg.LogDebug(pkg.ComponentSim, "simulation ready", "profile", p.Name,
		"stepping", errata.NewRevision(chip).Stepping())
	return s
}

// Run delivers events in order and stops at the first error.
func (s *Simulation) Run(ctx context.Context, events ...power.Event) error {
	for _, ev := range events {
		if err := s.Power.HandlePowerEventContext(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Cable simulates plugging in (on) or unplugging the USB cable. It latches
// the regulator status the way the POWER peripheral does and delivers the
// resulting events.
func (s *Simulation) Cable(ctx context.Context, on bool) error {
	if !on {
		s.Chip.SetUSBRegStatus(0)
		return s.Run(ctx, power.EventRemoved)
	}
	s.Chip.SetUSBRegStatus(regs.USBRegStatusVBUSDetect | regs.USBRegStatusOutputRdy)
	return s.Run(ctx, power.EventDetected, power.EventReady)
}
