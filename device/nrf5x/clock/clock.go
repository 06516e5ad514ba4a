// Package clock requests and releases the high-frequency clock the USBD
// peripheral runs from.
//
// When a coexistence layer (the SoftDevice radio stack) is present and
// enabled it owns HFCLK, and every request, release and status query is
// routed through it. Otherwise the CLOCK peripheral is driven directly.
// Whether the layer is enabled is asked exactly once per operation and
// never cached, since it can be enabled or disabled at any time.
package clock

import (
	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Coexistence arbitrates HFCLK ownership between on-chip consumers.
type Coexistence interface {
	// Enabled reports whether the layer is active and owns HFCLK.
	Enabled() bool

	// HFClkRequest adds a request for HFCLK without waiting for it to run.
	HFClkRequest()

	// HFClkRelease drops a request for HFCLK.
	HFClkRelease()

	// HFClkIsRunning reports whether HFCLK runs.
	HFClkIsRunning() bool
}

// Manager controls HFCLK for the USBD peripheral.
type Manager struct {
	coex Coexistence

	stat    hal.Reg32[regs.HFClkStat]
	start   hal.U32
	stop    hal.U32
	started hal.U32
}

// New returns a Manager driving the CLOCK peripheral on bus. coex may be
// nil when no coexistence layer is linked in.
func New(bus hal.Bus, coex Coexistence) *Manager {
	return &Manager{
		coex:    coex,
		stat:    hal.NewReg32[regs.HFClkStat](bus, regs.ClockHFClkStat),
		start:   hal.NewReg32[uint32](bus, regs.ClockTasksHFClkStart),
		stop:    hal.NewReg32[uint32](bus, regs.ClockTasksHFClkStop),
		started: hal.NewReg32[uint32](bus, regs.ClockEventsHFClkStarted),
	}
}

func (m *Manager) arbitrated() bool {
	return m.coex != nil && m.coex.Enabled()
}

// Running reports whether HFCLK runs from the crystal. It never blocks.
func (m *Manager) Running() bool {
	return m.running(m.arbitrated())
}

func (m *Manager) running(arbitrated bool) bool {
	if arbitrated {
		return m.coex.HFClkIsRunning()
	}
	want := regs.HFClkStatHighAccuracy
	return m.stat.Get()&want == want
}

// Enable requests HFCLK. It does nothing if the clock already runs and
// otherwise returns without waiting for the clock to start; callers that
// need a running clock poll Running.
func (m *Manager) Enable() {
	arbitrated := m.arbitrated()
	if m.running(arbitrated) {
		pkg.LogDebug(pkg.ComponentClock, "hfclk already running")
		return
	}
	if arbitrated {
		m.coex.HFClkRequest()
		pkg.LogDebug(pkg.ComponentClock, "hfclk requested", "via", "coexistence")
		return
	}
	m.started.Set(0)
	m.start.Set(regs.Trigger)
	pkg.LogDebug(pkg.ComponentClock, "hfclk start triggered")
}

// Disable releases HFCLK without waiting for acknowledgement.
func (m *Manager) Disable() {
	if m.arbitrated() {
		m.coex.HFClkRelease()
		pkg.LogDebug(pkg.ComponentClock, "hfclk released", "via", "coexistence")
		return
	}
	m.stop.Set(regs.Trigger)
	pkg.LogDebug(pkg.ComponentClock, "hfclk stop triggered")
}
