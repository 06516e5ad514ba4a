package power

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/hal/sim"
	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x/clock"
	"github.com/ardnew/usbdpower/device/nrf5x/errata"
	"github.com/ardnew/usbdpower/device/nrf5x/nvic"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

type fixtureOptions struct {
	chip       sim.Options
	softDevice bool
	check      errata.Checker
	poller     hal.Poller
	sense      bool
}

type fixture struct {
	chip *sim.Chip
	rec  *trace.Recorder
	sd   *sim.SoftDevice
	ctrl *Controller
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	rec := trace.NewRecorder()
	opts.chip.Recorder = rec
	if opts.chip.ID == (sim.ChipID{}) {
		opts.chip.ID = sim.ChipNRF52840EngB
	}
	chip := sim.NewChip(opts.chip)

	f := &fixture{chip: chip, rec: rec}

	var clockCoex clock.Coexistence
	var powerCoex Coexistence
	if opts.softDevice {
		f.sd = sim.NewSoftDevice(chip, true)
		clockCoex = f.sd
		powerCoex = f.sd
	}

	check := opts.check
	if check == nil {
		check = errata.NewRevision(chip)
	}

	f.ctrl = New(Config{
		Bus:            chip,
		Clock:          clock.New(chip, clockCoex),
		Errata:         errata.New(errata.Config{Bus: chip, Checker: check, Barrier: chip}),
		IRQ:            nvic.New(chip),
		Poller:         opts.poller,
		Coexistence:    powerCoex,
		SenseRegulator: opts.sense,
	})
	return f
}

// bringUp drives the controller to Active and discards the trace.
func (f *fixture) bringUp(t *testing.T) {
	t.Helper()
	f.ctrl.HandlePowerEvent(EventDetected)
	f.ctrl.HandlePowerEvent(EventReady)
	require.Equal(t, StateActive, f.ctrl.State())
	f.rec.Reset()
}

func isStore(addr uintptr, v uint32) func(trace.Event) bool {
	return func(e trace.Event) bool { return e.IsStore(addr) && e.Value == v }
}

var (
	nvicUSBDWord = uintptr(regs.USBDIRQ/32) * 4
	nvicUSBDBit  = uint32(1) << (regs.USBDIRQ % 32)
)

func TestParseEvent(t *testing.T) {
	for _, ev := range []Event{EventDetected, EventRemoved, EventReady} {
		got, err := ParseEvent(ev.String())
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
	_, err := ParseEvent("unplugged")
	assert.ErrorIs(t, err, pkg.ErrInvalidEvent)
	assert.Equal(t, "event(9)", Event(9).String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestEventNumbering(t *testing.T) {
	assert.Equal(t, Event(0), EventDetected)
	assert.Equal(t, Event(1), EventRemoved)
	assert.Equal(t, Event(2), EventReady)
}

func TestDetectedIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		pullup uint32
	}{
		{"enabling", regs.PullupDisabled},
		{"active", regs.PullupEnabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{})
			f.chip.Poke(regs.USBDEnable, regs.EnableEnabled)
			f.chip.Poke(regs.USBDPullup, tt.pullup)

			f.ctrl.HandlePowerEvent(EventDetected)

			assert.Empty(t, trace.Stores(f.rec.Events()))
			assert.Equal(t, 0, f.chip.ClockStarts())
		})
	}
}

func TestDetectedTwice(t *testing.T) {
	f := newFixture(t, fixtureOptions{softDevice: true})

	f.ctrl.HandlePowerEvent(EventDetected)
	n := f.rec.Len()
	f.ctrl.HandlePowerEvent(EventDetected)

	assert.Equal(t, n, f.rec.Len())
	assert.Equal(t, 1, f.sd.Requests())
}

func TestRemovedIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		pullup uint32
		inten  regs.Inten
	}{
		{"reset", 0, 0},
		{"stale registers", regs.PullupEnabled, regs.IntenActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{})
			f.chip.Poke(regs.USBDPullup, tt.pullup)
			f.chip.Poke(regs.USBDIntEn, uint32(tt.inten))

			f.ctrl.HandlePowerEvent(EventRemoved)

			assert.Empty(t, trace.Stores(f.rec.Events()))
			assert.Equal(t, 0, f.chip.ClockStops())
		})
	}
}

func TestDetectedSequence(t *testing.T) {
	f := newFixture(t, fixtureOptions{check: errata.Set{}})

	f.ctrl.HandlePowerEvent(EventDetected)

	stores := trace.Stores(f.rec.Events())
	require.Len(t, stores, 4)
	assert.True(t, isStore(regs.USBDEventCause, uint32(regs.EventCauseReady))(stores[0]))
	assert.True(t, isStore(regs.USBDEnable, regs.EnableEnabled)(stores[1]))
	assert.True(t, isStore(regs.ClockEventsHFClkStarted, 0)(stores[2]))
	assert.True(t, isStore(regs.ClockTasksHFClkStart, regs.Trigger)(stores[3]))
	assert.Equal(t, StateEnabling, f.ctrl.State())
}

func TestDetectedErrataBeforeEnable(t *testing.T) {
	f := newFixture(t, fixtureOptions{check: errata.Set{errata.Errata171: true, errata.Errata187: true}})

	f.ctrl.HandlePowerEvent(EventDetected)

	events := f.rec.Events()
	cause := trace.Index(events, isStore(regs.USBDEventCause, uint32(regs.EventCauseReady)))
	e187 := trace.Index(events, isStore(regs.Errata187Target, regs.Errata187Apply))
	e171 := trace.Index(events, isStore(regs.Errata171Target, regs.Errata171Apply))
	enable := trace.Index(events, isStore(regs.USBDEnable, regs.EnableEnabled))
	start := trace.Index(events, isStore(regs.ClockTasksHFClkStart, regs.Trigger))

	assert.Less(t, cause, e187)
	assert.Less(t, e187, e171)
	assert.Less(t, e171, enable)
	assert.Less(t, enable, start)
}

func TestReadySequence(t *testing.T) {
	checks := []struct {
		name  string
		check errata.Checker
	}{
		{"no errata", errata.Set{}},
		{"all errata", errata.Set{errata.Errata166: true, errata.Errata171: true, errata.Errata187: true}},
		{"eng B", nil},
	}

	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{check: tt.check, chip: sim.Options{ReadyDelay: 3, ClockDelay: 4}})
			f.ctrl.HandlePowerEvent(EventDetected)
			f.rec.Reset()

			f.ctrl.HandlePowerEvent(EventReady)

			events := f.rec.Events()
			stores := trace.Stores(events)
			require.NotEmpty(t, stores)

			inten := trace.StoresTo(events, regs.USBDIntEnSet)
			require.Len(t, inten, 1)
			assert.Equal(t, uint32(regs.IntenActive), inten[0].Value)
			assert.Equal(t, uint32(regs.IntenActive), f.chip.Peek(regs.USBDIntEn))

			last := stores[len(stores)-1]
			assert.True(t, isStore(regs.USBDPullup, regs.PullupEnabled)(last))
			assert.Equal(t, trace.LastIndex(events, func(trace.Event) bool { return true }),
				trace.Index(events, isStore(regs.USBDPullup, regs.PullupEnabled)))

			clear := trace.Index(events, isStore(regs.USBDEventCause, uint32(regs.EventCauseReady)))
			usbEvent := trace.Index(events, isStore(regs.USBDEventsUSBEvent, 0))
			iso := trace.Index(events, isStore(regs.USBDISOSplit, regs.ISOSplitHalfIN))
			set := trace.Index(events, isStore(regs.USBDIntEnSet, uint32(regs.IntenActive)))
			prio := trace.Index(events, func(e trace.Event) bool {
				return e.IsStore(regs.NVICIPR + uintptr(regs.USBDIRQ/4)*4)
			})
			pend := trace.Index(events, isStore(regs.NVICICPR+nvicUSBDWord, nvicUSBDBit))
			irq := trace.Index(events, isStore(regs.NVICISER+nvicUSBDWord, nvicUSBDBit))

			assert.Less(t, clear, usbEvent)
			assert.Less(t, usbEvent, iso)
			assert.Less(t, iso, set)
			assert.Less(t, set, prio)
			assert.Less(t, prio, pend)
			assert.Less(t, pend, irq)

			assert.Equal(t, uint32(0), f.chip.Peek(regs.USBDEventCause)&uint32(regs.EventCauseReady))
			assert.Equal(t, StateActive, f.ctrl.State())
		})
	}
}

func TestReadyErrataAfterCause(t *testing.T) {
	f := newFixture(t, fixtureOptions{check: errata.Set{errata.Errata166: true, errata.Errata171: true, errata.Errata187: true}})
	f.ctrl.HandlePowerEvent(EventDetected)
	f.rec.Reset()

	f.ctrl.HandlePowerEvent(EventReady)

	events := f.rec.Events()
	usbEvent := trace.Index(events, isStore(regs.USBDEventsUSBEvent, 0))
	r171 := trace.Index(events, isStore(regs.Errata171Target, regs.Errata171Revert))
	r187 := trace.Index(events, isStore(regs.Errata187Target, regs.Errata187Revert))
	dsb := trace.Index(events, func(e trace.Event) bool { return e.IsCall(sim.CallDSB) })
	iso := trace.Index(events, isStore(regs.USBDISOSplit, regs.ISOSplitHalfIN))

	assert.Less(t, usbEvent, r171)
	assert.Less(t, r171, r187)
	assert.Less(t, r187, dsb)
	assert.Less(t, dsb, iso)
}

func TestReadyInterruptLine(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	irq := nvic.New(f.chip)
	f.chip.Poke(regs.NVICISPR+nvicUSBDWord, nvicUSBDBit)

	f.ctrl.HandlePowerEvent(EventDetected)
	f.ctrl.HandlePowerEvent(EventReady)

	assert.True(t, irq.Enabled(regs.USBDIRQ))
	assert.False(t, irq.Pending(regs.USBDIRQ))
	assert.Equal(t, uint8(regs.USBDIRQPriority), irq.Priority(regs.USBDIRQ))
}

func TestRemovedSequence(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.bringUp(t)

	f.ctrl.HandlePowerEvent(EventRemoved)

	stores := trace.Stores(f.rec.Events())
	want := []struct {
		addr uintptr
		v    uint32
	}{
		{regs.USBDPullup, regs.PullupDisabled},
		{regs.NVICICER + nvicUSBDWord, nvicUSBDBit},
		{regs.USBDIntEnClr, uint32(regs.IntenActive)},
		{regs.USBDEnable, regs.EnableDisabled},
		{regs.ClockTasksHFClkStop, regs.Trigger},
	}
	require.Len(t, stores, len(want))
	for i, w := range want {
		assert.True(t, isStore(w.addr, w.v)(stores[i]), "store %d: got %s", i, trace.Format(stores[i], regs.Name))
	}

	assert.Equal(t, uint32(0), f.chip.Peek(regs.USBDIntEn))
	assert.False(t, f.chip.ClockRunning())
	assert.Equal(t, StateDisabled, f.ctrl.State())
}

func TestRemovedClearsExactlyEnabledSources(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.bringUp(t)

	extra := regs.IntenStarted | regs.IntenEndISOIn
	f.chip.Poke(regs.USBDIntEn, uint32(regs.IntenActive|extra))

	f.ctrl.HandlePowerEvent(EventRemoved)

	clr := trace.StoresTo(f.rec.Events(), regs.USBDIntEnClr)
	require.Len(t, clr, 1)
	assert.Equal(t, uint32(regs.IntenActive|extra), clr[0].Value)
}

func TestRemovedWithSoftDevice(t *testing.T) {
	f := newFixture(t, fixtureOptions{softDevice: true})
	f.bringUp(t)

	f.ctrl.HandlePowerEvent(EventRemoved)

	events := f.rec.Events()
	require.NotEmpty(t, events)
	assert.True(t, events[len(events)-1].IsCall(sim.CallSDHFClkRelease))
	assert.Equal(t, 0, f.sd.Requests())
}

func TestRemovedWhileEnabling(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.ctrl.HandlePowerEvent(EventDetected)
	require.Equal(t, StateEnabling, f.ctrl.State())

	f.ctrl.HandlePowerEvent(EventRemoved)

	assert.Equal(t, StateDisabled, f.ctrl.State())
	assert.Equal(t, 1, f.chip.ClockStarts())
	assert.Equal(t, 1, f.chip.ClockStops())
}

func TestLifecycle(t *testing.T) {
	for _, sd := range []bool{false, true} {
		name := "direct clock"
		if sd {
			name = "softdevice clock"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{softDevice: sd})
			enable := func() uint32 { return f.chip.Peek(regs.USBDEnable) }
			pullup := func() uint32 { return f.chip.Peek(regs.USBDPullup) }

			assert.Equal(t, regs.EnableDisabled, enable())
			assert.Equal(t, regs.PullupDisabled, pullup())

			f.ctrl.HandlePowerEvent(EventDetected)
			assert.Equal(t, regs.EnableEnabled, enable())
			assert.Equal(t, regs.PullupDisabled, pullup())

			f.ctrl.HandlePowerEvent(EventReady)
			assert.Equal(t, regs.EnableEnabled, enable())
			assert.Equal(t, regs.PullupEnabled, pullup())

			f.ctrl.HandlePowerEvent(EventRemoved)
			assert.Equal(t, regs.EnableDisabled, enable())
			assert.Equal(t, regs.PullupDisabled, pullup())

			events := f.rec.Events()
			if sd {
				assert.Len(t, trace.Calls(events, sim.CallSDHFClkRequest), 1)
				assert.Len(t, trace.Calls(events, sim.CallSDHFClkRelease), 1)
			} else {
				assert.Len(t, trace.StoresTo(events, regs.ClockTasksHFClkStart), 1)
				assert.Len(t, trace.StoresTo(events, regs.ClockTasksHFClkStop), 1)
			}
			assert.Equal(t, 1, f.chip.ClockStarts())
			assert.Equal(t, 1, f.chip.ClockStops())
		})
	}
}

func TestRepeatedCycles(t *testing.T) {
	f := newFixture(t, fixtureOptions{chip: sim.Options{ReadyDelay: 2, ClockDelay: 2}})
	for i := 0; i < 3; i++ {
		f.ctrl.HandlePowerEvent(EventDetected)
		f.ctrl.HandlePowerEvent(EventReady)
		require.Equal(t, StateActive, f.ctrl.State())
		f.ctrl.HandlePowerEvent(EventRemoved)
		require.Equal(t, StateDisabled, f.ctrl.State())
	}
	assert.Equal(t, 3, f.chip.ClockStarts())
	assert.Equal(t, 3, f.chip.ClockStops())
}

func TestReadyTimeout(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		chip:   sim.Options{ReadyDelay: sim.Never},
		poller: hal.Bounded{MaxPolls: 16},
	})
	f.ctrl.HandlePowerEvent(EventDetected)
	f.rec.Reset()

	err := f.ctrl.HandlePowerEventContext(context.Background(), EventReady)
	assert.ErrorIs(t, err, pkg.ErrWaitTimeout)
	assert.Empty(t, trace.Stores(f.rec.Events()), "sequence stops at the first wait")
	assert.Equal(t, StateEnabling, f.ctrl.State())
}

func TestClockTimeout(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		chip:   sim.Options{ClockDelay: sim.Never},
		poller: hal.Bounded{MaxPolls: 16},
	})
	f.ctrl.HandlePowerEvent(EventDetected)
	f.rec.Reset()

	err := f.ctrl.HandlePowerEventContext(context.Background(), EventReady)
	assert.ErrorIs(t, err, pkg.ErrWaitTimeout)

	events := f.rec.Events()
	assert.NotEmpty(t, trace.StoresTo(events, regs.USBDIntEnSet))
	assert.Empty(t, trace.StoresTo(events, regs.USBDPullup))
	assert.Equal(t, StateEnabling, f.ctrl.State())
}

func TestReadyContextCancelled(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		chip:   sim.Options{ReadyDelay: sim.Never},
		poller: hal.Bounded{},
	})
	f.ctrl.HandlePowerEvent(EventDetected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.ctrl.HandlePowerEventContext(ctx, EventReady)
	assert.ErrorIs(t, err, pkg.ErrWaitTimeout)
}

func TestHandlePowerEventSwallowsErrors(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		chip:   sim.Options{ReadyDelay: sim.Never},
		poller: hal.Bounded{MaxPolls: 4},
	})
	f.ctrl.HandlePowerEvent(EventDetected)
	assert.NotPanics(t, func() { f.ctrl.HandlePowerEvent(EventReady) })
	assert.Equal(t, StateEnabling, f.ctrl.State())
}

func TestInvalidEvent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	err := f.ctrl.HandlePowerEventContext(context.Background(), Event(7))
	assert.ErrorIs(t, err, pkg.ErrInvalidEvent)
	assert.Empty(t, f.rec.Events())
}

func TestInitSoftDevice(t *testing.T) {
	tests := []struct {
		name   string
		status regs.USBRegStatus
		want   State
	}{
		{"no cable", 0, StateDisabled},
		{"vbus only", regs.USBRegStatusVBUSDetect, StateEnabling},
		{"vbus and regulator", regs.USBRegStatusVBUSDetect | regs.USBRegStatusOutputRdy, StateActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{softDevice: true, chip: sim.Options{USBRegStatus: tt.status}})

			assert.True(t, f.ctrl.Init())
			assert.Equal(t, tt.want, f.ctrl.State())

			detected, ready, removed := f.sd.USBEventsEnabled()
			assert.True(t, detected)
			assert.True(t, ready)
			assert.True(t, removed)

			events := f.rec.Events()
			order := []string{
				sim.CallSDUSBDetectedEnable,
				sim.CallSDUSBPwrRdyEnable,
				sim.CallSDUSBRemovedEnable,
				sim.CallSDUSBRegStatusGet,
			}
			prev := -1
			for _, name := range order {
				i := trace.Index(events, func(e trace.Event) bool { return e.IsCall(name) })
				assert.Greater(t, i, prev, name)
				prev = i
			}
		})
	}
}

func TestInitWithoutStatusSource(t *testing.T) {
	f := newFixture(t, fixtureOptions{chip: sim.Options{
		USBRegStatus: regs.USBRegStatusVBUSDetect | regs.USBRegStatusOutputRdy,
	}})

	assert.True(t, f.ctrl.Init())
	assert.Empty(t, f.rec.Events())
	assert.Equal(t, StateDisabled, f.ctrl.State())
}

func TestInitSenseRegulator(t *testing.T) {
	f := newFixture(t, fixtureOptions{sense: true, chip: sim.Options{
		USBRegStatus: regs.USBRegStatusVBUSDetect | regs.USBRegStatusOutputRdy,
	}})

	assert.True(t, f.ctrl.Init())
	assert.Equal(t, StateActive, f.ctrl.State())
}

func TestInitSoftDeviceDisabledFallsBackToSense(t *testing.T) {
	f := newFixture(t, fixtureOptions{softDevice: true, sense: true, chip: sim.Options{
		USBRegStatus: regs.USBRegStatusVBUSDetect,
	}})
	f.sd.SetEnabled(false)

	assert.True(t, f.ctrl.Init())
	assert.Equal(t, StateEnabling, f.ctrl.State())
	assert.Empty(t, trace.Calls(f.rec.Events(), sim.CallSDUSBRegStatusGet))
}

func TestInitContextReportsTimeout(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		sense:  true,
		poller: hal.Bounded{MaxPolls: 8},
		chip: sim.Options{
			ReadyDelay:   sim.Never,
			USBRegStatus: regs.USBRegStatusVBUSDetect | regs.USBRegStatusOutputRdy,
		},
	})

	err := f.ctrl.InitContext(context.Background())
	assert.ErrorIs(t, err, pkg.ErrWaitTimeout)
	assert.True(t, f.ctrl.Init())
}

func TestInterruptPassThrough(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	irq := nvic.New(f.chip)

	f.ctrl.InterruptEnable(0)
	assert.True(t, irq.Enabled(regs.USBDIRQ))
	f.ctrl.InterruptEnable(3)
	assert.True(t, irq.Enabled(regs.USBDIRQ))

	f.ctrl.InterruptDisable(1)
	assert.False(t, irq.Enabled(regs.USBDIRQ))
	f.ctrl.InterruptDisable(0)
	assert.False(t, irq.Enabled(regs.USBDIRQ))
}

func TestEnabledNotCached(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	assert.False(t, f.ctrl.Enabled())

	// Another code path enables the peripheral behind the controller's back.
	f.chip.Poke(regs.USBDEnable, regs.EnableEnabled)
	assert.True(t, f.ctrl.Enabled())
	f.ctrl.HandlePowerEvent(EventDetected)
	assert.Equal(t, 0, f.chip.ClockStarts())

	f.chip.Poke(regs.USBDEnable, regs.EnableDisabled)
	f.ctrl.HandlePowerEvent(EventRemoved)
	assert.Equal(t, 0, f.chip.ClockStops())
}
