package config

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/hal/sim"
	"github.com/ardnew/usbdpower/device/nrf5x/errata"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

func TestDefault(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())

	assert.Equal(t, "nrf52840-dk", p.Name)
	assert.Equal(t, sim.ChipNRF52840EngB, p.ChipID())
	assert.True(t, p.Errata.Enabled)
	assert.False(t, p.SoftDevice.Present)
	assert.Equal(t, uint8(regs.USBDIRQPriority), p.IRQPriority)
	assert.Equal(t, hal.Spin{}, p.Poller())
	assert.Equal(t, "warn", p.Log.Level)
}

func TestParseEmpty(t *testing.T) {
	p, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadSoftDevice(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "softdevice.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "pca10056-s140", p.Name)
	assert.Equal(t, sim.ChipNRF52840EngC, p.ChipID())
	assert.True(t, p.SoftDevice.Present)
	assert.True(t, p.SoftDevice.Enabled)
	assert.Equal(t, uint8(6), p.IRQPriority)
	assert.Equal(t, hal.Bounded{MaxPolls: 100000, Timeout: 50 * time.Millisecond}, p.Poller())
	assert.Equal(t, regs.USBRegStatusVBUSDetect|regs.USBRegStatusOutputRdy, p.RegStatus())
	assert.Equal(t, map[int]bool{166: false, 104: true}, p.Errata.Force)

	opts := p.SimOptions(nil)
	assert.Equal(t, 2, opts.ReadyDelay)
	assert.Equal(t, 3, opts.ClockDelay)
}

func TestLoadRawID(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "raw-id.yaml"))
	require.NoError(t, err)

	assert.Equal(t, sim.ChipID{Part: 0x08, Revision: 0x30}, p.ChipID())
	assert.True(t, p.SenseRegulator)
	assert.Equal(t, sim.Never, p.Sim.ReadyDelay)
	assert.Equal(t, Default().Sim.ClockDelay, p.Sim.ClockDelay, "omitted fields keep defaults")

	chip := sim.NewChip(p.SimOptions(nil))
	assert.Equal(t, errata.SteppingEngD, errata.NewRevision(chip).Stepping())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown-key.yaml"))
	assert.ErrorIs(t, err, pkg.ErrInvalidProfile)

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, pkg.ErrInvalidProfile)

	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		reject bool
	}{
		{"preset case", "chip: {preset: NRF52840-ENGA}", false},
		{"unknown preset", "chip: {preset: nrf9160}", true},
		{"unknown erratum", "errata: {force: {999: true}}", true},
		{"known erratum", "errata: {force: {187: false}}", false},
		{"enabled without present", "softdevice: {enabled: true}", true},
		{"priority too high", "irq_priority: 8", true},
		{"reserved priority", "softdevice: {present: true}\nirq_priority: 4", true},
		{"reserved priority without softdevice", "irq_priority: 4", false},
		{"negative polls", "wait: {max_polls: -1}", true},
		{"negative timeout", "wait: {timeout: -1s}", true},
		{"delay below never", "sim: {clock_delay: -2}", true},
		{"bad level", "log: {level: loud}", true},
		{"bad format", "log: {format: xml}", true},
		{"bad yaml", "name: [", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.reject {
				assert.ErrorIs(t, err, pkg.ErrInvalidProfile)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChecker(t *testing.T) {
	base := errata.Set{errata.Errata166: true, errata.Errata171: true}

	p := Default()
	p.Errata.Force = map[int]bool{166: false, 187: true}
	c := p.Checker(base)
	assert.False(t, c.Applies(errata.Errata166))
	assert.True(t, c.Applies(errata.Errata171))
	assert.True(t, c.Applies(errata.Errata187))
	assert.False(t, c.Applies(errata.Errata104))

	p.Errata.Enabled = false
	c = p.Checker(base)
	for _, n := range errata.All {
		assert.False(t, c.Applies(n), n.String())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "softdevice.yaml"))
	require.NoError(t, err)

	data, err := p.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 50ms")

	q, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, p, q)
}

func TestApplyLogging(t *testing.T) {
	defer pkg.SetLogLevel(pkg.GetLogLevel())
	defer pkg.SetLogFormat(pkg.LogFormatText)

	p := Default()
	p.Log = Log{Level: "debug", Format: "json"}

	var buf bytes.Buffer
	require.NoError(t, p.ApplyLogging(&buf))
	assert.Equal(t, slog.LevelDebug, pkg.GetLogLevel())

	pkg.LogDebug(pkg.ComponentConfig, "hello")
	assert.Contains(t, buf.String(), `"component":"config"`)
}

func TestPresetNames(t *testing.T) {
	assert.Equal(t, []string{"nrf52832", "nrf52840-enga", "nrf52840-engb", "nrf52840-engc"}, PresetNames())
}
