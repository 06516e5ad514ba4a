package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/hal/sim"
	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x/errata"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

//go:embed default.yaml
var defaultProfile []byte

// Profile is a board profile.
type Profile struct {
	Name           string     `yaml:"name"`
	Chip           Chip       `yaml:"chip"`
	Errata         Errata     `yaml:"errata"`
	SoftDevice     SoftDevice `yaml:"softdevice"`
	IRQPriority    uint8      `yaml:"irq_priority"`
	SenseRegulator bool       `yaml:"sense_regulator"`
	Wait           Wait       `yaml:"wait"`
	Sim            Sim        `yaml:"sim"`
	Log            Log        `yaml:"log"`
}

// Chip identifies the silicon. A non-empty Preset takes precedence over the
// raw identification words.
type Chip struct {
	Preset   string `yaml:"preset"`
	Part     uint32 `yaml:"part"`
	Variant  uint32 `yaml:"variant"`
	Revision uint32 `yaml:"revision"`
	Minor    uint32 `yaml:"minor"`
}

// Errata selects silicon workarounds. Force keys are erratum numbers.
type Errata struct {
	Enabled bool         `yaml:"enabled"`
	Force   map[int]bool `yaml:"force,omitempty"`
}

// SoftDevice describes the radio stack.
type SoftDevice struct {
	Present bool `yaml:"present"`
	Enabled bool `yaml:"enabled"`
}

// Wait bounds the two hardware waits of the ready event. Zero values leave
// the corresponding bound off; with both off the controller spins.
type Wait struct {
	MaxPolls int           `yaml:"max_polls"`
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// Sim controls the simulated peripheral.
type Sim struct {
	ReadyDelay     int          `yaml:"ready_delay"`
	ClockDelay     int          `yaml:"clock_delay"`
	USBRegStatus   USBRegStatus `yaml:"usbregstatus"`
	ErrataUnlocked bool         `yaml:"errata_unlocked"`
}

// USBRegStatus is the latched regulator status at power-on.
type USBRegStatus struct {
	Detected bool `yaml:"detected"`
	Ready    bool `yaml:"ready"`
}

// Log selects the log level and format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Presets maps chip preset names to identification words.
var Presets = map[string]sim.ChipID{
	"nrf52840-enga": sim.ChipNRF52840EngA,
	"nrf52840-engb": sim.ChipNRF52840EngB,
	"nrf52840-engc": sim.ChipNRF52840EngC,
	"nrf52832":      sim.ChipNRF52832,
}

// PresetNames returns the chip preset names in sorted order.
func PresetNames() []string {
	names := maps.Keys(Presets)
	slices.Sort(names)
	return names
}

// reserved SoftDevice interrupt priorities.
var reserved = []uint8{0, 1, 4, 5}

// Default returns the embedded default profile.
func Default() Profile {
	var p Profile
	if err := yaml.Unmarshal(defaultProfile, &p); err != nil {
		panic(fmt.Sprintf("config: embedded default profile: %v", err))
	}
	return p
}

// Parse decodes a YAML profile on top of the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (Profile, error) {
	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("%w: %v", pkg.ErrInvalidProfile, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Load reads and parses the profile at path. An empty path returns the
// default profile.
func Load(path string) (Profile, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentConfig, "profile loaded", "path", path, "name", p.Name)
	return p, nil
}

// Marshal encodes p as YAML.
func (p Profile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate reports the first invalid field of p. The error wraps
// pkg.ErrInvalidProfile.
func (p Profile) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", pkg.ErrInvalidProfile, fmt.Sprintf(format, args...))
	}

	if p.Chip.Preset != "" {
		if _, ok := Presets[strings.ToLower(p.Chip.Preset)]; !ok {
			return invalid("unknown chip preset %q (want one of %s)",
				p.Chip.Preset, strings.Join(PresetNames(), ", "))
		}
	}
	for n := range p.Errata.Force {
		if !slices.Contains(errata.All, errata.Number(n)) {
			return invalid("unknown erratum %d", n)
		}
	}
	if p.SoftDevice.Enabled && !p.SoftDevice.Present {
		return invalid("softdevice enabled but not present")
	}
	if p.IRQPriority >= 1<<regs.NVICPriorityBits {
		return invalid("irq_priority %d exceeds %d", p.IRQPriority, 1<<regs.NVICPriorityBits-1)
	}
	if p.SoftDevice.Present && slices.Contains(reserved, p.IRQPriority) {
		return invalid("irq_priority %d is reserved by the softdevice", p.IRQPriority)
	}
	if p.Wait.MaxPolls < 0 || p.Wait.Timeout < 0 || p.Wait.Interval < 0 {
		return invalid("negative wait bound")
	}
	if p.Sim.ReadyDelay < sim.Never || p.Sim.ClockDelay < sim.Never {
		return invalid("sim delays must be >= %d", sim.Never)
	}
	if _, err := pkg.ParseLogLevel(p.Log.Level); err != nil {
		return invalid("%v", err)
	}
	if _, err := pkg.ParseLogFormat(p.Log.Format); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// ChipID returns the identification words the profile selects.
func (p Profile) ChipID() sim.ChipID {
	if id, ok := Presets[strings.ToLower(p.Chip.Preset)]; ok {
		return id
	}
	return sim.ChipID{
		Part:     p.Chip.Part,
		Variant:  p.Chip.Variant,
		Revision: p.Chip.Revision,
		Minor:    p.Chip.Minor,
	}
}

// RegStatus returns the latched regulator status for the simulator.
func (p Profile) RegStatus() regs.USBRegStatus {
	var st regs.USBRegStatus
	if p.Sim.USBRegStatus.Detected {
		st |= regs.USBRegStatusVBUSDetect
	}
	if p.Sim.USBRegStatus.Ready {
		st |= regs.USBRegStatusOutputRdy
	}
	return st
}

// SimOptions returns the simulated chip options for p.
func (p Profile) SimOptions(rec *trace.Recorder) sim.Options {
	return sim.Options{
		Recorder:       rec,
		ReadyDelay:     p.Sim.ReadyDelay,
		ClockDelay:     p.Sim.ClockDelay,
		ID:             p.ChipID(),
		USBRegStatus:   p.RegStatus(),
		ErrataUnlocked: p.Sim.ErrataUnlocked,
	}
}

// Poller returns hal.Spin when the profile leaves waits unbounded and a
// hal.Bounded otherwise.
func (p Profile) Poller() hal.Poller {
	b := hal.Bounded{
		MaxPolls: p.Wait.MaxPolls,
		Timeout:  p.Wait.Timeout,
		Interval: p.Wait.Interval,
	}
	if b.Unbounded() {
		return hal.Spin{}
	}
	return b
}

// Checker layers the profile's errata switches over base.
func (p Profile) Checker(base errata.Checker) errata.Checker {
	force := make(map[errata.Number]bool, len(p.Errata.Force))
	for n, on := range p.Errata.Force {
		force[errata.Number(n)] = on
	}
	return errata.Policy{Base: base, Disabled: !p.Errata.Enabled, Force: force}
}

// ApplyLogging configures the package logger from p.Log.
func (p Profile) ApplyLogging(w io.Writer) error {
	level, err := pkg.ParseLogLevel(p.Log.Level)
	if err != nil {
		return err
	}
	format, err := pkg.ParseLogFormat(p.Log.Format)
	if err != nil {
		return err
	}
	pkg.SetLogLevel(level)
	pkg.SetLogOutput(w, format)
	return nil
}
