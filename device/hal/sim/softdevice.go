package sim

import (
	"sync"

	"github.com/ardnew/usbdpower/device/nrf5x/regs"
	"github.com/ardnew/usbdpower/pkg"
)

// Trace call names recorded by the SoftDevice.
const (
	CallSDHFClkRequest      = "sd.hfclk_request"
	CallSDHFClkRelease      = "sd.hfclk_release"
	CallSDUSBDetectedEnable = "sd.power_usbdetected_enable"
	CallSDUSBPwrRdyEnable   = "sd.power_usbpwrrdy_enable"
	CallSDUSBRemovedEnable  = "sd.power_usbremoved_enable"
	CallSDUSBRegStatusGet   = "sd.power_usbregstatus_get"
)

// SoftDevice simulates the radio stack's clock and power arbitration
// calls. While enabled it owns HFCLK: requests are reference counted and
// the clock stops only when the last request is released.
type SoftDevice struct {
	chip  *Chip
	mutex sync.Mutex

	enabled  bool
	requests int
	queries  int

	usbDetected bool
	usbPwrRdy   bool
	usbRemoved  bool
}

// NewSoftDevice returns a SoftDevice arbitrating chip's clock.
func NewSoftDevice(chip *Chip, enabled bool) *SoftDevice {
	return &SoftDevice{chip: chip, enabled: enabled}
}

// Enabled reports whether the SoftDevice is running. Each call is counted.
func (s *SoftDevice) Enabled() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.queries++
	return s.enabled
}

// SetEnabled enables or disables the SoftDevice.
func (s *SoftDevice) SetEnabled(on bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.enabled = on
	pkg.LogDebug(pkg.ComponentSim, "softdevice", "enabled", on)
}

// Queries returns the number of Enabled calls so far.
func (s *SoftDevice) Queries() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queries
}

// Requests returns the outstanding HFCLK request count.
func (s *SoftDevice) Requests() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.requests
}

// HFClkRequest requests HFCLK without waiting for it to start.
func (s *SoftDevice) HFClkRequest() {
	s.chip.rec.Call(CallSDHFClkRequest)
	s.mutex.Lock()
	s.requests++
	s.mutex.Unlock()

	s.chip.mutex.Lock()
	defer s.chip.mutex.Unlock()
	s.chip.startClock()
}

// HFClkRelease drops one HFCLK request.
func (s *SoftDevice) HFClkRelease() {
	s.chip.rec.Call(CallSDHFClkRelease)
	s.mutex.Lock()
	if s.requests > 0 {
		s.requests--
	}
	last := s.requests == 0
	s.mutex.Unlock()

	if last {
		s.chip.mutex.Lock()
		defer s.chip.mutex.Unlock()
		s.chip.stopClock()
	}
}

// HFClkIsRunning reports whether HFCLK runs. Each call advances a pending
// start by one poll.
func (s *SoftDevice) HFClkIsRunning() bool {
	s.chip.mutex.Lock()
	defer s.chip.mutex.Unlock()
	s.chip.pollClock()
	return s.chip.clockRunning()
}

// USBDetectedEnable enables forwarding of the USB detected power event.
func (s *SoftDevice) USBDetectedEnable(on bool) {
	s.chip.rec.Call(CallSDUSBDetectedEnable)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.usbDetected = on
}

// USBPowerReadyEnable enables forwarding of the USB power ready event.
func (s *SoftDevice) USBPowerReadyEnable(on bool) {
	s.chip.rec.Call(CallSDUSBPwrRdyEnable)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.usbPwrRdy = on
}

// USBRemovedEnable enables forwarding of the USB removed power event.
func (s *SoftDevice) USBRemovedEnable(on bool) {
	s.chip.rec.Call(CallSDUSBRemovedEnable)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.usbRemoved = on
}

// USBEventsEnabled reports which USB power events are forwarded.
func (s *SoftDevice) USBEventsEnabled() (detected, ready, removed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.usbDetected, s.usbPwrRdy, s.usbRemoved
}

// USBRegStatus returns the latched POWER.USBREGSTATUS value.
func (s *SoftDevice) USBRegStatus() regs.USBRegStatus {
	s.chip.rec.Call(CallSDUSBRegStatusGet)
	return regs.USBRegStatus(s.chip.Peek(regs.PowerUSBRegStatus))
}
