// Package regs is the nRF52840 register map used by the USBD power
// controller: the USBD, CLOCK and POWER peripherals, the Cortex-M NVIC, the
// chip identification words, and the fixed addresses touched by the USBD
// errata workarounds.
package regs

// Peripheral base addresses.
const (
	ClockBase uintptr = 0x4000_0000
	PowerBase uintptr = 0x4000_0000 // CLOCK and POWER share an instance
	USBDBase  uintptr = 0x4002_7000
	NVICBase  uintptr = 0xE000_E100
)

// USBD register addresses.
const (
	USBDEventsUSBReset    = USBDBase + 0x100
	USBDEventsEP0DataDone = USBDBase + 0x128
	USBDEventsSOF         = USBDBase + 0x154
	USBDEventsUSBEvent    = USBDBase + 0x158
	USBDEventsEP0Setup    = USBDBase + 0x15C
	USBDEventsEPData      = USBDBase + 0x160
	USBDEventsAccessFault = USBDBase + 0x164
	USBDShorts            = USBDBase + 0x200
	USBDIntEn             = USBDBase + 0x300
	USBDIntEnSet          = USBDBase + 0x304
	USBDIntEnClr          = USBDBase + 0x308
	USBDEventCause        = USBDBase + 0x400
	USBDEnable            = USBDBase + 0x500
	USBDPullup            = USBDBase + 0x504
	USBDISOSplit          = USBDBase + 0x51C
	USBDLowPower          = USBDBase + 0x52C
)

// Inten is a bit set for the USBD INTEN, INTENSET and INTENCLR registers.
type Inten uint32

// USBD interrupt sources.
const (
	IntenUSBReset    Inten = 1 << 0
	IntenStarted     Inten = 1 << 1
	IntenEndEPIn0    Inten = 1 << 2
	IntenEP0DataDone Inten = 1 << 10
	IntenEndISOIn    Inten = 1 << 11
	IntenEndEPOut0   Inten = 1 << 12
	IntenEndISOOut   Inten = 1 << 20
	IntenSOF         Inten = 1 << 21
	IntenUSBEvent    Inten = 1 << 22
	IntenEP0Setup    Inten = 1 << 23
	IntenEPData      Inten = 1 << 24
	IntenAccessFault Inten = 1 << 25
)

// IntenActive is the set of sources armed when the peripheral becomes
// ready. SOF is included so the upper stack can run periodic flushes; it
// also covers for the missing-completion-event defect of early silicon
// (errata 104).
const IntenActive = IntenUSBReset | IntenUSBEvent | IntenAccessFault |
	IntenEP0Setup | IntenEP0DataDone | IntenEndEPIn0 | IntenEndEPOut0 |
	IntenEPData | IntenSOF

// EventCause is a bit set for USBD.EVENTCAUSE. Bits are write-one-to-clear.
type EventCause uint32

// USBD event causes.
const (
	EventCauseISOOutCRC    EventCause = 1 << 0
	EventCauseSuspend      EventCause = 1 << 8
	EventCauseResume       EventCause = 1 << 9
	EventCauseUSBWUAllowed EventCause = 1 << 10
	EventCauseReady        EventCause = 1 << 11
)

// Enable values for USBD.ENABLE.
const (
	EnableDisabled uint32 = 0
	EnableEnabled  uint32 = 1
)

// Pullup values for USBD.USBPULLUP.
const (
	PullupDisabled uint32 = 0
	PullupEnabled  uint32 = 1
)

// ISOSPLIT values.
const (
	ISOSplitOneDir uint32 = 0x0000
	ISOSplitHalfIN uint32 = 0x0080
)

// CLOCK register addresses.
const (
	ClockTasksHFClkStart    = ClockBase + 0x000
	ClockTasksHFClkStop     = ClockBase + 0x004
	ClockEventsHFClkStarted = ClockBase + 0x100
	ClockHFClkStat          = ClockBase + 0x40C
)

// HFClkStat is a bit set for CLOCK.HFCLKSTAT.
type HFClkStat uint32

// HFCLKSTAT fields.
const (
	HFClkStatSrcXtal      HFClkStat = 1 << 0
	HFClkStatRunning      HFClkStat = 1 << 16
	HFClkStatHighAccuracy           = HFClkStatSrcXtal | HFClkStatRunning
)

// Task trigger value.
const Trigger uint32 = 1

// POWER register addresses.
const (
	PowerEventsUSBDetected = PowerBase + 0x11C
	PowerEventsUSBRemoved  = PowerBase + 0x120
	PowerEventsUSBPwrRdy   = PowerBase + 0x124
	PowerIntEnSet          = PowerBase + 0x304
	PowerUSBRegStatus      = PowerBase + 0x438
)

// PowerInt is a bit set for POWER.INTENSET.
type PowerInt uint32

// USB power event interrupt sources.
const (
	PowerIntUSBDetected PowerInt = 1 << 7
	PowerIntUSBRemoved  PowerInt = 1 << 8
	PowerIntUSBPwrRdy   PowerInt = 1 << 9
)

// USBRegStatus is a bit set for POWER.USBREGSTATUS.
type USBRegStatus uint32

// USBREGSTATUS fields.
const (
	USBRegStatusVBUSDetect USBRegStatus = 1 << 0
	USBRegStatusOutputRdy  USBRegStatus = 1 << 1
)

// NVIC register addresses. Each block is indexed by irq/32 words, except
// IPR which holds one byte per interrupt.
const (
	NVICISER = NVICBase + 0x000
	NVICICER = NVICBase + 0x080
	NVICISPR = NVICBase + 0x100
	NVICICPR = NVICBase + 0x180
	NVICIPR  = NVICBase + 0x300
)

// NVICPriorityBits is the number of implemented priority bits on nRF52.
const NVICPriorityBits = 3

// USBDIRQ is the USBD interrupt number.
const USBDIRQ = 39

// USBDIRQPriority is the USBD interrupt priority. Levels 0, 1, 4 and 5 are
// reserved for the SoftDevice.
const USBDIRQPriority = 7

// Chip identification words.
const (
	ChipIDPart     uintptr = 0xF000_0FE0
	ChipIDVariant  uintptr = 0xF000_0FE4
	ChipIDRevision uintptr = 0xF000_0FE8
	ChipIDMinor    uintptr = 0xF000_0FEC
)

// Errata workaround addresses and values.
const (
	ErrataLock      uintptr = 0x4006_EC00
	Errata171Target uintptr = 0x4006_EC14
	Errata187Target uintptr = 0x4006_ED14
	Errata166Addr0          = USBDBase + 0x800
	Errata166Addr1          = USBDBase + 0x804

	ErrataLockedWitness uint32 = 0x0000_0000
	ErrataUnlockKey     uint32 = 0x0000_9375

	Errata171Apply  uint32 = 0x0000_00C0
	Errata171Revert uint32 = 0x0000_0000
	Errata187Apply  uint32 = 0x0000_0003
	Errata187Revert uint32 = 0x0000_0000
	Errata166Value0 uint32 = 0x0000_07E3
	Errata166Value1 uint32 = 0x0000_0040
)
