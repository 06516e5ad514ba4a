package regs

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var names = map[uintptr]string{
	USBDEventsUSBReset:    "USBD.EVENTS_USBRESET",
	USBDEventsEP0DataDone: "USBD.EVENTS_EP0DATADONE",
	USBDEventsSOF:         "USBD.EVENTS_SOF",
	USBDEventsUSBEvent:    "USBD.EVENTS_USBEVENT",
	USBDEventsEP0Setup:    "USBD.EVENTS_EP0SETUP",
	USBDEventsEPData:      "USBD.EVENTS_EPDATA",
	USBDEventsAccessFault: "USBD.EVENTS_ACCESSFAULT",
	USBDShorts:            "USBD.SHORTS",
	USBDIntEn:             "USBD.INTEN",
	USBDIntEnSet:          "USBD.INTENSET",
	USBDIntEnClr:          "USBD.INTENCLR",
	USBDEventCause:        "USBD.EVENTCAUSE",
	USBDEnable:            "USBD.ENABLE",
	USBDPullup:            "USBD.USBPULLUP",
	USBDISOSplit:          "USBD.ISOSPLIT",
	USBDLowPower:          "USBD.LOWPOWER",

	ClockTasksHFClkStart:    "CLOCK.TASKS_HFCLKSTART",
	ClockTasksHFClkStop:     "CLOCK.TASKS_HFCLKSTOP",
	ClockEventsHFClkStarted: "CLOCK.EVENTS_HFCLKSTARTED",
	ClockHFClkStat:          "CLOCK.HFCLKSTAT",

	PowerEventsUSBDetected: "POWER.EVENTS_USBDETECTED",
	PowerEventsUSBRemoved:  "POWER.EVENTS_USBREMOVED",
	PowerEventsUSBPwrRdy:   "POWER.EVENTS_USBPWRRDY",
	PowerIntEnSet:          "POWER.INTENSET",
	PowerUSBRegStatus:      "POWER.USBREGSTATUS",

	ChipIDPart:     "ID.PART",
	ChipIDVariant:  "ID.VARIANT",
	ChipIDRevision: "ID.REVISION",
	ChipIDMinor:    "ID.MINOR",

	ErrataLock:      "ERRATA.LOCK",
	Errata171Target: "ERRATA.171",
	Errata187Target: "ERRATA.187",
	Errata166Addr0:  "ERRATA.166[0]",
	Errata166Addr1:  "ERRATA.166[1]",
}

// Name returns a symbolic name for addr. NVIC words are named by block and
// index; unknown addresses are formatted in hex.
func Name(addr uintptr) string {
	if n, ok := names[addr]; ok {
		return n
	}
	if n, ok := nvicName(addr); ok {
		return n
	}
	return fmt.Sprintf("0x%08X", addr)
}

func nvicName(addr uintptr) (string, bool) {
	blocks := []struct {
		base  uintptr
		name  string
		count int
	}{
		{NVICISER, "NVIC.ISER", 8},
		{NVICICER, "NVIC.ICER", 8},
		{NVICISPR, "NVIC.ISPR", 8},
		{NVICICPR, "NVIC.ICPR", 8},
		{NVICIPR, "NVIC.IPR", 60},
	}
	for _, b := range blocks {
		end := b.base + uintptr(b.count)*4
		if addr >= b.base && addr < end && (addr-b.base)%4 == 0 {
			return fmt.Sprintf("%s[%d]", b.name, (addr-b.base)/4), true
		}
	}
	return "", false
}

// Known returns every named register address in ascending order.
func Known() []uintptr {
	addrs := maps.Keys(names)
	slices.Sort(addrs)
	return addrs
}

// Lookup returns the address for a symbolic register name as returned by
// Name, or false if the name is unknown.
func Lookup(name string) (uintptr, bool) {
	for addr, n := range names {
		if n == name {
			return addr, true
		}
	}
	return 0, false
}
