//go:build tinygo

package nrf5x

import (
	"github.com/ardnew/usbdpower/device/hal/mmio"
)

// Hardware returns a Config for the physical chip. The caller fills in
// SoftDevice when one is linked in.
func Hardware() Config {
	return Config{
		Bus:     mmio.Bus{},
		Barrier: mmio.Barrier{},
		Locker:  &mmio.CriticalSection{},
	}
}
