// Command usbdsim drives the nRF52840 USBD power controller against a
// simulated chip.
//
// Usage:
//
//	usbdsim run [--profile p.yaml] [--events detected,ready,removed] [--trace out.cbor]
//	usbdsim shell [--profile p.yaml]
//	usbdsim trace decode out.cbor
//	usbdsim profile [--profile p.yaml]
package main

import (
	"os"
)

func main() {
	opts := &options{}
	root := newRootCmd(opts)
	err := root.Execute()
	if stopErr := opts.finish(); err == nil {
		err = stopErr
	}
	if err != nil {
		os.Exit(1)
	}
}
