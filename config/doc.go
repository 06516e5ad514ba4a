// Package config loads board profiles for the USBD power controller.
//
// A profile describes the chip revision, which silicon workarounds apply,
// whether a SoftDevice arbitrates HFCLK and POWER events, how hardware waits
// are bounded, and, for the simulator, how quickly the simulated peripheral
// responds. Profiles are YAML documents; every field is optional and falls
// back to the embedded default profile:
//
//	name: pca10056
//	chip:
//	  preset: nrf52840-engc
//	errata:
//	  enabled: true
//	  force:
//	    166: false
//	softdevice:
//	  present: true
//	  enabled: true
//	wait:
//	  max_polls: 100000
//	  timeout: 50ms
package config
