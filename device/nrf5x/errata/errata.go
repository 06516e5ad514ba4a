// Package errata applies the register-level workarounds nRF52840 silicon
// needs around USBD enable.
//
// Which workarounds apply is decided by a [Checker], normally a [Revision]
// that reads the chip identification words on every query. The [Applier]
// performs the patches at the two points of the enable sequence.
package errata

import (
	"fmt"
	"strconv"
)

// Number identifies a published erratum.
type Number uint16

// USBD errata handled by this package. 104 and 154 are not patched here but
// are reported so the upper stack can compensate.
const (
	Errata104 Number = 104 // USB complete event is not generated
	Errata154 Number = 154 // USB remote wakeup
	Errata166 Number = 166 // ISO double buffering not functional
	Errata171 Number = 171 // USBD might not reach its active state
	Errata187 Number = 187 // USB cannot be enabled
)

// All lists every erratum known to the package.
var All = []Number{Errata104, Errata154, Errata166, Errata171, Errata187}

// String returns the erratum number.
func (n Number) String() string {
	return strconv.Itoa(int(n))
}

// ParseNumber parses a decimal erratum number.
func ParseNumber(s string) (Number, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse erratum %q: %w", s, err)
	}
	return Number(v), nil
}

// Checker reports whether a workaround is needed on this chip.
// Implementations must be cheap; they are asked on every event.
type Checker interface {
	Applies(n Number) bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(n Number) bool

// Applies calls f(n).
func (f CheckerFunc) Applies(n Number) bool {
	return f(n)
}

// Set is a fixed set of applicable errata.
type Set map[Number]bool

// Applies reports whether n is in the set.
func (s Set) Applies(n Number) bool {
	return s[n]
}

// Policy layers a global switch and per-erratum overrides on a base Checker.
type Policy struct {
	// Base decides errata not listed in Force.
	Base Checker

	// Disabled turns every workaround off.
	Disabled bool

	// Force overrides Base for the listed errata.
	Force map[Number]bool
}

// Applies implements Checker.
func (p Policy) Applies(n Number) bool {
	if p.Disabled {
		return false
	}
	if v, ok := p.Force[n]; ok {
		return v
	}
	return p.Base != nil && p.Base.Applies(n)
}

var (
	_ Checker = CheckerFunc(nil)
	_ Checker = Set(nil)
	_ Checker = Policy{}
)
