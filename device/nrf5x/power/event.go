package power

import (
	"fmt"
	"strings"

	"github.com/ardnew/usbdpower/pkg"
)

// Event is a USB power event delivered by the POWER peripheral or the
// coexistence layer. Events are never stored; they exist only as arguments.
type Event uint8

// USB power events, numbered as the power driver delivers them.
const (
	EventDetected Event = iota // VBUS detected
	EventRemoved               // VBUS removed
	EventReady                 // USB regulator output ready
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventDetected:
		return "detected"
	case EventRemoved:
		return "removed"
	case EventReady:
		return "ready"
	default:
		return fmt.Sprintf("event(%d)", uint8(e))
	}
}

// ParseEvent parses an event name as returned by String.
func ParseEvent(s string) (Event, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "detected", "detect":
		return EventDetected, nil
	case "removed", "remove":
		return EventRemoved, nil
	case "ready":
		return EventReady, nil
	default:
		return 0, fmt.Errorf("%w: %q", pkg.ErrInvalidEvent, s)
	}
}

// State is the controller state as inferred from the peripheral registers.
type State uint8

// Controller states.
const (
	StateDisabled State = iota // USBD.ENABLE clear
	StateEnabling              // USBD.ENABLE set, pull-up not yet asserted
	StateActive                // USBD.ENABLE set and pull-up asserted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateEnabling:
		return "enabling"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
