package trace

import (
	"fmt"
	"io"
)

// Namer maps an address to a symbolic register name.
type Namer func(addr uintptr) string

// Hex is a Namer that formats addresses in hex.
func Hex(addr uintptr) string {
	return fmt.Sprintf("0x%08X", addr)
}

// Format renders e as a single line.
func Format(e Event, name Namer) string {
	if name == nil {
		name = Hex
	}
	switch e.Kind {
	case KindLoad:
		return fmt.Sprintf("#%-5d load  %-26s -> 0x%08X", e.Seq, name(uintptr(e.Addr)), e.Value)
	case KindStore:
		return fmt.Sprintf("#%-5d store %-26s <- 0x%08X", e.Seq, name(uintptr(e.Addr)), e.Value)
	default:
		return fmt.Sprintf("#%-5d call  %s", e.Seq, e.Name)
	}
}

// WriteText writes one formatted line per event to w.
func WriteText(w io.Writer, events []Event, name Namer) error {
	for _, e := range events {
		if _, err := fmt.Fprintln(w, Format(e, name)); err != nil {
			return err
		}
	}
	return nil
}
