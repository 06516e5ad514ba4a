package trace

// Filter returns the events for which keep returns true.
func Filter(events []Event, keep func(Event) bool) []Event {
	var out []Event
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Stores returns only the store events.
func Stores(events []Event) []Event {
	return Filter(events, func(e Event) bool { return e.Kind == KindStore })
}

// StoresTo returns the stores to addr.
func StoresTo(events []Event, addr uintptr) []Event {
	return Filter(events, func(e Event) bool { return e.IsStore(addr) })
}

// Calls returns the calls named name.
func Calls(events []Event, name string) []Event {
	return Filter(events, func(e Event) bool { return e.IsCall(name) })
}

// Index returns the position of the first event matching match, or -1.
func Index(events []Event, match func(Event) bool) int {
	for i, e := range events {
		if match(e) {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last event matching match, or -1.
func LastIndex(events []Event, match func(Event) bool) int {
	for i := len(events) - 1; i >= 0; i-- {
		if match(events[i]) {
			return i
		}
	}
	return -1
}
