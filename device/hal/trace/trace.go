package trace

import (
	"fmt"
	"sync"
)

// Kind classifies a recorded event.
type Kind uint8

// Event kinds.
const (
	KindLoad  Kind = iota // Bus read
	KindStore             // Bus write
	KindCall              // Collaborator call (clock arbitration, barrier, ...)
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindStore:
		return "store"
	case KindCall:
		return "call"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Event is one observable access. Addr and Value are meaningful for loads
// and stores; Name identifies the collaborator operation for calls.
type Event struct {
	Seq   uint64 `cbor:"1,keyasint" json:"seq"`
	Kind  Kind   `cbor:"2,keyasint" json:"kind"`
	Addr  uint64 `cbor:"3,keyasint,omitempty" json:"addr,omitempty"`
	Value uint32 `cbor:"4,keyasint,omitempty" json:"value"`
	Name  string `cbor:"5,keyasint,omitempty" json:"name,omitempty"`
}

// IsStore reports whether e is a store to addr.
func (e Event) IsStore(addr uintptr) bool {
	return e.Kind == KindStore && e.Addr == uint64(addr)
}

// IsCall reports whether e is a call named name.
func (e Event) IsCall(name string) bool {
	return e.Kind == KindCall && e.Name == name
}

// Recorder collects events in order. A nil *Recorder discards everything,
// so producers can record unconditionally.
type Recorder struct {
	mutex  sync.Mutex
	events []Event
	seq    uint64
	loads  bool
}

// NewRecorder returns an empty recorder. Loads are not recorded unless
// enabled with RecordLoads, since hardware waits generate one per poll.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordLoads enables or disables recording of bus reads.
func (r *Recorder) RecordLoads(on bool) {
	if r == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.loads = on
}

func (r *Recorder) append(e Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.seq++
	e.Seq = r.seq
	r.events = append(r.events, e)
}

// Load records a bus read.
func (r *Recorder) Load(addr uintptr, v uint32) {
	if r == nil {
		return
	}
	r.mutex.Lock()
	on := r.loads
	r.mutex.Unlock()
	if on {
		r.append(Event{Kind: KindLoad, Addr: uint64(addr), Value: v})
	}
}

// Store records a bus write.
func (r *Recorder) Store(addr uintptr, v uint32) {
	if r == nil {
		return
	}
	r.append(Event{Kind: KindStore, Addr: uint64(addr), Value: v})
}

// Call records a collaborator call.
func (r *Recorder) Call(name string) {
	if r == nil {
		return
	}
	r.append(Event{Kind: KindCall, Name: name})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.events)
}

// Reset discards recorded events. Sequence numbers keep increasing.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = r.events[:0]
}
