// Package trace records the observable behaviour of the power controller:
// every bus store (and optionally load) plus every call into an external
// collaborator, in program order.
//
// Tests use the recorded sequence to check ordering contracts, and the
// simulator command writes it to disk as a stream of CBOR items:
//
//	rec := trace.NewRecorder()
//	chip := sim.NewChip(sim.Options{Recorder: rec})
//	// ... drive the controller ...
//	f := trace.File{Header: trace.NewHeader("nrf52840"), Events: rec.Events()}
//	err := trace.Encode(w, f)
package trace
