package pkg

import "errors"

// Controller errors.
//
// The power sequence itself has no error surface; these are returned only by
// the context-aware entry points, the bounded wait primitive, and the
// configuration and trace tooling around the controller.
var (
	// ErrWaitTimeout indicates a bounded hardware wait gave up before the
	// polled condition became true.
	ErrWaitTimeout = errors.New("hardware wait timeout")

	// ErrInvalidEvent indicates an unknown power event.
	ErrInvalidEvent = errors.New("invalid power event")

	// ErrInvalidProfile indicates a malformed or inconsistent chip profile.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrTraceFormat indicates a trace file that could not be decoded.
	ErrTraceFormat = errors.New("invalid trace format")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")
)
