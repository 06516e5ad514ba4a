// Package pkg provides shared utilities for the usbdpower controller.
//
// This package contains common functionality used by the register-level
// packages, the simulator and the command-line tooling:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for the few operations that can fail
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component tag:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogDebug(pkg.ComponentPower, "peripheral enabled", "event", "detected")
//
// # Errors
//
// Errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrWaitTimeout) {
//	    // The bounded wait gave up; hardware never reached the state.
//	}
package pkg
