// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the benchmark packages.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// signalExitBase is the offset POSIX shells add to a terminating signal number.
const signalExitBase = 128

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a stage process exit status.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means the stage succeeded.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates a successful stage.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// Signal reports the terminating signal encoded in the exit code, if any.
// Benchmarks killed by the OOM killer typically exit with 137 (SIGKILL).
func (c ExitCode) Signal() (int, bool) {
	if c > signalExitBase && c <= 255 {
		return int(c) - signalExitBase, true
	}
	return 0, false
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string {
	if sig, ok := c.Signal(); ok {
		return fmt.Sprintf("%d (signal %d)", int(c), sig)
	}
	return strconv.Itoa(int(c))
}
