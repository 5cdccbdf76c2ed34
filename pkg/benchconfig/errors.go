// SPDX-License-Identifier: MPL-2.0

package benchconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrArgumentParsing is the sentinel error wrapped by ArgumentParsingError.
	ErrArgumentParsing = errors.New("argument parsing failed")

	// ErrNotRunnable is the sentinel error wrapped by NotRunnableError.
	ErrNotRunnable = errors.New("benchmark is not runnable")
)

// ArgumentParsingError is returned when benchmark arguments cannot be split
// into VM arguments, an executable and run arguments.
type ArgumentParsingError struct {
	// Arg is the offending argument, empty when the problem is the argument list as a whole.
	Arg string
	// Reason describes what is wrong.
	Reason string
	// Args is the argument list being parsed.
	Args []string
}

// Error implements the error interface.
func (e *ArgumentParsingError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("argument %q: %s", e.Arg, e.Reason)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Args)
}

// Unwrap returns ErrArgumentParsing for errors.Is() compatibility.
func (e *ArgumentParsingError) Unwrap() error { return ErrArgumentParsing }

// NotRunnableError is returned when the run stage is requested for a suite
// without a load generator.
type NotRunnableError struct {
	Suite     string
	Benchmark string
}

// Error implements the error interface.
func (e *NotRunnableError) Error() string {
	return fmt.Sprintf("benchmark %s:%s is not runnable", e.Suite, e.Benchmark)
}

// Unwrap returns ErrNotRunnable for errors.Is() compatibility.
func (e *NotRunnableError) Unwrap() error { return ErrNotRunnable }
