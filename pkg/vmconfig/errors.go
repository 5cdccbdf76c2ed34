// SPDX-License-Identifier: MPL-2.0

package vmconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is the sentinel error wrapped by InvalidConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMissingConfigurationName is returned when no configuration name is given.
	ErrMissingConfigurationName = errors.New("configuration name must be set, use 'default' for the default configuration")
)

// InvalidConfigurationError is returned when a configuration name does not
// match the grammar, or when a slot holds a value it does not recognize.
type InvalidConfigurationError struct {
	// Name is the offending configuration name.
	Name string
	// Slot and Value identify an unrecognized slot value. Both are empty when
	// the name as a whole failed to match.
	Slot  string
	Value string
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("configuration %q is invalid: unknown %s %q", e.Name, e.Slot, e.Value)
	}
	return fmt.Sprintf("configuration %q is invalid", e.Name)
}

// Unwrap returns ErrInvalidConfiguration for errors.Is() compatibility.
func (e *InvalidConfigurationError) Unwrap() error { return ErrInvalidConfiguration }
