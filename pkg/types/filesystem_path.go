// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a path given by the operator, such as a config file,
	// an output root or a toolchain home. The zero value means "not set";
	// a set path must not be whitespace-only.
	FilesystemPath string

	// InvalidFilesystemPathError is returned when a set FilesystemPath is whitespace-only.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}
)

// String returns the path as a string.
func (p FilesystemPath) String() string { return string(p) }

// IsSet reports whether the path was given.
func (p FilesystemPath) IsSet() bool { return p != "" }

// Validate returns an error when the path is set but blank.
func (p FilesystemPath) Validate() error {
	if p.IsSet() && strings.TrimSpace(string(p)) == "" {
		return &InvalidFilesystemPathError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: must not be blank", e.Value)
}

// Unwrap returns ErrInvalidFilesystemPath for errors.Is() compatibility.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
