// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

// ErrArtifactIntegrity is the sentinel error wrapped by ArtifactIntegrityError.
var ErrArtifactIntegrity = errors.New("artifact integrity check failed")

// ArtifactIntegrityError reports a stage artifact that is missing or malformed.
// Source names what pointed at the artifact, such as the matched output line
// or the original path printed by the tool.
type ArtifactIntegrityError struct {
	Path   string
	Source string
	Reason string
}

// Error implements the error interface.
func (e *ArtifactIntegrityError) Error() string {
	msg := fmt.Sprintf("artifact %s: %s", e.Path, e.Reason)
	if e.Source != "" {
		msg += fmt.Sprintf(" (matched from: %s)", e.Source)
	}
	return msg
}

// Unwrap returns ErrArtifactIntegrity for errors.Is() compatibility.
func (e *ArtifactIntegrityError) Unwrap() error { return ErrArtifactIntegrity }
