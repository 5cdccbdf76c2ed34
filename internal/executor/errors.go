// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"

	"github.com/nibench/nibench/pkg/stages"
	"github.com/nibench/nibench/pkg/types"
)

// ErrStageFailed is the sentinel error wrapped by StageFailedError.
var ErrStageFailed = errors.New("stage failed")

// StageFailedError reports a stage that exited non-zero or raised an error.
type StageFailedError struct {
	Stage stages.Stage
	Image string
	// Code is the exit code, or -1 when the process never completed.
	Code types.ExitCode
	// Err is the error raised inside the stage, if any.
	Err error
}

// Error implements the error interface.
func (e *StageFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s for %s failed: %v", e.Stage, e.Image, e.Err)
	}
	return fmt.Sprintf("stage %s for %s failed with exit code %s", e.Stage, e.Image, e.Code)
}

// Unwrap returns ErrStageFailed and the error raised inside the stage for
// errors.Is() compatibility.
func (e *StageFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStageFailed}
	}
	return []error{ErrStageFailed, e.Err}
}
