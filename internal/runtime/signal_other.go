// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package runtime

import (
	"os/exec"

	"github.com/nibench/nibench/pkg/types"
)

// signalExitCode reports a generic failure where signals are not encoded.
func signalExitCode(*exec.ExitError) types.ExitCode { return 1 }
