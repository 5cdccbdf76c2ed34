// SPDX-License-Identifier: MPL-2.0

//go:build unix

package runtime

import (
	"os/exec"
	"syscall"

	"github.com/nibench/nibench/pkg/types"
)

// signalExitCode encodes a terminating signal as 128+signal.
func signalExitCode(exitErr *exec.ExitError) types.ExitCode {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return types.ExitCode(128 + int(ws.Signal()))
	}
	return 1
}
