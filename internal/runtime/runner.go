// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/nibench/nibench/pkg/types"
)

// ErrNonZeroExit is the sentinel error wrapped by ExitError.
var ErrNonZeroExit = errors.New("process exited with non-zero status")

type (
	// Command is one process invocation.
	Command struct {
		// Args holds the executable followed by its arguments.
		Args []string
		// Dir is the working directory; empty means the current one.
		Dir string
		// Env is appended to the inherited environment.
		Env []string
		// NonZeroIsFatal turns a non-zero exit into an ExitError.
		NonZeroIsFatal bool
	}

	// Runner executes commands.
	Runner interface {
		Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (types.ExitCode, error)
	}

	// NativeRunner runs commands directly with os/exec, without a shell.
	NativeRunner struct{}

	// ExitError reports a fatal non-zero exit.
	ExitError struct {
		Args []string
		Code types.ExitCode
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %s", strings.Join(e.Args, " "), e.Code)
}

// Unwrap returns ErrNonZeroExit for errors.Is() compatibility.
func (e *ExitError) Unwrap() error { return ErrNonZeroExit }

// NewNativeRunner creates a runner for host processes.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{}
}

// Run executes cmd and waits for it. A process that starts and exits
// non-zero is not an error unless cmd.NonZeroIsFatal is set.
func (r *NativeRunner) Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (types.ExitCode, error) {
	if len(cmd.Args) == 0 {
		return 1, errors.New("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = stdout
	c.Stderr = stderr

	code, err := exitCodeFrom(c.Run())
	if err != nil {
		return code, fmt.Errorf("failed to execute %s: %w", cmd.Args[0], err)
	}
	if code != 0 && cmd.NonZeroIsFatal {
		return code, &ExitError{Args: cmd.Args, Code: code}
	}
	return code, nil
}

// Output runs cmd and returns its stdout. A non-zero exit is always an error
// carrying the captured stderr.
func Output(ctx context.Context, r Runner, cmd Command) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.NonZeroIsFatal = true
	if _, err := r.Run(ctx, cmd, &stdout, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}

// exitCodeFrom maps the result of exec.Cmd.Run to an exit code. Only a
// failure to start the process, or an exit status outside 0-255, is an error.
func exitCodeFrom(err error) (types.ExitCode, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := types.ExitCode(exitErr.ExitCode())
		if code < 0 {
			// Killed by a signal; report it the way a shell would.
			code = signalExitCode(exitErr)
		}
		if validateErr := code.Validate(); validateErr != nil {
			return 1, validateErr
		}
		return code, nil
	}

	return 1, err
}
