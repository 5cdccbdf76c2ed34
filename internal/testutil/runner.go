// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/types"
)

type (
	// Response is what FakeRunner plays back for one command.
	Response struct {
		Stdout string
		Stderr string
		Code   types.ExitCode
		Err    error
		// Do runs before the response is written, e.g. to create the files
		// a real process would leave behind.
		Do func(cmd runtime.Command)
	}

	// FakeRunner records commands instead of running them. Responses are
	// matched by the first response key that the command's program path
	// ends with; unmatched commands succeed silently.
	FakeRunner struct {
		mu        sync.Mutex
		responses map[string]Response
		calls     []runtime.Command
	}
)

// NewFakeRunner creates a runner with no scripted responses.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On scripts the response for commands whose program ends with program.
func (r *FakeRunner) On(program string, resp Response) *FakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[program] = resp
	return r
}

// Run implements runtime.Runner.
func (r *FakeRunner) Run(_ context.Context, cmd runtime.Command, stdout, stderr io.Writer) (types.ExitCode, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runtime.Command{
		Args:           slices.Clone(cmd.Args),
		Dir:            cmd.Dir,
		Env:            slices.Clone(cmd.Env),
		NonZeroIsFatal: cmd.NonZeroIsFatal,
	})
	resp := r.lookup(cmd)
	r.mu.Unlock()

	if resp.Do != nil {
		resp.Do(cmd)
	}
	if resp.Err != nil {
		return 1, resp.Err
	}
	if _, err := io.WriteString(stdout, resp.Stdout); err != nil {
		return 1, err
	}
	if _, err := io.WriteString(stderr, resp.Stderr); err != nil {
		return 1, err
	}
	if resp.Code != 0 && cmd.NonZeroIsFatal {
		return resp.Code, &runtime.ExitError{Args: cmd.Args, Code: resp.Code}
	}
	return resp.Code, nil
}

// Calls returns the recorded commands in order.
func (r *FakeRunner) Calls() []runtime.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Programs returns the program of each recorded command.
func (r *FakeRunner) Programs() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		if len(c.Args) > 0 {
			out = append(out, c.Args[0])
		}
	}
	return out
}

// lookup must be called with mu held. The longest matching key wins.
func (r *FakeRunner) lookup(cmd runtime.Command) Response {
	if len(cmd.Args) == 0 {
		return Response{}
	}
	var best string
	found := false
	for key := range r.responses {
		if strings.HasSuffix(cmd.Args[0], key) && (!found || len(key) > len(best)) {
			best, found = key, true
		}
	}
	if !found {
		return Response{}
	}
	return r.responses[best]
}
