// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "run stage"},
			expected: "failed to run stage",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "run stage", Resource: "image"},
			expected: "failed to run stage: image",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "parse configuration name", Cause: errors.New("unknown option: turbo")},
			expected: "failed to parse configuration name: unknown option: turbo",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load configuration",
				Resource:  "./config.cue",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to load configuration: ./config.cue: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("stage failed")
	err := NewErrorContext().WithOperation("run stage").Wrap(sentinel).BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped cause")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("BuildError() should return *ActionableError")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("exit status 137")
	err := &ActionableError{
		Operation:   "run stage",
		Resource:    "instrument-run",
		Suggestions: []string{"Rerun with --stages=instrument-run", "Check the stage stderr log"},
		Cause:       &wrapped{msg: "process killed", err: inner},
	}

	plain := err.Format(false)
	for _, want := range []string{
		"failed to run stage: instrument-run: process killed",
		"• Rerun with --stages=instrument-run",
		"• Check the stage stderr log",
	} {
		if !strings.Contains(plain, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:\n  1. process killed\n  2. exit status 137") {
		t.Errorf("Format(true) error chain wrong:\n%s", verbose)
	}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.err }

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("image").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}

	err := NewErrorContext().
		WithOperation("check artifact").
		WithResource("/out/app.iprof").
		WithIssue(ArtifactIntegrityId).
		WithSuggestion("Rerun the instrument-run stage").
		WithSuggestions("Check disk space", "Check the profile dump flag").
		Wrap(errors.New("no sampling profiles")).
		Build()

	if err.Operation != "check artifact" || err.Resource != "/out/app.iprof" {
		t.Errorf("context = %q, %q", err.Operation, err.Resource)
	}
	if len(err.Suggestions) != 3 || !err.HasSuggestions() {
		t.Errorf("Suggestions = %v", err.Suggestions)
	}
	if err.Issue != ArtifactIntegrityId {
		t.Errorf("Issue = %d", err.Issue)
	}
	if err.Cause == nil || err.Cause.Error() != "no sampling profiles" {
		t.Errorf("Cause = %v", err.Cause)
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()
	ctx := NewErrorContext().WithOperation("run stage").WithResource("agent")

	err1 := ctx.Wrap(errors.New("error 1")).Build()
	err2 := ctx.Wrap(errors.New("error 2")).Build()

	if err1.Cause.Error() == err2.Cause.Error() {
		t.Error("reused context should allow different causes")
	}
	if err1.Operation != err2.Operation {
		t.Error("reused context should preserve the operation")
	}
}

func TestActionableError_Help(t *testing.T) {
	originalRender := render
	t.Cleanup(func() { render = originalRender })
	render = func(in, _ string) (string, error) { return in, nil }

	none := &ActionableError{Operation: "run stage"}
	if got, err := none.Help(""); err != nil || got != "" {
		t.Errorf("Help() without issue = %q, %v", got, err)
	}

	err := &ActionableError{Operation: "run stage", Issue: StageFailedId}
	got, rerr := err.Help("")
	if rerr != nil {
		t.Fatal(rerr)
	}
	if !strings.Contains(got, "Stage failed") {
		t.Errorf("Help() = %q", got)
	}
}
