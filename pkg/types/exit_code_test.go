// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestExitCodeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "zero is valid", value: 0, wantValid: true},
		{name: "one is valid", value: 1, wantValid: true},
		{name: "137 is valid", value: 137, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
		{name: "large positive is invalid", value: 1000, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Errorf("ExitCode(%d).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if tt.wantValid {
				if err != nil {
					t.Errorf("ExitCode(%d).Validate() returned error for valid value: %v", tt.value, err)
				}
			} else {
				if err == nil {
					t.Error("ExitCode.Validate() returned nil for invalid value")
				}
				if !errors.Is(err, ErrInvalidExitCode) {
					t.Errorf("error does not wrap ErrInvalidExitCode: %v", err)
				}
			}
		})
	}
}

func TestExitCodeIsSuccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ExitCode
		want bool
	}{
		{0, true},
		{1, false},
		{137, false},
		{255, false},
	}

	for _, tt := range tests {
		if got := tt.code.IsSuccess(); got != tt.want {
			t.Errorf("ExitCode(%d).IsSuccess() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestExitCodeSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    ExitCode
		wantSig int
		wantOK  bool
	}{
		{0, 0, false},
		{1, 0, false},
		{128, 0, false},
		{137, 9, true},
		{143, 15, true},
		{256, 0, false},
	}

	for _, tt := range tests {
		sig, ok := tt.code.Signal()
		if sig != tt.wantSig || ok != tt.wantOK {
			t.Errorf("ExitCode(%d).Signal() = (%d, %v), want (%d, %v)", tt.code, sig, ok, tt.wantSig, tt.wantOK)
		}
	}
}

func TestExitCodeString(t *testing.T) {
	t.Parallel()

	if got := ExitCode(42).String(); got != "42" {
		t.Errorf("ExitCode(42).String() = %q, want %q", got, "42")
	}
	if got := ExitCode(137).String(); got != "137 (signal 9)" {
		t.Errorf("ExitCode(137).String() = %q, want %q", got, "137 (signal 9)")
	}
}

func TestArtifactIntegrityError(t *testing.T) {
	t.Parallel()

	err := error(&ArtifactIntegrityError{
		Path:   "/out/reports/stats.json",
		Source: "/tmp/build/stats.json",
		Reason: "matched file does not exist",
	})
	if !errors.Is(err, ErrArtifactIntegrity) {
		t.Errorf("errors.Is(err, ErrArtifactIntegrity) = false")
	}
	want := "artifact /out/reports/stats.json: matched file does not exist (matched from: /tmp/build/stats.json)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &ArtifactIntegrityError{Path: "p.iprof", Reason: "no sampling profiles"}
	if bare.Error() != "artifact p.iprof: no sampling profiles" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
