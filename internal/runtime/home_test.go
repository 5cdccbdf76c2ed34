// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolveHome(t *testing.T) {
	t.Parallel()

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	tests := []struct {
		name       string
		configured string
		vars       map[string]string
		want       string
		wantErr    bool
	}{
		{name: "configured wins", configured: "/opt/gvm/", vars: map[string]string{"GRAALVM_HOME": "/g"}, want: "/opt/gvm"},
		{name: "graalvm home", vars: map[string]string{"GRAALVM_HOME": "/g", "JAVA_HOME": "/j"}, want: "/g"},
		{name: "java home", vars: map[string]string{"JAVA_HOME": "/j"}, want: "/j"},
		{name: "none", vars: map[string]string{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveHomeWith(tt.configured, env(tt.vars))
			if tt.wantErr {
				if !errors.Is(err, ErrHomeNotFound) {
					t.Errorf("resolveHomeWith() error = %v, want ErrHomeNotFound", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolveHomeWith() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestJavaExecutable(t *testing.T) {
	t.Parallel()

	if got := JavaExecutable("/opt/gvm"); got != filepath.Join("/opt/gvm", "bin", "java") {
		t.Errorf("JavaExecutable() = %q", got)
	}
}
