// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrHomeNotFound is returned when no toolchain home is configured.
var ErrHomeNotFound = errors.New("toolchain home not found: set graalvm_home in the config, GRAALVM_HOME or JAVA_HOME")

// homeEnvVars are consulted in order when no home is configured.
var homeEnvVars = []string{"GRAALVM_HOME", "JAVA_HOME"}

// ResolveHome returns the toolchain home: the configured path, else the
// first of GRAALVM_HOME and JAVA_HOME that is set.
func ResolveHome(configured string) (string, error) {
	return resolveHomeWith(configured, os.Getenv)
}

// resolveHomeWith resolves the home using the provided getenv function.
func resolveHomeWith(configured string, getenv func(string) string) (string, error) {
	if configured != "" {
		return filepath.Clean(configured), nil
	}
	for _, name := range homeEnvVars {
		if dir := getenv(name); dir != "" {
			return filepath.Clean(dir), nil
		}
	}
	return "", ErrHomeNotFound
}

// JavaExecutable is the java launcher of a toolchain home.
func JavaExecutable(home string) string {
	return filepath.Join(home, "bin", "java")
}
