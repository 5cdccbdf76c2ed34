// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nibench/nibench/internal/suite"
	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// OutputRoot is where native-image-benchmarks/ is created.
		OutputRoot types.FilesystemPath `json:"output_root" mapstructure:"output_root"`
		// GraalVMHome is the toolchain home; empty falls back to the environment.
		GraalVMHome types.FilesystemPath `json:"graalvm_home" mapstructure:"graalvm_home"`
		// JavaHome is used when GraalVMHome is not set.
		JavaHome types.FilesystemPath `json:"java_home" mapstructure:"java_home"`
		// SplitRunLog receives one PASS/FAILURE line per stage.
		SplitRunLog types.FilesystemPath `json:"split_run_log" mapstructure:"split_run_log"`
		// FatalOnFailure aborts the benchmark on the first stage failure.
		FatalOnFailure bool `json:"fatal_on_failure" mapstructure:"fatal_on_failure"`
		// NonRunnableSuites lists suites whose run stage must abort.
		NonRunnableSuites []string             `json:"non_runnable_suites" mapstructure:"non_runnable_suites"`
		UPXPath           types.FilesystemPath `json:"upx_path" mapstructure:"upx_path"`
		ObjdumpPath       types.FilesystemPath `json:"objdump_path" mapstructure:"objdump_path"`
		// AdoptedJDKProfile is the profile used by adopted-jdk-pgo configurations.
		AdoptedJDKProfile types.FilesystemPath `json:"adopted_jdk_profile" mapstructure:"adopted_jdk_profile"`

		Metrics MetricsConfig      `json:"metrics" mapstructure:"metrics"`
		UI      UIConfig           `json:"ui" mapstructure:"ui"`
		Suites  []suite.Definition `json:"suites" mapstructure:"suites"`

		source string
	}

	// MetricsConfig configures where extracted metrics go.
	MetricsConfig struct {
		// Database is the SQLite metric store. Empty disables persistence.
		Database types.FilesystemPath `json:"database" mapstructure:"database"`
		// PrometheusTextfile receives stage telemetry. Empty disables it.
		PrometheusTextfile types.FilesystemPath `json:"prometheus_textfile" mapstructure:"prometheus_textfile"`
	}

	// UIConfig contains UI-related configuration.
	UIConfig struct {
		// ColorScheme sets the color scheme ("auto", "dark", "light").
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging by default.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputRoot:        ".",
		NonRunnableSuites: slices.Clone(benchconfig.DefaultNonRunnableSuites),
		UPXPath:           "upx",
		ObjdumpPath:       "objdump",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// Home returns the configured toolchain home, preferring graalvm_home over java_home.
func (c *Config) Home() string {
	if c.GraalVMHome.IsSet() {
		return c.GraalVMHome.String()
	}
	return c.JavaHome.String()
}

// Source returns the file the configuration was read from, or "" when only
// defaults apply.
func (c *Config) Source() string { return c.source }

// Environment returns the host facts a build plan needs, given the resolved home.
func (c *Config) Environment(home string) benchconfig.Environment {
	return benchconfig.Environment{
		OutputRoot:        c.OutputRoot.String(),
		Home:              home,
		NonRunnableSuites: slices.Clone(c.NonRunnableSuites),
	}
}

// Suite returns the suite definition named name.
func (c *Config) Suite(name string) suite.Definition {
	return suite.Find(c.Suites, name)
}

// Validate checks constraints that the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	for _, p := range []types.FilesystemPath{
		c.OutputRoot, c.GraalVMHome, c.JavaHome, c.SplitRunLog, c.UPXPath, c.ObjdumpPath,
		c.AdoptedJDKProfile, c.Metrics.Database, c.Metrics.PrometheusTextfile,
	} {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]int)
	for i, def := range c.Suites {
		if first, ok := seen[def.Name]; ok {
			errs = append(errs, fmt.Errorf("suites[%d]: duplicate suite %q (same as suites[%d])", i, def.Name, first))
			continue
		}
		seen[def.Name] = i
		for j, r := range def.Rules {
			if _, err := r.Compile(""); err != nil {
				errs = append(errs, fmt.Errorf("suites[%d].rules[%d]: %w", i, j, err))
			}
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Validate returns an error if the color scheme is not recognized.
// The zero value is treated as auto.
func (s ColorScheme) Validate() error {
	switch s {
	case "", ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: s}
	}
}

// String returns the string representation of the ColorScheme.
func (s ColorScheme) String() string { return string(s) }

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
