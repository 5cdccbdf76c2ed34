// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/nibench/nibench/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "nibench"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

// ErrConfigExists is returned by CreateDefaultConfig when the file is already present.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the nibench configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultConfigPath returns the config file path inside dir, or inside
// ConfigDir when dir is empty.
func DefaultConfigPath(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// Load resolves and loads the configuration. It returns the path of the file
// that was read, or "" when only defaults apply.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}
	return loadWithOptions(ctx, opts)
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("output_root", defaults.OutputRoot.String())
	v.SetDefault("fatal_on_failure", defaults.FatalOnFailure)
	v.SetDefault("non_runnable_suites", defaults.NonRunnableSuites)
	v.SetDefault("upx_path", defaults.UPXPath.String())
	v.SetDefault("objdump_path", defaults.ObjdumpPath.String())
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme.String())
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	if opts.ConfigFilePath.IsSet() {
		path := opts.ConfigFilePath.String()
		if !fileExists(path) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'nibench config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolvedPath = path
	} else {
		cuePath, err := DefaultConfigPath(opts.ConfigDirPath.String())
		if err != nil {
			return nil, "", err
		}
		localPath := ConfigFileName + "." + ConfigFileExt
		if opts.BaseDir.IsSet() {
			localPath = filepath.Join(opts.BaseDir.String(), localPath)
		}

		for _, candidate := range []string{cuePath, localPath} {
			if !fileExists(candidate) {
				continue
			}
			if err := loadCUEIntoViper(v, candidate); err != nil {
				return nil, "", loadError(candidate, err)
			}
			resolvedPath = candidate
			break
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(resolvedPath).
			WithSuggestion("Ensure each suite name appears once").
			WithSuggestion("Check that every declared rule pattern compiles and names its value group").
			Wrap(err).
			BuildError()
	}

	cfg.source = resolvedPath
	return &cfg, resolvedPath, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithIssue(issue.ConfigLoadFailedId).
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("Run 'nibench config show' to see the effective configuration").
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	// Fields are optional, so only the supplied values must be concrete.
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file into dir (ConfigDir when
// empty) and returns its path. An existing file is left untouched and
// reported with ErrConfigExists.
func CreateDefaultConfig(dir string) (string, error) {
	cfgPath, err := DefaultConfigPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, fmt.Errorf("%w: %s", ErrConfigExists, cfgPath)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
// Suites are written without their metric rules' optional fields when empty.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// nibench configuration file\n\n")

	fmt.Fprintf(&sb, "output_root: %q\n", cfg.OutputRoot)
	writeOptional(&sb, "", "graalvm_home", cfg.GraalVMHome.String())
	writeOptional(&sb, "", "java_home", cfg.JavaHome.String())
	writeOptional(&sb, "", "split_run_log", cfg.SplitRunLog.String())
	fmt.Fprintf(&sb, "fatal_on_failure: %v\n", cfg.FatalOnFailure)
	fmt.Fprintf(&sb, "non_runnable_suites: %s\n", cueList(cfg.NonRunnableSuites))
	fmt.Fprintf(&sb, "upx_path: %q\n", cfg.UPXPath)
	fmt.Fprintf(&sb, "objdump_path: %q\n", cfg.ObjdumpPath)
	writeOptional(&sb, "", "adopted_jdk_profile", cfg.AdoptedJDKProfile.String())

	sb.WriteString("\nmetrics: {\n")
	fmt.Fprintf(&sb, "\tdatabase: %q\n", cfg.Metrics.Database)
	fmt.Fprintf(&sb, "\tprometheus_textfile: %q\n", cfg.Metrics.PrometheusTextfile)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	if len(cfg.Suites) == 0 {
		return sb.String()
	}

	sb.WriteString("\nsuites: [\n")
	for _, s := range cfg.Suites {
		sb.WriteString("\t{\n")
		fmt.Fprintf(&sb, "\t\tname: %q\n", s.Name)
		writeOptional(&sb, "\t\t", "version", s.Version)
		writeList(&sb, "\t\t", "image_build_args", s.ImageBuildArgs)
		writeList(&sb, "\t\t", "jvm_args", s.JVMArgs)
		writeList(&sb, "\t\t", "run_args", s.RunArgs)
		writeList(&sb, "\t\t", "agent_run_args", s.AgentRunArgs)
		writeList(&sb, "\t\t", "agentlib_options", s.AgentlibOptions)
		writeList(&sb, "\t\t", "profile_run_args", s.ProfileRunArgs)
		writeList(&sb, "\t\t", "agent_profile_run_args", s.AgentProfileRunArgs)
		writeOptional(&sb, "\t\t", "output_dir", s.OutputDir)
		if s.SkipAgentAssertions {
			sb.WriteString("\t\tskip_agent_assertions: true\n")
		}
		writeList(&sb, "\t\t", "build_assertions", s.BuildAssertions)
		if len(s.AcceptedExitCodes) > 0 {
			codes := make([]string, len(s.AcceptedExitCodes))
			for i, c := range s.AcceptedExitCodes {
				codes[i] = fmt.Sprint(c)
			}
			fmt.Fprintf(&sb, "\t\taccepted_exit_codes: [%s]\n", strings.Join(codes, ", "))
		}
		if s.SkipSamplesCheck {
			sb.WriteString("\t\tskip_samples_check: true\n")
		}
		if len(s.Rules) > 0 {
			sb.WriteString("\t\trules: [\n")
			for _, r := range s.Rules {
				fmt.Fprintf(&sb, "\t\t\t{pattern: %q, metric: %q, unit: %q, value_group: %q", r.Pattern, r.Metric, r.Unit, r.ValueGroup)
				for _, kv := range [][2]string{{"better", r.Better}, {"coercion", r.Coercion}, {"object", r.Object}, {"start_marker", r.StartMarker}} {
					if kv[1] != "" {
						fmt.Fprintf(&sb, ", %s: %q", kv[0], kv[1])
					}
				}
				sb.WriteString("},\n")
			}
			sb.WriteString("\t\t]\n")
		}
		sb.WriteString("\t},\n")
	}
	sb.WriteString("]\n")

	return sb.String()
}

func writeOptional(sb *strings.Builder, indent, key, value string) {
	if value != "" {
		fmt.Fprintf(sb, "%s%s: %q\n", indent, key, value)
	}
}

func writeList(sb *strings.Builder, indent, key string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(sb, "%s%s: %s\n", indent, key, cueList(values))
	}
}

func cueList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
