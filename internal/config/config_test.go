// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/nibench/nibench/internal/issue"
	"github.com/nibench/nibench/internal/suite"
	"github.com/nibench/nibench/internal/testutil"
	"github.com/nibench/nibench/pkg/metrics"
	"github.com/nibench/nibench/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if cfg.OutputRoot != "." {
		t.Errorf("OutputRoot = %q, want .", cfg.OutputRoot)
	}
	if !slices.Equal(cfg.NonRunnableSuites, []string{"mushop", "quarkus"}) {
		t.Errorf("NonRunnableSuites = %v", cfg.NonRunnableSuites)
	}
	if cfg.UPXPath != "upx" || cfg.ObjdumpPath != "objdump" {
		t.Errorf("tool paths = %q, %q", cfg.UPXPath, cfg.ObjdumpPath)
	}
	if cfg.FatalOnFailure {
		t.Error("FatalOnFailure should default to false")
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if cfg.Metrics.Database.IsSet() || cfg.Metrics.PrometheusTextfile.IsSet() {
		t.Error("metric sinks should be disabled by default")
	}
}

func TestConfigDirOverride(t *testing.T) {
	SetConfigDirOverride("/tmp/nibench-test")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/nibench-test" {
		t.Errorf("ConfigDir() = %q", dir)
	}
}

func TestConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG lookup applies to Linux and other Unix systems")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	cfg, path, err := Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(filepath.Join(tmp, "cfg")),
		BaseDir:       types.FilesystemPath(tmp),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if cfg.UPXPath != "upx" || !slices.Equal(cfg.NonRunnableSuites, []string{"mushop", "quarkus"}) {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `
output_root: "/work/out"
graalvm_home: "/opt/graalvm"
fatal_on_failure: true
non_runnable_suites: ["quarkus"]
metrics: {
	database: "/work/metrics.db"
}
ui: {
	verbose: true
	color_scheme: "dark"
}
suites: [
	{
		name: "renaissance"
		version: "0.14.1"
		jvm_args: ["-Xmx2g"]
		accepted_exit_codes: [3]
		rules: [
			{pattern: "ops: (?P<ops>[0-9.]+)", metric: "throughput", unit: "op/s", better: "higher", value_group: "ops"},
		]
	},
]
`)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if cfg.OutputRoot != "/work/out" || cfg.Home() != "/opt/graalvm" {
		t.Errorf("paths = %q, %q", cfg.OutputRoot, cfg.Home())
	}
	if !cfg.FatalOnFailure || !cfg.UI.Verbose || cfg.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("flags not loaded: %+v", cfg)
	}
	if !slices.Equal(cfg.NonRunnableSuites, []string{"quarkus"}) {
		t.Errorf("NonRunnableSuites = %v", cfg.NonRunnableSuites)
	}
	if cfg.Metrics.Database != "/work/metrics.db" {
		t.Errorf("Metrics.Database = %q", cfg.Metrics.Database)
	}
	if cfg.UPXPath != "upx" {
		t.Errorf("unset fields should keep defaults, UPXPath = %q", cfg.UPXPath)
	}

	def := cfg.Suite("renaissance")
	if def.Version != "0.14.1" || !slices.Equal(def.JVMArgs, []string{"-Xmx2g"}) {
		t.Errorf("suite = %+v", def)
	}
	if !slices.Equal(def.AcceptedExitCodes, []int{3}) {
		t.Errorf("AcceptedExitCodes = %v", def.AcceptedExitCodes)
	}
	if len(def.Rules) != 1 || def.Rules[0].ValueGroup != "ops" || def.Rules[0].Better != "higher" {
		t.Errorf("Rules = %+v", def.Rules)
	}

	if unknown := cfg.Suite("dacapo"); unknown.Name != "dacapo" || len(unknown.JVMArgs) != 0 {
		t.Errorf("unknown suite = %+v", unknown)
	}

	env := cfg.Environment("/opt/graalvm")
	if env.OutputRoot != "/work/out" || env.Home != "/opt/graalvm" || !slices.Equal(env.NonRunnableSuites, []string{"quarkus"}) {
		t.Errorf("Environment() = %+v", env)
	}
}

func TestLoadFallsBackToBaseDir(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(tmp, "config.cue"), `java_home: "/usr/lib/jvm/graal"`+"\n")

	cfg, path, err := Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(filepath.Join(tmp, "empty")),
		BaseDir:       types.FilesystemPath(tmp),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != filepath.Join(tmp, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if cfg.Home() != "/usr/lib/jvm/graal" {
		t.Errorf("Home() = %q", cfg.Home())
	}
}

func TestLoadExplicitFile(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	file := filepath.Join(tmp, "custom.cue")
	testutil.MustWriteFile(t, file, `split_run_log: "/tmp/split.log"`+"\n")

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigFilePath: types.FilesystemPath(file)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != file || cfg.SplitRunLog != "/tmp/split.log" {
		t.Errorf("path = %q, SplitRunLog = %q", path, cfg.SplitRunLog)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"syntax error", "output_root: {", "config.cue"},
		{"unknown field", `container_engine: "docker"` + "\n", "container_engine"},
		{"wrong type", `fatal_on_failure: "yes"` + "\n", "fatal_on_failure"},
		{"bad color scheme", "ui: {color_scheme: \"neon\"}\n", "color_scheme"},
		{"bad exit code", "suites: [{name: \"x\", accepted_exit_codes: [300]}]\n", "accepted_exit_codes"},
		{"bad coercion", "suites: [{name: \"x\", rules: [{pattern: \"(?P<v>1)\", metric: \"m\", unit: \"\", value_group: \"v\", coercion: \"bool\"}]}]\n", "coercion"},
		{"missing value group", "suites: [{name: \"x\", rules: [{pattern: \"(?P<v>1)\", metric: \"m\", unit: \"\", value_group: \"w\"}]}]\n", "group"},
		{"duplicate suite", "suites: [{name: \"x\"}, {name: \"x\"}]\n", "duplicate suite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), tt.content)

			_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(dir)})
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be actionable, got %T: %v", err, err)
			}
			if !ae.HasSuggestions() {
				t.Error("actionable error should carry suggestions")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()
	_, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: "/nonexistent/config.cue"})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, LoadOptions{ConfigDirPath: types.FilesystemPath(t.TempDir())})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestCreateDefaultConfigRoundTrip(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested")

	path, err := CreateDefaultConfig(dir)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	_, err = CreateDefaultConfig(dir)
	if !errors.Is(err, ErrConfigExists) {
		t.Errorf("second call error = %v, want ErrConfigExists", err)
	}

	cfg, resolved, err := Load(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if resolved != path || cfg.UPXPath != "upx" {
		t.Errorf("resolved = %q, cfg = %+v", resolved, cfg)
	}
}

func TestGenerateCUESuitesRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.GraalVMHome = "/opt/graalvm"
	cfg.Metrics.PrometheusTextfile = "/var/lib/node_exporter/nibench.prom"
	cfg.Suites = []suite.Definition{{
		Name:              "renaissance",
		ImageBuildArgs:    []string{"-H:+ReportExceptionStackTraces"},
		AcceptedExitCodes: []int{1, 2},
		SkipSamplesCheck:  true,
		Rules: []metrics.Declared{{
			Pattern: `ops: (?P<ops>[0-9.]+)`, Metric: "throughput", Unit: "op/s",
			Better: "higher", ValueGroup: "ops", Coercion: "float", StartMarker: "warmup done",
		}},
	}}
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), GenerateCUE(cfg))

	got, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("Load() error = %v\n%s", err, GenerateCUE(cfg))
	}
	if got.GraalVMHome != "/opt/graalvm" || got.Metrics.PrometheusTextfile != cfg.Metrics.PrometheusTextfile {
		t.Errorf("scalars not preserved: %+v", got)
	}
	if len(got.Suites) != 1 {
		t.Fatalf("Suites = %+v", got.Suites)
	}
	s := got.Suites[0]
	if !slices.Equal(s.AcceptedExitCodes, []int{1, 2}) || !s.SkipSamplesCheck {
		t.Errorf("suite = %+v", s)
	}
	if len(s.Rules) != 1 || s.Rules[0] != cfg.Suites[0].Rules[0] {
		t.Errorf("rules = %+v", s.Rules)
	}
}
