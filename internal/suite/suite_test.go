// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"errors"
	"slices"
	"testing"

	"github.com/nibench/nibench/pkg/metrics"
	"github.com/nibench/nibench/pkg/types"
)

func renaissance() Definition {
	return Definition{
		Name:              "renaissance",
		Version:           "0.15.0",
		ImageBuildArgs:    []string{"-H:+AllowFoldMethods"},
		JVMArgs:           []string{"-Xmx2g"},
		RunArgs:           []string{"--no-forced-gc"},
		ProfileRunArgs:    []string{"-r", "1"},
		AcceptedExitCodes: []int{137},
		Rules: []metrics.Declared{{
			Pattern: `====== (?P<bench>\w+) \(\w+\), iteration (?P<it>\d+) completed \((?P<value>[0-9.]+) ms\) ======`,
			Metric:     "warmup",
			Unit:       "ms",
			ValueGroup: "value",
		}},
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	defs := []Definition{renaissance()}
	if got := Find(defs, "renaissance"); got.Version != "0.15.0" {
		t.Errorf("Find(renaissance) = %+v", got)
	}
	s := New(Find(defs, "dacapo"), "luindex", Overrides{})
	if s.Name() != "dacapo" || s.Version() != UnknownVersion || s.BenchmarkName() != "luindex" {
		t.Errorf("unknown suite = %s %s %s", s.Name(), s.Version(), s.BenchmarkName())
	}
}

func TestStaticMergesOverrides(t *testing.T) {
	t.Parallel()

	s := New(renaissance(), "scrabble", Overrides{
		ImageBuildArgs:      []string{"-H:Log=registerResource"},
		JVMArgs:             []string{"-Dbench.debug=true"},
		RunArgs:             []string{"-r", "3"},
		ProfileRunArgs:      []string{"--profile"},
		OutputDir:           "/tmp/out",
		SkipAgentAssertions: true,
	})
	runArgs := []string{"scrabble"}

	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"image build", s.ExtraImageBuildArguments("scrabble", nil), []string{"-H:+AllowFoldMethods", "-H:Log=registerResource"}},
		{"jvm", s.ExtraJVMArgs("scrabble", nil), []string{"-Xmx2g", "-Dbench.debug=true"}},
		{"run", s.ExtraRunArgs("scrabble", nil, runArgs), []string{"scrabble", "--no-forced-gc", "-r", "3"}},
		{"agent run", s.ExtraAgentRunArgs("scrabble", nil, runArgs), []string{"scrabble"}},
		{"profile stripped", s.ExtraProfileRunArgs("scrabble", nil, runArgs, true), []string{"-r", "1", "--profile"}},
		{"profile kept", s.ExtraProfileRunArgs("scrabble", nil, runArgs, false), []string{"scrabble", "--profile"}},
		{"agent profile", s.ExtraAgentProfileRunArgs("scrabble", nil, runArgs), []string{"scrabble"}},
	}
	for _, tt := range tests {
		if !slices.Equal(tt.got, tt.want) {
			t.Errorf("%s args = %q, want %q", tt.name, tt.got, tt.want)
		}
	}

	if got := s.BenchmarkOutputDir("scrabble", nil); got != "/tmp/out" {
		t.Errorf("BenchmarkOutputDir() = %q", got)
	}
	if !s.SkipAgentAssertions("scrabble", nil) {
		t.Error("SkipAgentAssertions() = false, want the override")
	}
}

func TestBuildAssertions(t *testing.T) {
	t.Parallel()

	s := New(renaissance(), "scrabble", Overrides{})
	if got := s.BuildAssertions("scrabble", false); got != nil {
		t.Errorf("non-gate assertions = %q", got)
	}
	if got := s.BuildAssertions("scrabble", true); !slices.Equal(got, []string{"-ea", "-J-ea", "-J-esa"}) {
		t.Errorf("gate assertions = %q", got)
	}

	def := renaissance()
	def.BuildAssertions = []string{"-ea"}
	if got := New(def, "scrabble", Overrides{}).BuildAssertions("scrabble", true); !slices.Equal(got, []string{"-ea"}) {
		t.Errorf("custom gate assertions = %q", got)
	}
}

func TestValidateReturnCode(t *testing.T) {
	t.Parallel()

	s := New(renaissance(), "scrabble", Overrides{})
	for code, want := range map[types.ExitCode]bool{0: true, 137: true, 1: false} {
		if got := s.ValidateReturnCode(code); got != want {
			t.Errorf("ValidateReturnCode(%d) = %v, want %v", code, got, want)
		}
	}
	if !s.CheckSamplesInPGO() {
		t.Error("samples are checked by default")
	}
}

func TestRules(t *testing.T) {
	t.Parallel()

	s := New(renaissance(), "scrabble", Overrides{})
	rules, err := s.Rules()
	if err != nil {
		t.Fatalf("Rules() error = %v", err)
	}
	records, err := metrics.Evaluate(rules, "====== scrabble (functional), iteration 0 completed (123.5 ms) ======\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Name() != "warmup" || records[0].Benchmark() != "scrabble" {
		t.Errorf("records = %v", records)
	}

	def := renaissance()
	def.Rules = []metrics.Declared{{Pattern: "(", Metric: "broken"}}
	if _, err := New(def, "scrabble", Overrides{}).Rules(); !errors.Is(err, metrics.ErrInvalidRule) {
		t.Errorf("Rules() error = %v, want ErrInvalidRule", err)
	}
}
