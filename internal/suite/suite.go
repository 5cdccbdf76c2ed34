// SPDX-License-Identifier: MPL-2.0

// Package suite implements the benchmark suite callbacks from a declarative
// definition loaded from the configuration, merged with command-line
// overrides.
package suite

import (
	"fmt"
	"slices"

	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/metrics"
	"github.com/nibench/nibench/pkg/types"
)

// UnknownVersion is the version of suites that are not versioned.
const UnknownVersion = "unknown"

var gateBuildAssertions = []string{"-ea", "-J-ea", "-J-esa"}

type (
	// Definition declares a benchmark suite.
	Definition struct {
		Name    string `json:"name" mapstructure:"name"`
		Version string `json:"version,omitempty" mapstructure:"version"`

		ImageBuildArgs      []string `json:"image_build_args,omitempty" mapstructure:"image_build_args"`
		JVMArgs             []string `json:"jvm_args,omitempty" mapstructure:"jvm_args"`
		RunArgs             []string `json:"run_args,omitempty" mapstructure:"run_args"`
		AgentRunArgs        []string `json:"agent_run_args,omitempty" mapstructure:"agent_run_args"`
		AgentlibOptions     []string `json:"agentlib_options,omitempty" mapstructure:"agentlib_options"`
		ProfileRunArgs      []string `json:"profile_run_args,omitempty" mapstructure:"profile_run_args"`
		AgentProfileRunArgs []string `json:"agent_profile_run_args,omitempty" mapstructure:"agent_profile_run_args"`
		OutputDir           string   `json:"output_dir,omitempty" mapstructure:"output_dir"`
		SkipAgentAssertions bool     `json:"skip_agent_assertions,omitempty" mapstructure:"skip_agent_assertions"`
		// BuildAssertions replaces the default gate assertions when set.
		BuildAssertions []string `json:"build_assertions,omitempty" mapstructure:"build_assertions"`
		// AcceptedExitCodes are non-zero exits the benchmark is expected to produce.
		AcceptedExitCodes []int `json:"accepted_exit_codes,omitempty" mapstructure:"accepted_exit_codes"`
		// SkipSamplesCheck disables the sampling profile check of dumped profiles.
		SkipSamplesCheck bool `json:"skip_samples_check,omitempty" mapstructure:"skip_samples_check"`

		Rules []metrics.Declared `json:"rules,omitempty" mapstructure:"rules"`
	}

	// Overrides are the tunable parameters given for a single invocation.
	// They extend the definition's lists and override its scalars.
	Overrides struct {
		ImageBuildArgs      []string
		JVMArgs             []string
		RunArgs             []string
		AgentRunArgs        []string
		ProfileRunArgs      []string
		AgentProfileRunArgs []string
		OutputDir           string
		SkipAgentAssertions bool
	}

	// Static is a suite with fixed callbacks. It implements benchconfig.Suite.
	Static struct {
		def       Definition
		benchmark string
		ovr       Overrides
	}
)

var _ benchconfig.Suite = (*Static)(nil)

// Find returns the definition named name. Unknown suites get an empty
// definition, so any benchmark can run without configuration.
func Find(defs []Definition, name string) Definition {
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	return Definition{Name: name}
}

// New creates the suite for one benchmark.
func New(def Definition, benchmark string, ovr Overrides) *Static {
	if def.Version == "" {
		def.Version = UnknownVersion
	}
	return &Static{def: def, benchmark: benchmark, ovr: ovr}
}

// Name implements benchconfig.Suite.
func (s *Static) Name() string { return s.def.Name }

// Version implements benchconfig.Suite.
func (s *Static) Version() string { return s.def.Version }

// BenchmarkName implements benchconfig.Suite.
func (s *Static) BenchmarkName() string { return s.benchmark }

// ExtraImageBuildArguments implements benchconfig.Suite.
func (s *Static) ExtraImageBuildArguments(string, []string) []string {
	return slices.Concat(s.def.ImageBuildArgs, s.ovr.ImageBuildArgs)
}

// ExtraRunArgs implements benchconfig.Suite.
func (s *Static) ExtraRunArgs(_ string, _, imageRunArgs []string) []string {
	return slices.Concat(imageRunArgs, s.def.RunArgs, s.ovr.RunArgs)
}

// ExtraJVMArgs implements benchconfig.Suite.
func (s *Static) ExtraJVMArgs(string, []string) []string {
	return slices.Concat(s.def.JVMArgs, s.ovr.JVMArgs)
}

// ExtraAgentRunArgs implements benchconfig.Suite. The agent runs the
// benchmark's own arguments unless the definition replaces them.
func (s *Static) ExtraAgentRunArgs(_ string, _, imageRunArgs []string) []string {
	return slices.Concat(orDefault(s.def.AgentRunArgs, imageRunArgs), s.ovr.AgentRunArgs)
}

// ExtraAgentlibOptions implements benchconfig.Suite.
func (s *Static) ExtraAgentlibOptions(string, []string, []string) []string {
	return slices.Clone(s.def.AgentlibOptions)
}

// ExtraProfileRunArgs implements benchconfig.Suite. The definition's
// shortened profiling arguments are only used when stripping is allowed.
func (s *Static) ExtraProfileRunArgs(_ string, _, imageRunArgs []string, strip bool) []string {
	args := imageRunArgs
	if strip {
		args = orDefault(s.def.ProfileRunArgs, imageRunArgs)
	}
	return slices.Concat(args, s.ovr.ProfileRunArgs)
}

// ExtraAgentProfileRunArgs implements benchconfig.Suite.
func (s *Static) ExtraAgentProfileRunArgs(_ string, _, imageRunArgs []string) []string {
	return slices.Concat(orDefault(s.def.AgentProfileRunArgs, imageRunArgs), s.ovr.AgentProfileRunArgs)
}

// BenchmarkOutputDir implements benchconfig.Suite.
func (s *Static) BenchmarkOutputDir(string, []string) string {
	if s.ovr.OutputDir != "" {
		return s.ovr.OutputDir
	}
	return s.def.OutputDir
}

// SkipAgentAssertions implements benchconfig.Suite.
func (s *Static) SkipAgentAssertions(string, []string) bool {
	return s.def.SkipAgentAssertions || s.ovr.SkipAgentAssertions
}

// BuildAssertions implements benchconfig.Suite.
func (s *Static) BuildAssertions(_ string, gate bool) []string {
	if !gate {
		return nil
	}
	if len(s.def.BuildAssertions) > 0 {
		return slices.Clone(s.def.BuildAssertions)
	}
	return slices.Clone(gateBuildAssertions)
}

// ValidateReturnCode implements benchconfig.Suite.
func (s *Static) ValidateReturnCode(code types.ExitCode) bool {
	return code == 0 || slices.Contains(s.def.AcceptedExitCodes, int(code))
}

// CheckSamplesInPGO implements benchconfig.Suite.
func (s *Static) CheckSamplesInPGO() bool { return !s.def.SkipSamplesCheck }

// Rules compiles the declared metric rules for the benchmark.
func (s *Static) Rules() ([]metrics.Rule, error) {
	rules := make([]metrics.Rule, 0, len(s.def.Rules))
	for i, d := range s.def.Rules {
		r, err := d.Compile(s.benchmark)
		if err != nil {
			return nil, fmt.Errorf("suite %s rule %d: %w", s.def.Name, i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func orDefault(list, def []string) []string {
	if len(list) > 0 {
		return list
	}
	return def
}
