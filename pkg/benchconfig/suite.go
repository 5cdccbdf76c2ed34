// SPDX-License-Identifier: MPL-2.0

package benchconfig

import "github.com/nibench/nibench/pkg/types"

// Suite supplies the benchmark-specific parts of a build plan.
//
// Every hook receives the benchmark name and the raw benchmark arguments.
// Hooks that take imageRunArgs receive a fresh copy they may modify.
type Suite interface {
	// Name is the suite name used in executable names and reports.
	Name() string
	// Version is the suite version, "unknown" when not versioned.
	Version() string
	// BenchmarkName is the benchmark being run.
	BenchmarkName() string

	ExtraImageBuildArguments(benchmark string, args []string) []string
	ExtraRunArgs(benchmark string, args, imageRunArgs []string) []string
	ExtraJVMArgs(benchmark string, args []string) []string
	ExtraAgentRunArgs(benchmark string, args, imageRunArgs []string) []string
	ExtraAgentlibOptions(benchmark string, args, imageRunArgs []string) []string
	// ExtraProfileRunArgs returns the instrumented image's run arguments.
	// When strip is false the run arguments must be kept as-is.
	ExtraProfileRunArgs(benchmark string, args, imageRunArgs []string, strip bool) []string
	ExtraAgentProfileRunArgs(benchmark string, args, imageRunArgs []string) []string
	// BenchmarkOutputDir overrides the output root, empty for the default.
	BenchmarkOutputDir(benchmark string, args []string) string
	SkipAgentAssertions(benchmark string, args []string) bool
	BuildAssertions(benchmark string, gate bool) []string

	// ValidateReturnCode reports whether a non-image stage may exit with code.
	ValidateReturnCode(code types.ExitCode) bool
	// CheckSamplesInPGO reports whether dumped profiles must contain sampling profiles.
	CheckSamplesInPGO() bool
}
