// SPDX-License-Identifier: MPL-2.0

package benchconfig

import (
	"slices"

	"github.com/nibench/nibench/pkg/types"
)

// fakeSuite is a Suite with fixed answers.
type fakeSuite struct {
	name, version, benchmark string
	buildArgs                []string
	jvmArgs                  []string
	agentlibOptions          []string
	outputDir                string
	assertions               []string
	acceptable               []types.ExitCode
	lastStrip                *bool
}

func (s *fakeSuite) Name() string          { return s.name }
func (s *fakeSuite) Version() string       { return s.version }
func (s *fakeSuite) BenchmarkName() string { return s.benchmark }

func (s *fakeSuite) ExtraImageBuildArguments(string, []string) []string { return s.buildArgs }

func (s *fakeSuite) ExtraRunArgs(_ string, _, imageRunArgs []string) []string { return imageRunArgs }

func (s *fakeSuite) ExtraJVMArgs(string, []string) []string { return s.jvmArgs }

func (s *fakeSuite) ExtraAgentRunArgs(_ string, _, imageRunArgs []string) []string {
	return imageRunArgs
}

func (s *fakeSuite) ExtraAgentlibOptions(string, []string, []string) []string {
	return s.agentlibOptions
}

func (s *fakeSuite) ExtraProfileRunArgs(_ string, _, imageRunArgs []string, strip bool) []string {
	if s.lastStrip != nil {
		*s.lastStrip = strip
	}
	if strip && len(imageRunArgs) > 0 {
		return imageRunArgs[:1]
	}
	return imageRunArgs
}

func (s *fakeSuite) ExtraAgentProfileRunArgs(_ string, _, imageRunArgs []string) []string {
	return imageRunArgs
}

func (s *fakeSuite) BenchmarkOutputDir(string, []string) string { return s.outputDir }

func (s *fakeSuite) SkipAgentAssertions(string, []string) bool { return false }

func (s *fakeSuite) BuildAssertions(_ string, gate bool) []string {
	if gate {
		return s.assertions
	}
	return nil
}

func (s *fakeSuite) ValidateReturnCode(code types.ExitCode) bool {
	return slices.Contains(s.acceptable, code)
}

func (s *fakeSuite) CheckSamplesInPGO() bool { return true }
