// SPDX-License-Identifier: MPL-2.0

package benchconfig

import (
	"path/filepath"
	"strings"
)

const (
	// agentProcessorLimit caps the agent run's parallelism; JVMTI operations
	// scale badly beyond it.
	agentProcessorLimit = 8

	inferenceDumpFileFlag = "ProfileInferenceDumpFile"
)

// ConfigTypes are the reachability configuration files whose sizes are reported.
var ConfigTypes = []string{"jni", "proxy", "predefined-classes", "reflect", "resource", "serialization"}

// AgentCommand runs the benchmark on the JVM under the tracing agent.
func (p *BuildPlan) AgentCommand(java string, cpuCount int) []string {
	cmd := []string{java}
	if p.Options.Gate && !p.SkipAgentAssertions {
		cmd = append(cmd, "-ea", "-esa")
	}
	cmd = append(cmd, p.ExtraJVMArgs...)
	agentlib := append([]string{"native-image-agent=config-output-dir=" + p.ConfigDir}, p.ExtraAgentlibOptions...)
	cmd = append(cmd, "-agentlib:"+strings.Join(agentlib, ","))
	// Lambda classes must be created the same way as in the image.
	cmd = append(cmd, "-Djdk.internal.lambda.disableEagerInitialization=true")
	cmd = append(cmd, "-XX:-UseJVMCICompiler")
	if cpuCount > agentProcessorLimit {
		cmd = append(cmd, "-XX:ActiveProcessorCount=8")
	}
	cmd = append(cmd, p.ImageVMArgs...)
	cmd = append(cmd, p.Classpath...)
	cmd = append(cmd, p.Modulepath...)
	cmd = append(cmd, p.SystemProperties...)
	cmd = append(cmd, p.Executable...)
	return append(cmd, p.ExtraAgentRunArgs...)
}

// InstrumentImageCommand builds the instrumented image. profilingPrefixes is
// only used when collecting JDK profiles.
func (p *BuildPlan) InstrumentImageCommand(profilingPrefixes string) []string {
	cmd := append([]string(nil), p.BaseImageBuildArgs...)
	cmd = append(cmd, "-o", p.InstrumentationExecutableName)
	cmd = append(cmd, "--pgo-instrument", "-R:ProfilesDumpFile="+p.ProfilePath)
	if p.Options.JDKProfilesCollect {
		cmd = append(cmd, ExperimentalOptions(
			"-H:+AOTPriorityInline",
			"-H:-SamplingCollect",
			"-H:ProfilingPackagePrefixes="+profilingPrefixes,
		)...)
	}
	return cmd
}

// InstrumentRunCommand runs the instrumented image to dump the profile.
func (p *BuildPlan) InstrumentRunCommand() []string {
	cmd := []string{p.InstrumentedImagePath()}
	cmd = append(cmd, p.ExtraJVMArgs...)
	return append(cmd, p.ExtraProfileRunArgs...)
}

// ImageCommand builds the final image. adoptedProfile is only used with
// adopted JDK profiles.
func (p *BuildPlan) ImageCommand(adoptedProfile string) []string {
	o := p.Options
	cmd := append([]string(nil), p.BaseImageBuildArgs...)
	cmd = append(cmd, "-o", p.FinalImageName)
	if o.PGOInstrumentation {
		sign := "+"
		if !o.PGOContextSensitive {
			sign = "-"
		}
		cmd = append(cmd, "--pgo="+p.ProfilePath)
		cmd = append(cmd, ExperimentalOptions("-H:"+sign+"PGOContextSensitivityEnabled")...)
	}
	if o.AdoptedJDKPGO && adoptedProfile != "" {
		cmd = append(cmd, ExperimentalOptions("-H:AdoptedPGOEnabled="+adoptedProfile)...)
	}
	if o.ProfileInferenceFeatureExtraction {
		cmd = append(cmd, ExperimentalOptions("-H:+MLGraphFeaturesExtraction", "-H:+ProfileInferenceDumpFeatures")...)
	}
	return cmd
}

// MissingInferenceDumpFile reports whether profile inference features are
// extracted without an explicit dump location.
func (p *BuildPlan) MissingInferenceDumpFile() bool {
	return p.Options.ProfileInferenceFeatureExtraction &&
		!strings.Contains(strings.Join(p.BaseImageBuildArgs, ""), inferenceDumpFileFlag)
}

// RunCommand runs the final image.
func (p *BuildPlan) RunCommand() []string {
	cmd := []string{p.FinalImagePath()}
	cmd = append(cmd, p.ExtraJVMArgs...)
	return append(cmd, p.ImageRunArgs...)
}

// InstrumentedImagePath is the instrumented executable.
func (p *BuildPlan) InstrumentedImagePath() string {
	return filepath.Join(p.OutputDir, p.InstrumentationExecutableName)
}

// FinalImagePath is the final executable.
func (p *BuildPlan) FinalImagePath() string {
	return filepath.Join(p.OutputDir, p.FinalImageName)
}

// BinaryPath is the executable whose size is reported. A created bundle
// places the image next to its reports.
func (p *BuildPlan) BinaryPath() string {
	if p.BundleCreatePath == "" {
		return p.FinalImagePath()
	}
	dir := strings.TrimSuffix(p.BundleCreatePath, "reports")
	name, _, _ := strings.Cut(p.BundleCreatePath, ".")
	return filepath.Join(joinUnder(p.OutputDir, dir), filepath.Base(name))
}

// ConfigZipPath is the archive of the agent's configuration files.
func (p *BuildPlan) ConfigZipPath() string {
	return filepath.Join(p.ConfigDir, "config.zip")
}

// ConfigFilePath is the agent configuration file of the given type.
func (p *BuildPlan) ConfigFilePath(configType string) string {
	return filepath.Join(p.ConfigDir, configType+"-config.json")
}
