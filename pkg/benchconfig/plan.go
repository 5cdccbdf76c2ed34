// SPDX-License-Identifier: MPL-2.0

package benchconfig

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/nibench/nibench/pkg/stages"
	"github.com/nibench/nibench/pkg/vmconfig"
)

const (
	// BenchmarksDirName is the directory under the output root holding all benchmark outputs.
	BenchmarksDirName = "native-image-benchmarks"
	// StatsFileName is the image build statistics report.
	StatsFileName = "image_build_statistics.json"
	// InstrumentSuffix is appended to the executable name of the instrumented image.
	InstrumentSuffix = "-instrument"

	unknownVersion    = "unknown"
	bundleApplyPrefix = "--bundle-apply="
	bundleCreateFlag  = "--bundle-create"
	bundleExt         = ".nib"
)

var (
	// Params are the tunable parameters offered to operators after a failure.
	Params = []string{
		"extra-image-build-argument", "extra-jvm-arg", "extra-run-arg", "extra-agent-run-arg",
		"extra-profile-run-arg", "extra-agent-profile-run-arg", "benchmark-output-dir",
		"stages", "skip-agent-assertions",
	}

	// DefaultNonRunnableSuites have no load generator yet.
	DefaultNonRunnableSuites = []string{"mushop", "quarkus"}
)

type (
	// Environment holds the host facts a build plan depends on.
	Environment struct {
		// OutputRoot is used when the suite does not override the output directory.
		OutputRoot string
		// Home is the toolchain home holding bin/native-image.
		Home string
		// NonRunnableSuites marks suites whose run stage must abort.
		NonRunnableSuites []string
	}

	// BuildPlan holds everything derived for one benchmark and configuration.
	// It is read-only after Derive.
	BuildPlan struct {
		Options       vmconfig.Options
		SuiteName     string
		BenchmarkName string
		Arguments

		ExtraImageBuildArgs      []string
		ExtraJVMArgs             []string
		ExtraAgentRunArgs        []string
		ExtraAgentlibOptions     []string
		ExtraProfileRunArgs      []string
		ExtraAgentProfileRunArgs []string
		SkipAgentAssertions      bool

		ExecutableName                string
		InstrumentationExecutableName string
		FinalImageName                string

		RootDir     string
		OutputDir   string
		ProfilePath string
		ConfigDir   string
		LogDir      string
		ReportsDir  string
		StatsFile   string

		// BundlePath is the local bundle copy when a bundle is applied.
		BundlePath string
		// BundleSource is the bundle file the copy is made from.
		BundleSource string
		// BundleCreatePath is the report directory of a bundle being created,
		// relative to OutputDir.
		BundleCreatePath string

		// BaseImageBuildArgs is the native-image command shared by both image stages.
		BaseImageBuildArgs []string
		// Removed lists the stages this configuration cannot run.
		Removed []stages.Stage
		// Runnable is false for suites whose run stage must abort.
		Runnable bool
	}
)

// Derive builds the plan for a benchmark invocation. It has no side effects;
// a bundle is only copied by CopyBundle.
func Derive(rawArgs []string, opts vmconfig.Options, suite Suite, env Environment) (*BuildPlan, error) {
	args, err := ExtractArguments(rawArgs)
	if err != nil {
		return nil, err
	}

	bench := suite.BenchmarkName()
	p := &BuildPlan{
		Options:       opts,
		SuiteName:     suite.Name(),
		BenchmarkName: bench,
		Arguments:     args,
	}

	p.ExtraImageBuildArgs = slices.Clone(suite.ExtraImageBuildArguments(bench, rawArgs))
	p.ImageRunArgs = suite.ExtraRunArgs(bench, rawArgs, slices.Clone(args.ImageRunArgs))
	p.ExtraJVMArgs = suite.ExtraJVMArgs(bench, rawArgs)
	p.ExtraAgentRunArgs = suite.ExtraAgentRunArgs(bench, rawArgs, slices.Clone(args.ImageRunArgs))
	p.ExtraAgentlibOptions = suite.ExtraAgentlibOptions(bench, rawArgs, slices.Clone(args.ImageRunArgs))
	for _, o := range p.ExtraAgentlibOptions {
		if strings.HasPrefix(o, "config-output-dir") {
			return nil, &ArgumentParsingError{Arg: o, Reason: "config-output-dir must not be set in the agentlib options"}
		}
	}
	// The safepoint sampler needs the run arguments unchanged.
	p.ExtraProfileRunArgs = suite.ExtraProfileRunArgs(bench, rawArgs, slices.Clone(args.ImageRunArgs), !opts.SafepointSampler())
	p.ExtraAgentProfileRunArgs = suite.ExtraAgentProfileRunArgs(bench, rawArgs, slices.Clone(args.ImageRunArgs))
	p.SkipAgentAssertions = suite.SkipAgentAssertions(bench, rawArgs)

	p.RootDir = env.OutputRoot
	if dir := suite.BenchmarkOutputDir(bench, rawArgs); dir != "" {
		p.RootDir = dir
	}
	root, err := filepath.Abs(p.RootDir)
	if err != nil {
		return nil, err
	}

	p.ExecutableName = ExecutableName(suite.Name(), suite.Version(), bench)
	p.InstrumentationExecutableName = p.ExecutableName + InstrumentSuffix
	p.FinalImageName = p.ExecutableName + "-" + opts.Name
	p.OutputDir = filepath.Join(root, BenchmarksDirName, p.ExecutableName+"-"+opts.Name)
	p.ProfilePath = filepath.Join(p.OutputDir, p.ExecutableName) + ".iprof"
	p.ConfigDir = filepath.Join(p.OutputDir, "config")
	p.LogDir = p.OutputDir

	if err := p.resolveBundles(); err != nil {
		return nil, err
	}

	p.ReportsDir = filepath.Join(p.OutputDir, "reports")
	if p.BundleCreatePath != "" {
		p.ReportsDir = joinUnder(p.OutputDir, p.BundleCreatePath)
	}
	p.StatsFile = filepath.Join(p.ReportsDir, StatsFileName)

	p.Removed = RemovedStages(opts)
	p.Runnable = !slices.Contains(nonRunnable(env), p.SuiteName)
	p.BaseImageBuildArgs = append(
		[]string{filepath.Join(env.Home, "bin", "native-image")},
		ExperimentalOptions(p.baseImageBuildArgs(suite)...)...,
	)

	return p, nil
}

func nonRunnable(env Environment) []string {
	if env.NonRunnableSuites == nil {
		return DefaultNonRunnableSuites
	}
	return env.NonRunnableSuites
}

// baseImageBuildArgs assembles the image builder flags in their fixed order.
func (p *BuildPlan) baseImageBuildArgs(suite Suite) []string {
	o := p.Options
	args := []string{"--no-fallback", "-g"}
	if o.Gate {
		args = append(args, "-H:+VerifyGraalGraphs", "-H:+VerifyPhases", "--diagnostics-mode")
	}
	args = append(args, "-H:+ReportExceptionStackTraces")
	args = append(args, suite.BuildAssertions(p.BenchmarkName, o.Gate)...)
	args = append(args, p.SystemProperties...)

	if p.BundlePath == "" {
		args = append(args, p.Classpath...)
		args = append(args, p.Modulepath...)
		args = append(args, p.Executable...)
		args = append(args, "-H:Path="+p.OutputDir)
	}
	args = append(args,
		"-H:ConfigurationFileDirectories="+p.ConfigDir,
		"-H:+PrintAnalysisStatistics",
		"-H:+PrintCallEdges",
		"-H:+CollectImageBuildStatistics",
	)

	if o.QuickBuild {
		args = append(args, "-Ob")
	}
	if o.StringInlining {
		args = append(args, "-H:+UseStringInlining")
	}
	if o.LLVM {
		args = append(args, "--features=org.graalvm.home.HomeFinderFeature", "-H:CompilerBackend=llvm", "-H:DeadlockWatchdogInterval=0")
	}
	if o.GC != vmconfig.GCDefault {
		args = append(args, "--gc="+string(o.GC), "-H:+SpawnIsolates")
	}
	if o.NativeArchitecture {
		args = append(args, "-march=native")
	}
	if o.AnalysisContextSensitivity != "" {
		args = append(args,
			"-H:AnalysisContextSensitivity="+string(o.AnalysisContextSensitivity),
			"-H:-RemoveSaturatedTypeFlows",
			"-H:+AliasArrayTypeFlows",
		)
	}
	if o.NoInliningBeforeAnalysis {
		args = append(args, "-H:-InlineBeforeAnalysis")
	}
	if o.OptimizationLevel != "" {
		args = append(args, "-"+string(o.OptimizationLevel))
	}
	if o.AsyncSampler() {
		args = append(args,
			"-R:+FlightRecorder",
			"-R:StartFlightRecording=filename=default.jfr",
			"--enable-monitoring=jfr",
			"-R:+JfrBasedExecutionSamplerStatistics",
		)
	}
	args = append(args, p.ImageVMArgs...)
	args = append(args, p.ExtraImageBuildArgs...)
	return args
}

// resolveBundles rewrites --bundle-apply to a copy inside OutputDir and
// records the report directory of --bundle-create.
func (p *BuildPlan) resolveBundles() error {
	for i, arg := range p.ExtraImageBuildArgs {
		if source, ok := strings.CutPrefix(arg, bundleApplyPrefix); ok {
			p.BundleSource = source
			p.BundlePath = filepath.Join(p.OutputDir, filepath.Base(source))
			p.ExtraImageBuildArgs[i] = bundleApplyPrefix + p.BundlePath
			break
		}
	}

	var createIdx []int
	for i, arg := range p.ExtraImageBuildArgs {
		if strings.HasPrefix(arg, bundleCreateFlag) {
			createIdx = append(createIdx, i)
		}
	}
	if len(createIdx) == 1 {
		i := createIdx[0]
		if i+1 >= len(p.ExtraImageBuildArgs) {
			return &ArgumentParsingError{Arg: p.ExtraImageBuildArgs[i], Reason: "missing bundle path"}
		}
		p.BundleCreatePath = filepath.Join(p.ExtraImageBuildArgs[i+1]+".output", "default", "reports")
	}
	return nil
}

// ExecutableName derives the lowercased executable name of a benchmark.
// Version dots become dashes, and an "unknown" version is left out.
func ExecutableName(suite, version, benchmark string) string {
	unique := suite
	if version != unknownVersion {
		unique = suite + "-" + strings.ReplaceAll(version, ".", "-")
	}
	if benchmark == "" {
		return strings.ToLower(unique)
	}
	return strings.ToLower(unique + "-" + benchmark)
}

// RemovedStages lists the stages the configuration cannot run.
func RemovedStages(o vmconfig.Options) []stages.Stage {
	removed := map[stages.Stage]bool{}
	if o.JDKProfilesCollect {
		removed[stages.Image] = true
		removed[stages.Run] = true
	}
	if o.ProfileInferenceFeatureExtraction {
		removed[stages.Run] = true
	}
	if o.AsyncSampler() || !o.PGOInstrumentation {
		removed[stages.InstrumentImage] = true
		removed[stages.InstrumentRun] = true
	}

	var out []stages.Stage
	for _, s := range stages.All() {
		if removed[s] {
			out = append(out, s)
		}
	}
	return out
}

// ExperimentalOptions wraps image builder options so experimental ones are accepted.
func ExperimentalOptions(opts ...string) []string {
	if len(opts) == 0 {
		return nil
	}
	out := make([]string, 0, len(opts)+2)
	out = append(out, "-H:+UnlockExperimentalVMOptions")
	out = append(out, opts...)
	return append(out, "-H:-UnlockExperimentalVMOptions")
}

// joinUnder joins rel onto dir unless rel is already absolute.
func joinUnder(dir, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(dir, rel)
}
