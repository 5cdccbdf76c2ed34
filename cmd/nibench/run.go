// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nibench/nibench/internal/auditlog"
	"github.com/nibench/nibench/internal/config"
	"github.com/nibench/nibench/internal/executor"
	"github.com/nibench/nibench/internal/issue"
	"github.com/nibench/nibench/internal/metricstore"
	"github.com/nibench/nibench/internal/pipeline"
	"github.com/nibench/nibench/internal/suite"
	"github.com/nibench/nibench/internal/telemetry"
	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/metrics"
	"github.com/nibench/nibench/pkg/stages"
	"github.com/nibench/nibench/pkg/types"
	"github.com/nibench/nibench/pkg/vmconfig"
)

// defaultSuite names benchmarks run without --suite.
const defaultSuite = "custom"

type (
	// benchmarkFlags are the flags shared by run and plan.
	benchmarkFlags struct {
		suite     string
		benchmark string
		stages    string
		stage     string
		splitRun  string
		overrides suite.Overrides
	}

	// benchmark is everything prepared for one invocation before any stage runs.
	benchmark struct {
		cfg     *config.Config
		options vmconfig.Options
		suite   *suite.Static
		plan    *benchconfig.BuildPlan
		stages  *stages.Plan
		home    string
	}
)

func newRunCommand(app *App) *cobra.Command {
	flags := &benchmarkFlags{}
	var gateFatal bool

	runCmd := &cobra.Command{
		Use:   "run <config-name> [flags] -- <vm args> <executable> <run args>",
		Short: "Run the stages of a native-image benchmark",
		Long: `Run the stages of a native-image benchmark.

The configuration name selects the image build options. The arguments after
'--' are split into VM arguments, the executable ('-jar <file>', '-m <module>'
or a main class) and the arguments passed to the benchmark.

Without --stage every selected stage runs in this invocation. With --stage
only that stage runs, so that parallel jobs can each run one stage.

Remediation flags printed after a failure, such as '--stages=image', may be
appended to the end of the command line.`,
		Example: `  nibench run g1gc-pgo-ee --suite=renaissance --benchmark=scrabble -- -jar renaissance.jar scrabble
  nibench run default-ce --benchmark=hello --stages=image,run -- -cp app.jar Main`,
		Args: benchmarkArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawArgs, err := splitTrailingParams(cmd, args[1:])
			if err != nil {
				return err
			}
			return runBenchmark(cmd, app, args[0], rawArgs, flags, gateFatal)
		},
	}

	addBenchmarkFlags(runCmd, flags)
	runCmd.Flags().BoolVar(&gateFatal, "gate-fatal", false, "abort the benchmark on the first stage failure")
	return runCmd
}

// addBenchmarkFlags registers the selection and tuning flags. The tuning
// flag names are the remediation parameters printed after a failure.
func addBenchmarkFlags(cmd *cobra.Command, f *benchmarkFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.suite, "suite", defaultSuite, "benchmark suite name (selects a suite definition from the config)")
	fs.StringVar(&f.benchmark, "benchmark", "", "benchmark name")
	fs.StringVar(&f.stages, "stages", "", "comma-separated stages to select (default all: "+strings.Join(stages.Names(), ",")+")")
	fs.StringVar(&f.stage, "stage", "", "run only this stage of the selection")
	fs.StringVar(&f.splitRun, "split-run", "", "append one PASS/FAILURE line per stage to this file")

	fs.StringArrayVar(&f.overrides.ImageBuildArgs, "extra-image-build-argument", nil, "extra image builder argument (repeatable)")
	fs.StringArrayVar(&f.overrides.JVMArgs, "extra-jvm-arg", nil, "extra VM argument (repeatable)")
	fs.StringArrayVar(&f.overrides.RunArgs, "extra-run-arg", nil, "extra benchmark run argument (repeatable)")
	fs.StringArrayVar(&f.overrides.AgentRunArgs, "extra-agent-run-arg", nil, "extra agent run argument (repeatable)")
	fs.StringArrayVar(&f.overrides.ProfileRunArgs, "extra-profile-run-arg", nil, "extra profiling run argument (repeatable)")
	fs.StringArrayVar(&f.overrides.AgentProfileRunArgs, "extra-agent-profile-run-arg", nil, "extra agent profiling run argument (repeatable)")
	fs.StringVar(&f.overrides.OutputDir, "benchmark-output-dir", "", "root directory of the benchmark outputs")
	fs.BoolVar(&f.overrides.SkipAgentAssertions, "skip-agent-assertions", false, "run the agent without -ea -esa")

	_ = cmd.MarkFlagRequired("benchmark")
}

// benchmarkArgs requires the configuration name before '--' and at least
// the executable after it.
func benchmarkArgs(cmd *cobra.Command, args []string) error {
	dash := cmd.ArgsLenAtDash()
	switch {
	case len(args) == 0 || dash == 0:
		return errors.New("missing configuration name")
	case dash == -1 && len(args) > 1:
		return fmt.Errorf("benchmark arguments must follow '--', got %q", args[1:])
	case dash > 1:
		return fmt.Errorf("expected one configuration name before '--', got %q", args[:dash])
	case len(args) < 2:
		return errors.New("missing benchmark arguments after '--'")
	}
	return nil
}

// splitTrailingParams moves trailing `--<param>=<value>` tokens naming a
// remediation parameter from the benchmark arguments onto the flags. Empty
// values are dropped.
func splitTrailingParams(cmd *cobra.Command, args []string) ([]string, error) {
	end := len(args)
	var trailing []string
	for end > 0 {
		name, value, ok := remediationParam(args[end-1])
		if !ok {
			break
		}
		end--
		if value != "" {
			trailing = append(trailing, name, value)
		}
	}
	// Apply in command-line order so repeated flags keep their order.
	for i := len(trailing) - 2; i >= 0; i -= 2 {
		if err := cmd.Flags().Set(trailing[i], trailing[i+1]); err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", trailing[i], err)
		}
	}
	return args[:end], nil
}

func remediationParam(arg string) (name, value string, ok bool) {
	flag, found := strings.CutPrefix(arg, "--")
	if !found {
		return "", "", false
	}
	name, value, found = strings.Cut(flag, "=")
	if !found || !slices.Contains(benchconfig.Params, name) {
		return "", "", false
	}
	return name, value, true
}

// prepareBenchmark derives the build plan and stage plan of an invocation.
// A dry run tolerates a missing toolchain home and plans with homePlaceholder.
func prepareBenchmark(ctx context.Context, app *App, name string, rawArgs []string, f *benchmarkFlags, dryRun bool) (*benchmark, error) {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := vmconfig.Parse(name)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse configuration name").
			WithResource(name).
			WithIssue(issue.InvalidConfigurationNameId).
			WithSuggestion("Run 'nibench config-name list' to see the registered names").
			Wrap(err).
			BuildError()
	}

	requested, err := stages.ParseList(f.stages)
	if err != nil {
		return nil, stageError(err)
	}
	sp, err := stages.NewPlan(requested, f.stage == "")
	if err != nil {
		return nil, stageError(err)
	}

	st := suite.New(cfg.Suite(f.suite), f.benchmark, f.overrides)

	home, err := app.resolveHome(cfg)
	if err != nil {
		if !dryRun {
			return nil, err
		}
		slog.Warn("no toolchain home found, commands use a placeholder", "placeholder", homePlaceholder)
		home = homePlaceholder
	}

	plan, err := benchconfig.Derive(rawArgs, opts, st, cfg.Environment(home))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("prepare benchmark").
			WithResource(f.benchmark).
			WithIssue(issue.UnsupportedArgumentId).
			Wrap(err).
			BuildError()
	}

	sp.Remove(plan.Removed...)
	if f.stage != "" {
		s, err := stages.Parse(f.stage)
		if err != nil {
			return nil, stageError(err)
		}
		if err := sp.ChangeStage(s); err != nil {
			return nil, stageError(err)
		}
	}
	slog.Debug("benchmark prepared",
		"suite", plan.SuiteName, "benchmark", plan.BenchmarkName, "config", opts.Name,
		"outputDir", plan.OutputDir, "removed", stages.Join(plan.Removed))

	return &benchmark{cfg: cfg, options: opts, suite: st, plan: plan, stages: sp, home: home}, nil
}

func stageError(err error) error {
	return issue.NewErrorContext().
		WithOperation("select stages").
		WithIssue(issue.UnknownStageId).
		WithSuggestion("Valid stages: " + strings.Join(stages.Names(), ", ")).
		Wrap(err).
		BuildError()
}

// invocation is the command line that reproduces the benchmark.
func (b *benchmark) invocation(f *benchmarkFlags, rawArgs []string) []string {
	args := []string{config.AppName, "run", b.options.Name, "--suite=" + f.suite, "--benchmark=" + b.plan.BenchmarkName}
	if f.stage != "" {
		args = append(args, "--stage="+f.stage)
	}
	args = append(args, "--")
	return append(args, rawArgs...)
}

// splitRunLog picks the audit log from the flag, the benchmark arguments or
// the configuration, in that order.
func (b *benchmark) splitRunLog(f *benchmarkFlags) *auditlog.Log {
	switch {
	case f.splitRun != "":
		return auditlog.New(f.splitRun)
	case b.plan.SplitRun != "":
		return auditlog.New(b.plan.SplitRun)
	default:
		return auditlog.New(b.cfg.SplitRunLog.String())
	}
}

func runBenchmark(cmd *cobra.Command, app *App, name string, rawArgs []string, f *benchmarkFlags, gateFatal bool) error {
	ctx := cmd.Context()
	b, err := prepareBenchmark(ctx, app, name, rawArgs, f, false)
	if err != nil {
		return reportError(cmd, app, err, 2)
	}

	rules, err := b.suite.Rules()
	if err != nil {
		return reportError(cmd, app, issue.NewErrorContext().
			WithOperation("compile suite metric rules").
			WithResource(b.plan.SuiteName).
			WithIssue(issue.InvalidMetricRuleId).
			Wrap(err).
			BuildError(), 2)
	}

	sink, closeStore, err := openSink(ctx, b, f)
	if err != nil {
		return reportError(cmd, app, err, 1)
	}
	defer closeStore()

	collector := telemetry.New(b.plan.SuiteName, b.plan.BenchmarkName, b.options.Name)

	wd, err := os.Getwd()
	if err != nil {
		return reportError(cmd, app, err, 1)
	}

	p := pipeline.New(pipeline.Config{
		Options:           b.options,
		Plan:              b.plan,
		Stages:            b.stages,
		Suite:             b.suite,
		Runner:            app.Runner,
		Home:              b.home,
		UPXPath:           b.cfg.UPXPath.String(),
		ObjdumpPath:       b.cfg.ObjdumpPath.String(),
		AdoptedJDKProfile: b.cfg.AdoptedJDKProfile.String(),
		Rules:             rules,
		Sink:              sink,
		Telemetry:         collector,
		Console:           cmd.ErrOrStderr(),
		Bench:             cmd.OutOrStdout(),
		BenchErr:          cmd.ErrOrStderr(),
		Dir:               wd,
		NonZeroIsFatal:    gateFatal || b.cfg.FatalOnFailure,
		SplitRun:          b.splitRunLog(f),
		Invocation:        b.invocation(f, rawArgs),
		Clock:             app.Clock,
	})
	runErr := p.Run(ctx)

	if path := b.cfg.Metrics.PrometheusTextfile; path.IsSet() {
		if err := collector.WriteTextfile(path.String()); err != nil {
			slog.Warn("failed to write stage telemetry", "path", path, "error", err)
		}
	}

	if runErr != nil {
		return reportRunError(cmd, app, runErr)
	}
	slog.Info("benchmark finished", "benchmark", b.plan.BenchmarkName, "config", b.options.Name, "records", len(p.Records()))
	return nil
}

// openSink opens the metric store when metrics.database is configured.
func openSink(ctx context.Context, b *benchmark, f *benchmarkFlags) (metrics.Sink, func(), error) {
	db := b.cfg.Metrics.Database
	if !db.IsSet() {
		return nil, func() {}, nil
	}
	store, err := metricstore.Open(ctx, db.String())
	if err != nil {
		return nil, nil, storeError(db, err)
	}
	closeStore := func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("failed to close metric store", "path", db, "error", cerr)
		}
	}
	sink, err := store.BeginRun(ctx, metricstore.Run{
		Suite:     b.plan.SuiteName,
		Benchmark: b.plan.BenchmarkName,
		Config:    b.options.Name,
		Stage:     f.stage,
	})
	if err != nil {
		closeStore()
		return nil, nil, storeError(db, err)
	}
	slog.Debug("metric store run started", "path", db, "run", sink.Run().ID)
	return sink, closeStore, nil
}

func storeError(path types.FilesystemPath, err error) error {
	return issue.NewErrorContext().
		WithOperation("open metric store").
		WithResource(path.String()).
		WithIssue(issue.MetricStoreFailedId).
		Wrap(err).
		BuildError()
}

// reportRunError classifies a pipeline failure. Stage output and the
// remediation lines were already printed by the executor.
func reportRunError(cmd *cobra.Command, app *App, err error) error {
	var stageErr *executor.StageFailedError
	var notRunnable *benchconfig.NotRunnableError

	switch {
	case errors.Is(err, pipeline.ErrBenchmarkFailed):
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Exiting the benchmark due to the failure."))
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitError{Code: 1}
	case errors.As(err, &notRunnable):
		return reportError(cmd, app, issue.NewErrorContext().
			WithOperation("run benchmark").
			WithResource(notRunnable.Suite+":"+notRunnable.Benchmark).
			WithIssue(issue.NotRunnableId).
			Wrap(err).
			BuildError(), 1)
	case errors.As(err, &stageErr):
		id := issue.StageFailedId
		if errors.Is(stageErr.Err, types.ErrArtifactIntegrity) {
			id = issue.ArtifactIntegrityId
		}
		code := 1
		if stageErr.Code > 0 {
			code = int(stageErr.Code)
		}
		return reportError(cmd, app, issue.NewErrorContext().
			WithOperation("run stage").
			WithResource(string(stageErr.Stage)).
			WithIssue(id).
			WithSuggestion("Resume with --stages=" + string(stageErr.Stage)).
			Wrap(err).
			BuildError(), code)
	case errors.Is(err, types.ErrArtifactIntegrity):
		return reportError(cmd, app, issue.NewErrorContext().
			WithOperation("check artifacts").
			WithIssue(issue.ArtifactIntegrityId).
			Wrap(err).
			BuildError(), 1)
	default:
		return reportError(cmd, app, err, 1)
	}
}
