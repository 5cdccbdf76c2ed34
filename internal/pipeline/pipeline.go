// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"slices"

	"github.com/nibench/nibench/internal/auditlog"
	"github.com/nibench/nibench/internal/executor"
	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/metrics"
	"github.com/nibench/nibench/pkg/stages"
	"github.com/nibench/nibench/pkg/vmconfig"
)

var (
	// ErrBenchmarkFailed is returned after a non-fatal stage failure.
	ErrBenchmarkFailed = errors.New("exiting the benchmark due to the failure")

	// ErrNoStageSelected is returned outside fallback mode when no stage was selected.
	ErrNoStageSelected = errors.New("no stage selected")
)

type (
	// Telemetry observes stage outcomes and extracted records.
	Telemetry interface {
		executor.Observer
		RecordsExtracted(n int)
	}

	// Config wires a pipeline to one benchmark invocation.
	Config struct {
		Options vmconfig.Options
		Plan    *benchconfig.BuildPlan
		Stages  *stages.Plan
		Suite   benchconfig.Suite
		Runner  runtime.Runner

		// Home is the toolchain home holding bin/java and bin/native-image-configure.
		Home        string
		UPXPath     string
		ObjdumpPath string
		// AdoptedJDKProfile is the profile used by adopted-jdk-pgo configurations.
		AdoptedJDKProfile string
		CPUCount          int

		// Rules are evaluated over the benchmark output in addition to the
		// image build rules.
		Rules     []metrics.Rule
		Sink      metrics.Sink
		Telemetry Telemetry

		Console        io.Writer
		Bench          io.Writer
		BenchErr       io.Writer
		Dir            string
		NonZeroIsFatal bool
		SplitRun       *auditlog.Log
		Invocation     []string
		Clock          executor.Clock
	}

	// Pipeline runs the stages of one benchmark.
	Pipeline struct {
		cfg      Config
		exec     *executor.Executor
		captured bytes.Buffer
		records  []metrics.Record
	}
)

// New creates a pipeline. Unset tool paths default to the tools on PATH.
func New(cfg Config) *Pipeline {
	if cfg.Runner == nil {
		cfg.Runner = runtime.NewNativeRunner()
	}
	if cfg.UPXPath == "" {
		cfg.UPXPath = "upx"
	}
	if cfg.ObjdumpPath == "" {
		cfg.ObjdumpPath = "objdump"
	}
	if cfg.CPUCount == 0 {
		cfg.CPUCount = goruntime.NumCPU()
	}
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}
	if cfg.Bench == nil {
		cfg.Bench = os.Stdout
	}
	if cfg.BenchErr == nil {
		cfg.BenchErr = os.Stderr
	}

	p := &Pipeline{cfg: cfg}
	ecfg := executor.Config{
		Plan:           cfg.Plan,
		Stages:         cfg.Stages,
		Validator:      cfg.Suite,
		Runner:         cfg.Runner,
		Console:        cfg.Console,
		Bench:          io.MultiWriter(cfg.Bench, &p.captured),
		BenchErr:       io.MultiWriter(cfg.BenchErr, &p.captured),
		Dir:            cfg.Dir,
		Gate:           cfg.Options.Gate,
		NonZeroIsFatal: cfg.NonZeroIsFatal,
		SplitRun:       cfg.SplitRun,
		Invocation:     cfg.Invocation,
		Clock:          cfg.Clock,
	}
	if cfg.Telemetry != nil {
		ecfg.Observer = cfg.Telemetry
	}
	p.exec = executor.New(ecfg)
	return p
}

// Run executes the selected stage, or every effective stage in fallback
// mode, and then extracts metrics into the sink. A fatal stage failure is
// returned as *executor.StageFailedError; any other failure stops the
// remaining stages and returns ErrBenchmarkFailed.
func (p *Pipeline) Run(ctx context.Context) error {
	plan := p.cfg.Plan
	for _, dir := range []string{plan.OutputDir, plan.ConfigDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := plan.CopyBundle(); err != nil {
		return err
	}

	if p.cfg.Stages.Fallback() {
		for _, s := range p.cfg.Stages.EffectiveStages() {
			if err := p.cfg.Stages.ChangeStage(s); err != nil {
				return err
			}
			if err := p.runSingle(ctx); err != nil {
				return err
			}
			if p.cfg.Stages.Failed() {
				break
			}
		}
	} else if err := p.runSingle(ctx); err != nil {
		return err
	}

	if p.cfg.Stages.Failed() {
		return ErrBenchmarkFailed
	}
	return p.extract()
}

// Records returns the metric records extracted by the last Run.
func (p *Pipeline) Records() []metrics.Record { return p.records }

// Output returns everything written to the bench sinks so far.
func (p *Pipeline) Output() string { return p.captured.String() }

func (p *Pipeline) runSingle(ctx context.Context) error {
	if p.cfg.Stages.RequestedStage() == "" {
		return ErrNoStageSelected
	}
	if p.cfg.Stages.SkipCurrent() {
		p.exec.Skip()
		return nil
	}

	stage, _ := p.cfg.Stages.EffectiveStage()
	switch stage {
	case stages.Agent:
		return p.agent(ctx)
	case stages.InstrumentImage:
		return p.instrumentImage(ctx)
	case stages.InstrumentRun:
		return p.instrumentRun(ctx)
	case stages.Image:
		return p.image(ctx)
	case stages.Run:
		return p.run(ctx)
	default:
		return &stages.UnknownStageError{Value: string(stage)}
	}
}

// ImageBuildApplies reports whether image build rules apply to the output.
func (p *Pipeline) ImageBuildApplies() bool {
	stage, _ := p.cfg.Stages.EffectiveStage()
	return p.cfg.Stages.Fallback() || stage == stages.Image
}

func (p *Pipeline) extract() error {
	rules := slices.Clone(p.cfg.Rules)
	if p.ImageBuildApplies() {
		rules = append(rules, metrics.ImageBuildRules(metrics.ImageBuild{
			Benchmark:   p.cfg.Plan.BenchmarkName,
			ReportsDir:  p.cfg.Plan.ReportsDir,
			StatsFile:   p.cfg.Plan.StatsFile,
			Diagnostics: p.cfg.Options.Gate,
		})...)
	}

	records, err := metrics.Evaluate(rules, p.captured.String())
	if err != nil {
		return fmt.Errorf("failed to extract metrics: %w", err)
	}
	p.records = records
	if p.cfg.Telemetry != nil {
		p.cfg.Telemetry.RecordsExtracted(len(records))
	}
	if p.cfg.Sink == nil || len(records) == 0 {
		return nil
	}
	return p.cfg.Sink.Record(p.cfg.Plan.BenchmarkName, records)
}

// runCommand is the body of stages that only execute their command.
func runCommand(ctx context.Context, s *executor.Scope) error {
	_, err := s.Run(ctx)
	return err
}
