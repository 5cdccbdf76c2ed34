// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/nibench/nibench/internal/auditlog"
	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/stages"
	"github.com/nibench/nibench/pkg/types"
)

const (
	// LastStageSuccessPrefix marks the completion of the whole pipeline.
	LastStageSuccessPrefix = "Successfully finished the last specified stage:"
	// StageSuccessPrefix marks the completion of an intermediate stage.
	StageSuccessPrefix = "Successfully finished stage:"
	// StageSkippedPrefix marks a requested stage that was removed.
	StageSkippedPrefix = "Skipping stage:"

	// Outcome values passed to Observer.
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type (
	// Clock supplies timestamps for stage log lines.
	Clock interface {
		Now() time.Time
	}

	// ReturnCodeValidator decides whether a non-zero exit is expected.
	ReturnCodeValidator interface {
		ValidateReturnCode(code types.ExitCode) bool
	}

	// Observer is notified when a stage scope ends.
	Observer interface {
		StageFinished(stage stages.Stage, outcome string, elapsed time.Duration)
	}

	// Config wires an Executor to one benchmark invocation.
	Config struct {
		Plan      *benchconfig.BuildPlan
		Stages    *stages.Plan
		Validator ReturnCodeValidator
		Runner    runtime.Runner

		// Console receives operator-facing stage output.
		Console io.Writer
		// Bench and BenchErr receive the output that metric rules parse.
		Bench    io.Writer
		BenchErr io.Writer

		// Dir is the working directory of stage processes.
		Dir string
		// Gate forwards every stage's output to the bench sinks and makes
		// failures fatal.
		Gate bool
		// NonZeroIsFatal makes a stage failure abort the benchmark.
		NonZeroIsFatal bool
		// SplitRun receives one PASS or FAILURE line per stage.
		SplitRun *auditlog.Log
		// Invocation is the command line that reproduces the benchmark.
		Invocation []string

		Clock    Clock
		Observer Observer
	}

	// Executor runs stage scopes for one benchmark.
	Executor struct {
		cfg Config
	}

	// Scope is an open stage. It is only valid inside the body passed to Execute.
	Scope struct {
		ex      *Executor
		stage   stages.Stage
		command []string

		stdoutPath string
		stderrPath string
		stdoutFile *os.File
		stderrFile *os.File

		ran  bool
		code types.ExitCode
	}

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

// New creates an Executor. Nil writers default to the process streams.
func New(cfg Config) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}
	if cfg.Bench == nil {
		cfg.Bench = os.Stdout
	}
	if cfg.BenchErr == nil {
		cfg.BenchErr = cfg.Bench
	}
	if cfg.Runner == nil {
		cfg.Runner = runtime.NewNativeRunner()
	}
	return &Executor{cfg: cfg}
}

// Fatal reports whether a stage failure aborts the benchmark.
func (e *Executor) Fatal() bool { return e.cfg.NonZeroIsFatal || e.cfg.Gate }

// BenchOut writes a line to the bench sink.
func (e *Executor) BenchOut(line string) {
	e.writeLine(e.cfg.Bench, line)
}

// Skip announces that the current stage was removed and does not run.
func (e *Executor) Skip() {
	e.BenchOut(fmt.Sprintf("%s %s", StageSkippedPrefix, e.cfg.Stages.RequestedStage()))
}

// Execute opens the log files of the current stage, runs body and records
// the outcome. The log files are closed exactly once before the outcome is
// reported, whether body returns, fails or panics.
//
// A failed stage is recorded in the stage plan. The returned error is a
// *StageFailedError when failures are fatal or body reports broken
// artifacts (types.ErrArtifactIntegrity); otherwise the caller inspects the
// plan. Failing to open the log files is returned as is.
func (e *Executor) Execute(ctx context.Context, command []string, body func(ctx context.Context, s *Scope) error) error {
	stage := e.cfg.Stages.RequestedStage()
	start := e.cfg.Clock.Now()

	s, err := e.open(stage, command)
	if err != nil {
		e.cfg.Stages.Fail()
		e.splitRun(stage, "FAILURE")
		e.observe(stage, OutcomeFailure, start)
		return fmt.Errorf("failed to open logs of stage %s: %w", stage, err)
	}

	var stack []byte
	bodyErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				stack = debug.Stack()
			}
		}()
		return body(ctx, s)
	}()

	if closeErr := s.close(); closeErr != nil && bodyErr == nil {
		bodyErr = closeErr
	}

	if s.ran && s.code.IsSuccess() && bodyErr == nil {
		e.succeed(s)
		e.observe(stage, OutcomeSuccess, start)
		return nil
	}

	failure := e.fail(s, bodyErr, stack)
	e.observe(stage, OutcomeFailure, start)
	return failure
}

func (e *Executor) open(stage stages.Stage, command []string) (*Scope, error) {
	p := e.cfg.Plan
	dir, err := filepath.Abs(p.LogDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Scope{
		ex:         e,
		stage:      stage,
		command:    command,
		stdoutPath: filepath.Join(dir, p.FinalImageName+"-"+string(stage)+"-stdout.log"),
		stderrPath: filepath.Join(dir, p.FinalImageName+"-"+string(stage)+"-stderr.log"),
	}
	if s.stdoutFile, err = os.Create(s.stdoutPath); err != nil {
		return nil, err
	}
	if s.stderrFile, err = os.Create(s.stderrPath); err != nil {
		_ = s.stdoutFile.Close()
		return nil, err
	}

	e.separatorLine()
	e.console(e.timestamp() + "Entering stage: " + string(stage) + " for " + p.FinalImageName)
	e.separatorLine()
	e.console("Running: ")
	e.console(ShellJoin(command))
	e.console("The standard output is saved to " + s.stdoutPath)
	e.console("The standard error is saved to " + s.stderrPath)
	return s, nil
}

func (e *Executor) succeed(s *Scope) {
	e.cfg.Stages.Succeed()
	e.splitRun(s.stage, "PASS")

	if s.stage == e.cfg.Stages.LastStage() {
		e.BenchOut(fmt.Sprintf("%s%s %s for %s", e.timestamp(), LastStageSuccessPrefix, s.stage, e.cfg.Plan.FinalImageName))
	} else {
		e.BenchOut(fmt.Sprintf("%s%s %s", e.timestamp(), StageSuccessPrefix, s.stage))
	}
	e.separatorLine()
}

func (e *Executor) fail(s *Scope, bodyErr error, stack []byte) error {
	p := e.cfg.Plan
	e.cfg.Stages.Fail()
	e.splitRun(s.stage, "FAILURE")

	if s.ran && !s.code.IsSuccess() {
		e.console(errorStyle.Render(fmt.Sprintf("%sFailed in stage %s for %s with exit code %s", e.timestamp(), s.stage, p.FinalImageName, s.code)))
	}

	e.console(infoStyle.Render("--------- Standard output:"))
	e.dumpFile(s.stdoutPath)
	e.console(errorStyle.Render("--------- Standard error:"))
	e.dumpFile(s.stderrPath)

	if bodyErr != nil {
		e.console(errorStyle.Render(fmt.Sprintf("%sFailed in stage %s with %v", e.timestamp(), s.stage, bodyErr)))
		if len(stack) > 0 {
			e.console(string(stack))
		}
	}

	e.separatorLine()
	e.remediation(s.stage)
	e.separatorLine()

	code := s.code
	if !s.ran {
		code = -1
	}
	if !e.Fatal() && !errors.Is(bodyErr, types.ErrArtifactIntegrity) {
		slog.Debug("stage failed, failure is not fatal", "stage", s.stage, "exitCode", code)
		return nil
	}
	e.console(e.timestamp() + "Exiting the benchmark due to the failure.")
	return &StageFailedError{Stage: s.stage, Image: p.FinalImageName, Code: code, Err: bodyErr}
}

func (e *Executor) remediation(stage stages.Stage) {
	e.console(hintStyle.Render("--------- To run the failed benchmark execute the following: "))
	e.console(ShellJoin(e.cfg.Invocation))

	if completed := e.cfg.Stages.Completed(); len(completed) > 0 {
		e.console(hintStyle.Render("--------- To only prepare the benchmark add the following to the end of the previous command: "))
		e.console("--stages=" + stages.Join(completed))
	}

	e.console(hintStyle.Render("--------- To only run the failed stage add the following to the end of the previous command: "))
	e.console("--stages=" + string(stage))

	e.console(hintStyle.Render("--------- Additional arguments that can be used for debugging the benchmark: "))
	for _, param := range benchconfig.Params {
		e.console("--" + param + "=")
	}
}

func (e *Executor) splitRun(stage stages.Stage, result string) {
	if !e.cfg.SplitRun.Enabled() {
		return
	}
	p := e.cfg.Plan
	line := fmt.Sprintf("%s%s:%s %s: %s", e.timestamp(), p.SuiteName, p.BenchmarkName, stage, result)
	if err := e.cfg.SplitRun.Append(line); err != nil {
		slog.Warn("failed to append to the split-run log", "path", e.cfg.SplitRun.Path(), "error", err)
	}
}

func (e *Executor) dumpFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		e.console(fmt.Sprintf("<unable to read %s: %v>", path, err))
		return
	}
	e.console(string(data))
}

func (e *Executor) observe(stage stages.Stage, outcome string, start time.Time) {
	if e.cfg.Observer == nil {
		return
	}
	e.cfg.Observer.StageFinished(stage, outcome, e.cfg.Clock.Now().Sub(start))
}

func (e *Executor) timestamp() string {
	return e.cfg.Clock.Now().Format(timestampLayout)
}

func (e *Executor) separatorLine() {
	e.console(separatorStyle.Render(separator))
}

func (e *Executor) console(line string) {
	e.writeLine(e.cfg.Console, line)
}

func (e *Executor) writeLine(w io.Writer, line string) {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := io.WriteString(w, line); err != nil {
		slog.Debug("failed to write stage output", "error", err)
	}
}

// Stage returns the stage the scope runs.
func (s *Scope) Stage() stages.Stage { return s.stage }

// Command returns the stage command.
func (s *Scope) Command() []string { return s.command }

// ExitCode returns the normalized exit code of the stage command, and
// false before Run completed.
func (s *Scope) ExitCode() (types.ExitCode, bool) { return s.code, s.ran }

// Succeeded reports whether the stage command ran and exited with 0.
func (s *Scope) Succeeded() bool { return s.ran && s.code.IsSuccess() }

// StdoutPath is the stage's stdout log file.
func (s *Scope) StdoutPath() string { return s.stdoutPath }

// StderrPath is the stage's stderr log file.
func (s *Scope) StderrPath() string { return s.stderrPath }

// Stdout returns a writer into the stdout log that also forwards to the
// bench sink, or to the console when includeBench is false.
func (s *Scope) Stdout(includeBench bool) io.Writer {
	if includeBench {
		return io.MultiWriter(s.stdoutFile, s.ex.cfg.Bench)
	}
	return io.MultiWriter(s.stdoutFile, s.ex.cfg.Console)
}

// Stderr is the stderr counterpart of Stdout.
func (s *Scope) Stderr(includeBench bool) io.Writer {
	if includeBench {
		return io.MultiWriter(s.stderrFile, s.ex.cfg.BenchErr)
	}
	return io.MultiWriter(s.stderrFile, s.ex.cfg.Console)
}

// Run executes the stage command. Output of the run and image stages, and
// of every stage in gate mode, is forwarded to the bench sinks. Outside
// the image-build stages an exit code the suite accepts becomes 0.
func (s *Scope) Run(ctx context.Context) (types.ExitCode, error) {
	cfg := s.ex.cfg
	effective, _ := cfg.Stages.EffectiveStage()
	forward := effective == stages.Run || effective == stages.Image || cfg.Gate

	code, err := cfg.Runner.Run(ctx, runtime.Command{Args: s.command, Dir: cfg.Dir}, s.Stdout(forward), s.Stderr(forward))
	if err != nil {
		return code, err
	}
	if !effective.IsImageBuild() && cfg.Validator != nil && cfg.Validator.ValidateReturnCode(code) {
		code = 0
	}
	s.code, s.ran = code, true
	return code, nil
}

func (s *Scope) close() error {
	var errs []error
	for _, f := range []*os.File{s.stdoutFile, s.stderrFile} {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
