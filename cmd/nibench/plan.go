// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/nibench/nibench/internal/executor"
	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/stages"
)

// homePlaceholder stands in for the toolchain home in dry-run commands.
const homePlaceholder = "$GRAALVM_HOME"

// profilingPrefixesPlaceholder stands in for the filters computed by the
// instrument-image stage at run time.
const profilingPrefixesPlaceholder = "<profiling-package-prefixes>"

func newPlanCommand(app *App) *cobra.Command {
	flags := &benchmarkFlags{}

	planCmd := &cobra.Command{
		Use:   "plan <config-name> [flags] -- <vm args> <executable> <run args>",
		Short: "Print the stages and commands of a benchmark without running it",
		Long: `Print the stages and commands of a benchmark without running it.

The plan takes the same arguments as 'nibench run'. Stages removed by the
configuration are listed but have no command.`,
		Example: `  nibench plan g1gc-pgo-ee --benchmark=scrabble -- -jar renaissance.jar scrabble`,
		Args:    benchmarkArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawArgs, err := splitTrailingParams(cmd, args[1:])
			if err != nil {
				return err
			}
			b, err := prepareBenchmark(cmd.Context(), app, args[0], rawArgs, flags, true)
			if err != nil {
				return reportError(cmd, app, err, 2)
			}
			printPlan(cmd.OutOrStdout(), b)
			return nil
		},
	}

	addBenchmarkFlags(planCmd, flags)
	return planCmd
}

func printPlan(w io.Writer, b *benchmark) {
	p := b.plan
	fmt.Fprintln(w, TitleStyle.Render("Benchmark plan"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("configuration:"), CmdStyle.Render(b.options.Name))
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("suite:"), p.SuiteName)
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("benchmark:"), p.BenchmarkName)
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("image:"), p.FinalImageName)
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("output dir:"), p.OutputDir)
	if b.stages.Fallback() {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("mode:"), "all stages in one invocation")
	} else {
		fmt.Fprintf(w, "  %s %s %s\n", SubtitleStyle.Render("mode:"), "single stage", CmdStyle.Render(string(b.stages.RequestedStage())))
	}
	if !p.Runnable {
		fmt.Fprintf(w, "  %s\n", WarningStyle.Render("the run stage of suite "+p.SuiteName+" is not runnable"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, TitleStyle.Render("Stages"))
	for _, s := range b.stages.Requested() {
		if b.stages.IsRemoved(s) {
			fmt.Fprintf(w, "  %s %s %s\n", WarningStyle.Render("-"), s, SubtitleStyle.Render("(removed by the configuration)"))
			continue
		}
		if !b.stages.Fallback() && s != b.stages.RequestedStage() {
			fmt.Fprintf(w, "  %s %s %s\n", SubtitleStyle.Render("·"), s, SubtitleStyle.Render("(not selected)"))
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("✓"), s)
		fmt.Fprintf(w, "    %s\n", VerboseStyle.Render(executor.ShellJoin(stageCommand(b, s))))
	}
}

// stageCommand is the command a stage runs, with run-time inputs replaced
// by placeholders.
func stageCommand(b *benchmark, s stages.Stage) []string {
	p := b.plan
	switch s {
	case stages.Agent:
		return p.AgentCommand(runtime.JavaExecutable(b.home), goruntime.NumCPU())
	case stages.InstrumentImage:
		prefixes := ""
		if b.options.JDKProfilesCollect {
			prefixes = profilingPrefixesPlaceholder
		}
		return p.InstrumentImageCommand(prefixes)
	case stages.InstrumentRun:
		return p.InstrumentRunCommand()
	case stages.Image:
		return p.ImageCommand(b.cfg.AdoptedJDKProfile.String())
	case stages.Run:
		return p.RunCommand()
	default:
		return nil
	}
}
