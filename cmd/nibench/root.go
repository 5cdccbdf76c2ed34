// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/nibench/nibench/internal/config"
	"github.com/nibench/nibench/internal/issue"
	"github.com/nibench/nibench/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nibench",
		Short: "Staged native-image benchmark runner",
		Long: TitleStyle.Render("nibench") + SubtitleStyle.Render(" - staged native-image benchmark runner") + `

nibench turns a configuration name such as 'g1gc-pgo-ee' into an image
build plan and runs it as a sequence of stages:

  agent -> instrument-image -> instrument-run -> image -> run

Stage output is parsed into metric records that can be stored in a
SQLite database and exported as Prometheus metrics.

` + SubtitleStyle.Render("Examples:") + `
  nibench config-name parse g1gc-pgo-ee    Show the options a name enables
  nibench plan pgo-ce --benchmark=hello -- -cp app.jar Main
  nibench run pgo-ce --benchmark=hello -- -cp app.jar Main
  nibench metrics show                     List stored benchmark runs`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.installLogger()
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/nibench/config.cue)")

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newPlanCommand(app))
	rootCmd.AddCommand(newConfigNameCommand(app))
	rootCmd.AddCommand(newMetricsCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with its exit code.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI with the process arguments and returns the exit code.
func Main() int {
	app := NewApp(Dependencies{})
	return run(context.Background(), newRootCommand(app))
}

func run(ctx context.Context, rootCmd *cobra.Command) int {
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	return exitCode(err)
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return int(exitErr.Code)
	}
	return 1
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// reportError prints err with its catalog entry to stderr and converts it
// into an ExitError, so that the error is rendered exactly once.
func reportError(cmd *cobra.Command, app *App, err error, code int) error {
	if err == nil {
		return nil
	}
	stderr := cmd.ErrOrStderr()
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, app.verbose))
	renderHelp(stderr, err)

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: types.ExitCode(code)}
}

func renderHelp(w io.Writer, err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	rendered, renderErr := ae.Help(string(config.ColorSchemeAuto))
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", ae.Issue, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}
