// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/nibench/nibench/internal/config"
	"github.com/nibench/nibench/internal/executor"
	"github.com/nibench/nibench/internal/issue"
	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root of the CLI layer: every command handler receives an App and reaches
	// configuration, processes and time through it.
	App struct {
		Config config.Provider
		Runner runtime.Runner
		Clock  executor.Clock
		// ResolveHome locates the toolchain home from the configured value.
		ResolveHome func(configured string) (string, error)

		stdout io.Writer
		stderr io.Writer
		logger *log.Logger

		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      config.Provider
		Runner      runtime.Runner
		Clock       executor.Clock
		ResolveHome func(configured string) (string, error)
		Stdout      io.Writer
		Stderr      io.Writer
	}
)

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:      deps.Config,
		Runner:      deps.Runner,
		Clock:       deps.Clock,
		ResolveHome: deps.ResolveHome,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Runner == nil {
		app.Runner = runtime.NewNativeRunner()
	}
	if app.ResolveHome == nil {
		app.ResolveHome = runtime.ResolveHome
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	app.logger = log.NewWithOptions(app.stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
	})
	return app
}

// installLogger makes the app logger the slog default.
func (a *App) installLogger() {
	a.setVerbose(a.verbose)
	slog.SetDefault(slog.New(a.logger))
}

func (a *App) setVerbose(verbose bool) {
	a.verbose = verbose
	if verbose {
		a.logger.SetLevel(log.DebugLevel)
		return
	}
	a.logger.SetLevel(log.InfoLevel)
}

// loadConfig loads the configuration selected by --config. ui.verbose only
// raises verbosity; it never lowers a --verbose flag.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.configPath)})
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose && !a.verbose {
		a.setVerbose(true)
	}
	return cfg, nil
}

// resolveHome wraps home resolution failures with their catalog entry.
func (a *App) resolveHome(cfg *config.Config) (string, error) {
	home, err := a.ResolveHome(cfg.Home())
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("locate the toolchain").
			WithIssue(issue.ToolchainHomeNotFoundId).
			WithSuggestion("Set graalvm_home in the configuration or export GRAALVM_HOME").
			Wrap(err).
			BuildError()
	}
	return home, nil
}
