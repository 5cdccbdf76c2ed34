// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nibench/nibench/internal/config"
)

// newConfigCommand creates the `nibench config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nibench configuration",
		Long: `Manage nibench configuration.

Configuration is read from the first of:
  - the file given with --config
  - Linux: $XDG_CONFIG_HOME/nibench/config.cue (~/.config/nibench/config.cue)
  - macOS: ~/Library/Application Support/nibench/config.cue
  - Windows: %APPDATA%\nibench\config.cue
  - ./config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return reportError(cmd, app, err, 1)
			}
			showConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("")
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			cfgPath, err := config.DefaultConfigPath("")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config directory: %s\n", cfgDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return reportError(cmd, app, err, 1)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	value := func(v string) string {
		if v == "" {
			return SubtitleStyle.Render("(not set)")
		}
		return valueStyle.Render(v)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	source := cfg.Source()
	if source == "" {
		source = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), source)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("output_root"), value(cfg.OutputRoot.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("graalvm_home"), value(cfg.GraalVMHome.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("java_home"), value(cfg.JavaHome.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("split_run_log"), value(cfg.SplitRunLog.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("fatal_on_failure"), valueStyle.Render(fmt.Sprintf("%v", cfg.FatalOnFailure)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("non_runnable_suites"), value(strings.Join(cfg.NonRunnableSuites, ", ")))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("upx_path"), value(cfg.UPXPath.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("objdump_path"), value(cfg.ObjdumpPath.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("adopted_jdk_profile"), value(cfg.AdoptedJDKProfile.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("metrics"))
	fmt.Fprintf(w, "  database: %s\n", value(cfg.Metrics.Database.String()))
	fmt.Fprintf(w, "  prometheus_textfile: %s\n", value(cfg.Metrics.PrometheusTextfile.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("suites"))
	if len(cfg.Suites) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
		return
	}
	for _, s := range cfg.Suites {
		version := s.Version
		if version == "" {
			version = "unknown"
		}
		fmt.Fprintf(w, "  - %s (version: %s, rules: %d)\n", valueStyle.Render(s.Name), version, len(s.Rules))
	}
}
