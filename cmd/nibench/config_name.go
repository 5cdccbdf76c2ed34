// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nibench/nibench/internal/issue"
	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/stages"
	"github.com/nibench/nibench/pkg/vmconfig"
)

func newConfigNameCommand(app *App) *cobra.Command {
	nameCmd := &cobra.Command{
		Use:   "config-name",
		Short: "Inspect configuration names",
		Long: `Inspect configuration names.

A configuration name is a dash-separated list of options in a fixed order,
ending with the edition, for example 'native-architecture-pgo-O3-ee'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	nameCmd.AddCommand(&cobra.Command{
		Use:   "parse <config-name>",
		Short: "Show the options a configuration name enables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := vmconfig.Parse(args[0])
			if err != nil {
				return reportError(cmd, app, issue.NewErrorContext().
					WithOperation("parse configuration name").
					WithResource(args[0]).
					WithIssue(issue.InvalidConfigurationNameId).
					WithSuggestion("Run 'nibench config-name grammar' to see the option order").
					Wrap(err).
					BuildError(), 2)
			}
			printOptions(cmd.OutOrStdout(), opts)
			return nil
		},
	})

	var edition string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered configuration names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			editions := []vmconfig.Edition{vmconfig.EditionCE, vmconfig.EditionEE}
			if edition != "" {
				e := vmconfig.Edition(edition)
				if e != vmconfig.EditionCE && e != vmconfig.EditionEE {
					return fmt.Errorf("unknown edition %q (expected ce or ee)", edition)
				}
				editions = []vmconfig.Edition{e}
			}
			seen := make(map[string]bool)
			for _, e := range editions {
				for _, name := range vmconfig.RegisteredNames(e) {
					if !seen[name] {
						seen[name] = true
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
				}
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&edition, "edition", "", "only list names of this edition (ce or ee)")
	nameCmd.AddCommand(listCmd)

	nameCmd.AddCommand(&cobra.Command{
		Use:   "grammar",
		Short: "Show the options in the order they must appear",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for i, s := range vmconfig.Grammar() {
				fmt.Fprintf(w, "%2d. %-30s %s\n", i+1, s.Name, CmdStyle.Render(strings.Join(s.Tokens, " | ")))
			}
			return nil
		},
	})

	return nameCmd
}

func printOptions(w io.Writer, o vmconfig.Options) {
	fmt.Fprintln(w, TitleStyle.Render("Configuration "+o.Name))

	enabled := []struct {
		name string
		on   bool
	}{
		{"pgo-instrumentation", o.PGOInstrumentation},
		{"pgo-context-sensitive", o.PGOInstrumentation && o.PGOContextSensitive},
		{"gate", o.Gate},
		{"quickbuild", o.QuickBuild},
		{"string-inlining", o.StringInlining},
		{"llvm", o.LLVM},
		{"native-architecture", o.NativeArchitecture},
		{"upx", o.UPX},
		{"no-inlining-before-analysis", o.NoInliningBeforeAnalysis},
		{"jdk-profiles-collect", o.JDKProfilesCollect},
		{"adopted-jdk-pgo", o.AdoptedJDKPGO},
		{"profile-inference-feature-extraction", o.ProfileInferenceFeatureExtraction},
	}
	for _, e := range enabled {
		if e.on {
			fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("✓"), e.name)
		}
	}

	valued := []struct{ name, value string }{
		{"gc", string(o.GC)},
		{"analysis-context-sensitivity", string(o.AnalysisContextSensitivity)},
		{"optimization-level", string(o.OptimizationLevel)},
		{"sampler", string(o.Sampler)},
		{"edition", string(o.Edition)},
	}
	for _, v := range valued {
		if v.value != "" {
			fmt.Fprintf(w, "  %s %s=%s\n", SuccessStyle.Render("✓"), v.name, CmdStyle.Render(v.value))
		}
	}

	if removed := benchconfig.RemovedStages(o); len(removed) > 0 {
		fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render("removed stages:"), stages.Join(removed))
	}
}
