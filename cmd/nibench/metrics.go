// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nibench/nibench/internal/issue"
	"github.com/nibench/nibench/internal/metricstore"
	"github.com/nibench/nibench/internal/suite"
	"github.com/nibench/nibench/pkg/metrics"
	"github.com/nibench/nibench/pkg/types"
)

// Rule sets selectable by `metrics extract --rules`.
const (
	ruleSetImage     = "image"
	ruleSetPolybench = "polybench"
	ruleSetFileSize  = "file-size"
	ruleSetNone      = "none"
)

var ruleSets = []string{ruleSetImage, ruleSetPolybench, ruleSetFileSize, ruleSetNone}

type extractFlags struct {
	benchmark    string
	suite        string
	ruleSet      string
	reportsDir   string
	statsFile    string
	diagnostics  bool
	metric       string
	engineConfig string
}

func newMetricsCommand(app *App) *cobra.Command {
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Extract and inspect benchmark metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	metricsCmd.AddCommand(newMetricsExtractCommand(app))
	metricsCmd.AddCommand(newMetricsShowCommand(app))
	return metricsCmd
}

func newMetricsExtractCommand(app *App) *cobra.Command {
	f := &extractFlags{}
	extractCmd := &cobra.Command{
		Use:   "extract <log>",
		Short: "Run metric rules over a saved benchmark log",
		Long: `Run metric rules over a saved benchmark log and print the records.

--rules selects the built-in rule set. With --suite, the metric rules
declared for that suite in the configuration are applied as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := extractRecords(cmd.Context(), app, args[0], f)
			if err != nil {
				return reportError(cmd, app, err, 1)
			}
			return renderRecords(cmd.OutOrStdout(), records)
		},
	}

	fs := extractCmd.Flags()
	fs.StringVar(&f.benchmark, "benchmark", "", "benchmark name recorded with each metric (default: log file name)")
	fs.StringVar(&f.suite, "suite", "", "also apply the metric rules declared for this suite")
	fs.StringVar(&f.ruleSet, "rules", ruleSetImage, "built-in rule set: "+strings.Join(ruleSets, ", "))
	fs.StringVar(&f.reportsDir, "reports-dir", "", "image build reports directory for analysis results")
	fs.StringVar(&f.statsFile, "stats-file", "", "image build statistics file")
	fs.BoolVar(&f.diagnostics, "diagnostics", false, "the image was built in diagnostics mode")
	fs.StringVar(&f.metric, "metric", "", "polybench metric name (default: detected from the log)")
	fs.StringVar(&f.engineConfig, "engine-config", "", "polybench engine configuration recorded with each metric")
	return extractCmd
}

func extractRecords(ctx context.Context, app *App, path string, f *extractFlags) ([]metrics.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stdout := string(data)

	bench := f.benchmark
	if bench == "" {
		bench = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var rules []metrics.Rule
	switch f.ruleSet {
	case ruleSetImage:
		rules = metrics.ImageBuildRules(metrics.ImageBuild{
			Benchmark:   bench,
			ReportsDir:  f.reportsDir,
			StatsFile:   f.statsFile,
			Diagnostics: f.diagnostics,
		})
	case ruleSetPolybench:
		name := f.metric
		if name == "" {
			detected, ok := metrics.MetricNameFromOutput(stdout)
			if !ok {
				detected = "time"
			}
			name = detected
			slog.Debug("polybench metric selected", "metric", name, "detected", ok)
		}
		rules = metrics.PolybenchRules(bench, name, f.engineConfig)
	case ruleSetFileSize:
		rules = metrics.FileSizeRules(f.suite)
	case ruleSetNone:
	default:
		return nil, fmt.Errorf("unknown rule set %q (expected one of %s)", f.ruleSet, strings.Join(ruleSets, ", "))
	}

	if f.suite != "" {
		cfg, err := app.loadConfig(ctx)
		if err != nil {
			return nil, err
		}
		declared, err := suite.New(cfg.Suite(f.suite), bench, suite.Overrides{}).Rules()
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("compile suite metric rules").
				WithResource(f.suite).
				WithIssue(issue.InvalidMetricRuleId).
				Wrap(err).
				BuildError()
		}
		rules = append(rules, declared...)
	}

	records, err := metrics.Evaluate(rules, stdout)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("extract metrics").
			WithResource(path).
			Wrap(err).
			BuildError()
	}
	return records, nil
}

func renderRecords(w io.Writer, records []metrics.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no metric records"))
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Benchmark", "Metric", "Object", "Value", "Unit", "Better", "Iteration")
	for _, r := range records {
		iteration := ""
		if _, ok := r[metrics.KeyIteration]; ok {
			iteration = fmt.Sprint(r.Iteration())
		}
		if err := table.Append(r.Benchmark(), r.Name(), r.Object(), fmt.Sprint(r[metrics.KeyValue]), r.Unit(), r.Better(), iteration); err != nil {
			return err
		}
	}
	return table.Render()
}

func newMetricsShowCommand(app *App) *cobra.Command {
	var (
		database  string
		runID     string
		filter    metricstore.Filter
		benchmark string
	)
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "List stored benchmark runs or the records of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := types.FilesystemPath(database)
			if !path.IsSet() {
				cfg, err := app.loadConfig(ctx)
				if err != nil {
					return reportError(cmd, app, err, 1)
				}
				path = cfg.Metrics.Database
			}
			if !path.IsSet() {
				return reportError(cmd, app, issue.NewErrorContext().
					WithOperation("open metric store").
					WithIssue(issue.MetricStoreFailedId).
					WithSuggestion("Set metrics.database in the configuration or pass --database").
					Wrap(fmt.Errorf("no metric store configured")).
					BuildError(), 1)
			}

			store, err := metricstore.Open(ctx, path.String())
			if err != nil {
				return reportError(cmd, app, storeError(path, err), 1)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					slog.Warn("failed to close metric store", "path", path, "error", cerr)
				}
			}()

			if runID != "" {
				stored, err := store.Records(ctx, runID)
				if err != nil {
					return reportError(cmd, app, err, 1)
				}
				records := make([]metrics.Record, 0, len(stored))
				for _, s := range stored {
					records = append(records, s.Record)
				}
				return renderRecords(cmd.OutOrStdout(), records)
			}

			filter.Benchmark = benchmark
			runs, err := store.ListRuns(ctx, filter)
			if err != nil {
				return reportError(cmd, app, err, 1)
			}
			return renderRuns(cmd.OutOrStdout(), runs)
		},
	}

	fs := showCmd.Flags()
	fs.StringVar(&database, "database", "", "metric store (default: metrics.database from the config)")
	fs.StringVar(&runID, "run", "", "show the records of this run")
	fs.StringVar(&benchmark, "benchmark", "", "only list runs of this benchmark")
	fs.StringVar(&filter.Config, "config-name", "", "only list runs of this configuration")
	fs.IntVar(&filter.Limit, "limit", 20, "maximum number of runs to list (0 lists all)")
	return showCmd
}

func renderRuns(w io.Writer, runs []metricstore.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no stored runs"))
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Run", "Created", "Suite", "Benchmark", "Config", "Stage")
	for _, r := range runs {
		stage := r.Stage
		if stage == "" {
			stage = "all"
		}
		if err := table.Append(r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Suite, r.Benchmark, r.Config, stage); err != nil {
			return err
		}
	}
	return table.Render()
}
