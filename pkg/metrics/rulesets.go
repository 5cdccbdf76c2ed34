// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"regexp"
	"slices"
	"strings"
)

// WarmupMarker separates warm-up iterations from measured ones in harness output.
const WarmupMarker = "::: Running :::"

var (
	binarySizePattern    = regexp.MustCompile(`The executed image size for benchmark (?P<bench_suite>[a-zA-Z0-9_\-]+):(?P<benchmark>[a-zA-Z0-9_\-]+) is (?P<value>[0-9]+) B`)
	configSizePattern    = regexp.MustCompile(`The (?P<type>[a-zA-Z0-9_\-]+) configuration size for benchmark (?P<bench_suite>[a-zA-Z0-9_\-]+):(?P<benchmark>[a-zA-Z0-9_\-]+) is (?P<value>[0-9]+) B`)
	totalTimePattern     = regexp.MustCompile(`(?m)^\[\S+:[0-9]+\][ ]+\[total\]:[ ]+(?P<time>[0-9,.]+?) ms`)
	sectionSizePattern   = regexp.MustCompile(`(?m)^[ ]*[0-9]+[ ]+.(?P<section>[a-zA-Z0-9._-]+?)[ ]+(?P<size>[0-9a-f]+?)[ ]+`)
	analysisStatsPattern = regexp.MustCompile(`(?m)^# Printing analysis results stats to: (?P<path>\S+?)$`)
	fileSizePattern      = regexp.MustCompile(`== binary size == (?P<image_name>[a-zA-Z0-9_\-\.:]+) is (?P<value>[0-9]+) bytes, path = (?P<path>.*)`)

	iterationPattern        = regexp.MustCompile(`\[(?P<name>.*)\] iteration ([0-9]*): (?P<value>.*) (?P<unit>.*)`)
	indexedIterationPattern = regexp.MustCompile(`\[(?P<name>.*)\] iteration (?P<iteration>[0-9]*): (?P<value>.*) (?P<unit>.*)`)
	afterRunPattern         = regexp.MustCompile(`\[(?P<name>.*)\] after run: (?P<value>.*) (?P<unit>.*)`)
	loadTimePattern         = regexp.MustCompile(`### load time \((?P<unit>.*)\): (?P<delta>[0-9]+)`)
	initTimePattern         = regexp.MustCompile(`### init time \((?P<unit>.*)\): (?P<delta>[0-9]+)`)
	warmupMarkerPattern     = regexp.MustCompile(regexp.QuoteMeta(WarmupMarker))

	// analysisKeys maps analysis report keys to metric objects and units.
	analysisKeys = []struct{ key, object, unit string }{
		{"total_call_edges", "call-edges", "#"},
		{"total_reachable_types", "reachable-types", "#"},
		{"total_reachable_methods", "reachable-methods", "#"},
		{"total_reachable_fields", "reachable-fields", "#"},
		{"total_memory_bytes", "memory", "B"},
	}

	guardCounters = []string{
		"array_store",
		"assertion_error_nullary",
		"assertion_error_object",
		"class_cast",
		"division_by_zero",
		"illegal_argument_exception_argument_is_not_an_array",
		"illegal_argument_exception_negative_length",
		"integer_exact_overflow",
		"long_exact_overflow",
		"null_pointer",
		"out_of_bounds",
	}

	guardPhases = []string{"after_parse_canonicalization", "before_high_tier", "after_high_tier"}

	// TimedPhases are the image builder phases with timer and memory entries.
	TimedPhases = []string{"total", "setup", "classlist", "analysis", "universe", "compile", "layout", "dbginfo", "image", "write"}

	memoryMetrics = []string{"allocated-memory", "metaspace-memory", "application-memory", "instructions"}
)

// ImageBuild describes where an image build leaves its reports.
type ImageBuild struct {
	Benchmark   string
	ReportsDir  string
	StatsFile   string
	Diagnostics bool
}

// ImageBuildRules returns every rule applied to image build output.
func ImageBuildRules(b ImageBuild) []Rule {
	var rules []Rule
	rules = append(rules, GeneralImageBuildRules(b.Benchmark)...)
	rules = append(rules, AnalysisRules(b.Benchmark, b.ReportsDir, b.Diagnostics)...)
	rules = append(rules, StatisticsRules(b.Benchmark, b.StatsFile)...)
	return append(rules, TimerRules(b.Benchmark, b.StatsFile)...)
}

// GeneralImageBuildRules extract binary, configuration and section sizes and
// the total build time from stdout.
func GeneralImageBuildRules(benchmark string) []Rule {
	sizeDims := Template{
		KeyBenchSuite: Field("bench_suite"),
		KeyVM:         Literal("svm"),
	}
	return []Rule{
		{
			Name:     "binary-size",
			Pattern:  binarySizePattern,
			Template: numeric(Field("benchmark"), "binary-size", Literal("B"), Coerced("value", Int)).with(sizeDims),
		},
		{
			Name:    "config-size",
			Pattern: configSizePattern,
			Template: numeric(Field("benchmark"), "config-size", Literal("B"), Coerced("value", Int)).with(sizeDims).with(Template{
				KeyObject: Field("type"),
			}),
		},
		{
			Name:    "compile-time",
			Pattern: totalTimePattern,
			Template: numeric(Literal(benchmark), "compile-time", Literal("ms"), Coerced("time", TimeToInt)).with(Template{
				KeyObject: Literal("total"),
			}),
		},
		{
			Name:    "binary-section-size",
			Pattern: sectionSizePattern,
			Template: numeric(Literal(benchmark), "binary-section-size", Literal("B"), Coerced("size", HexToInt)).with(Template{
				KeyObject: Field("section"),
			}),
		},
	}
}

// AnalysisRules read the analysis statistics reports announced in stdout.
func AnalysisRules(benchmark, reportsDir string, diagnostics bool) []Rule {
	strategy := ReportFile{Dir: reportsDir, Diagnostics: diagnostics}
	rules := make([]Rule, 0, len(analysisKeys))
	for _, k := range analysisKeys {
		rules = append(rules, Rule{
			Name:     "analysis-stats/" + k.object,
			Pattern:  analysisStatsPattern,
			Strategy: strategy,
			Template: numeric(Literal(benchmark), "analysis-stats", Literal(k.unit), Coerced(k.key, Int)).with(Template{
				KeyObject: Literal(k.object),
			}),
		})
	}
	return rules
}

// StatisticsRules read the devirtualization and guard counters of the
// image build statistics report.
func StatisticsRules(benchmark, statsFile string) []Rule {
	keys := []string{"total_devirtualized_invokes"}
	for _, counter := range guardCounters {
		for _, phase := range guardPhases {
			keys = append(keys, "total_"+counter+"_"+phase)
		}
	}

	strategy := FixedFile{Path: statsFile}
	rules := make([]Rule, 0, len(keys))
	for _, key := range keys {
		object := strings.ReplaceAll(strings.ReplaceAll(key, "_", "-"), "total-", "")
		rules = append(rules, Rule{
			Name:     "image-build-stats/" + object,
			Strategy: strategy,
			Template: numeric(Literal(benchmark), "image-build-stats", Literal("#"), Coerced(key, Int)).with(Template{
				KeyObject: Literal(object),
			}),
		})
	}
	return rules
}

// TimerRules read the per-phase time and memory of the image build
// statistics report.
func TimerRules(benchmark, statsFile string) []Rule {
	strategy := FixedFile{Path: statsFile}
	rules := make([]Rule, 0, 2*len(TimedPhases))
	for _, phase := range TimedPhases {
		rules = append(rules,
			Rule{
				Name:     "compile-time/" + phase,
				Strategy: strategy,
				Template: numeric(Literal(benchmark), "compile-time", Literal("ms"), Coerced(phase+"_time", TimeToInt)).with(Template{
					KeyObject: Literal(phase),
				}),
			},
			Rule{
				Name:     "compile-time/" + phase + "_memory",
				Strategy: strategy,
				Template: numeric(Literal(benchmark), "compile-time", Literal("B"), Coerced(phase+"_memory", TimeToInt)).with(Template{
					KeyObject: Literal(phase + "_memory"),
				}),
			},
		)
	}
	return rules
}

// PolybenchRules returns the rules for a polyglot harness run reporting
// metricName. The "time" metric reports every iteration as warmup and the
// iterations after the warm-up marker as time. engineConfig is recorded when
// not empty.
func PolybenchRules(benchmark, metricName, engineConfig string) []Rule {
	dims := Template{}
	if engineConfig != "" {
		dims[KeyEngineConfig] = Literal(engineConfig)
	}
	measured := func(name string) Template {
		return numeric(Literal(benchmark), name, Field("unit"), Coerced("value", Float)).with(dims)
	}
	excludeWarmup := ExcludeWarmup{Start: warmupMarkerPattern}

	switch {
	case metricName == "time":
		return []Rule{
			{
				Name:     "warmup",
				Pattern:  iterationPattern,
				Template: measured("warmup").with(Template{KeyIteration: Iteration()}),
			},
			{
				Name:     "time",
				Pattern:  indexedIterationPattern,
				Strategy: excludeWarmup,
				Template: measured("time").with(Template{KeyIteration: Coerced("iteration", Int)}),
			},
			{
				Name:     "context-eval-time",
				Pattern:  loadTimePattern,
				Template: numeric(Literal(benchmark), "context-eval-time", Field("unit"), Coerced("delta", Float)).with(dims),
			},
			{
				Name:     "context-init-time",
				Pattern:  initTimePattern,
				Template: numeric(Literal(benchmark), "context-init-time", Field("unit"), Coerced("delta", Float)).with(dims),
			},
		}
	case slices.Contains(memoryMetrics, metricName):
		return []Rule{{
			Name:     metricName,
			Pattern:  indexedIterationPattern,
			Strategy: excludeWarmup,
			Template: measured(metricName).with(Template{KeyIteration: Coerced("iteration", Int)}),
		}}
	case metricName == "compile-time" || metricName == "pe-time":
		return []Rule{{
			Name:     metricName,
			Pattern:  afterRunPattern,
			Template: measured(metricName),
		}}
	default:
		return nil
	}
}

// FileSizeRules report the sizes printed by the file size harness.
func FileSizeRules(suite string) []Rule {
	return []Rule{{
		Name:    "binary-size",
		Pattern: fileSizePattern,
		Template: numeric(Field("image_name"), "binary-size", Literal("B"), Coerced("value", Int)).with(Template{
			KeyBenchSuite:             Literal(suite),
			KeyBenchmarkConfiguration: Field("path"),
			KeyVM:                     Literal("svm"),
		}),
	}}
}
