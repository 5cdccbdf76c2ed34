// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibench/nibench/pkg/types"
)

func TestBinarySizeLine(t *testing.T) {
	t.Parallel()

	records, err := Evaluate(GeneralImageBuildRules("myBench"), "The executed image size for benchmark myGroup:myBench is 1048576 B\n")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "binary-size", rec.Name())
	assert.Equal(t, int64(1048576), rec[KeyValue])
	assert.Equal(t, "B", rec.Unit())
	assert.Equal(t, "myGroup", rec[KeyBenchSuite])
	assert.Equal(t, "myBench", rec.Benchmark())
	assert.Equal(t, "svm", rec[KeyVM])
	assert.Equal(t, "lower", rec.Better())
	assert.Equal(t, int64(0), rec.Iteration())
}

func TestGeneralImageBuildRules(t *testing.T) {
	t.Parallel()

	stdout := `The reflect configuration size for benchmark renaissance:scrabble is 2048 B
[scrabble:41235]     [total]:   12,345.67 ms,  2.10 GB
Sections:
Idx Name          Size      VMA               LMA               File off  Algn
  0 .text         0001a2b0  0000000000401000  0000000000401000  00001000  2**4
  1 .rodata       00000400  0000000000600000  0000000000600000  00200000  2**5
`
	records, err := Evaluate(GeneralImageBuildRules("scrabble"), stdout)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "config-size", records[0].Name())
	assert.Equal(t, "reflect", records[0].Object())
	assert.Equal(t, int64(2048), records[0][KeyValue])

	assert.Equal(t, "compile-time", records[1].Name())
	assert.Equal(t, "total", records[1].Object())
	assert.Equal(t, int64(12345), records[1][KeyValue])
	assert.Equal(t, "ms", records[1].Unit())

	assert.Equal(t, "binary-section-size", records[2].Name())
	assert.Equal(t, "text", records[2].Object())
	assert.Equal(t, int64(0x1a2b0), records[2][KeyValue])
	assert.Equal(t, "rodata", records[3].Object())
	assert.Equal(t, int64(0x400), records[3][KeyValue])
}

func TestNoMatchYieldsNoRecords(t *testing.T) {
	t.Parallel()

	records, err := Evaluate(GeneralImageBuildRules("b"), "nothing to see here\n")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = Evaluate(nil, "The executed image size for benchmark a:b is 1 B")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExcludeWarmup(t *testing.T) {
	t.Parallel()

	rule := Rule{
		Name:     "value",
		Pattern:  regexp.MustCompile(`value: (?P<v>[0-9]+)`),
		Strategy: ExcludeWarmup{Start: regexp.MustCompile(`::: Running :::`)},
		Template: Template{KeyName: Literal("v"), KeyValue: Coerced("v", Int), KeyIteration: Iteration()},
	}

	records, err := rule.Evaluate("value: 1\nvalue: 2\n::: Running :::\nvalue: 3\nvalue: 4\n")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0][KeyValue])
	assert.Equal(t, int64(4), records[1][KeyValue])
	assert.Equal(t, int64(1), records[1].Iteration())

	records, err = rule.Evaluate("value: 1\nvalue: 2\n")
	require.NoError(t, err)
	assert.Empty(t, records, "a missing start marker must yield nothing")

	records, err = rule.Evaluate("value: 1\n::: Running :::")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTemplateMissingFieldSkipsRecord(t *testing.T) {
	t.Parallel()

	rule := Rule{
		Name:     "optional",
		Pattern:  regexp.MustCompile(`a=(?P<a>[0-9]+)(?: b=(?P<b>[0-9]+))?`),
		Template: Template{KeyName: Literal("x"), KeyValue: Coerced("b", Int)},
	}
	records, err := rule.Evaluate("a=1\na=2 b=3\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0][KeyValue])
}

func TestCoercionFailureIsReported(t *testing.T) {
	t.Parallel()

	rule := Rule{
		Name:     "broken",
		Pattern:  regexp.MustCompile(`took (?P<v>\S+) ms`),
		Template: Template{KeyName: Literal("t"), KeyValue: Coerced("v", Int)},
	}
	_, err := Evaluate([]Rule{rule}, "took fast ms\n")
	require.ErrorIs(t, err, ErrCoercion)

	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "broken", ce.Rule)
	assert.Equal(t, "fast", ce.Value)
}

func TestNamesAreStandardized(t *testing.T) {
	t.Parallel()

	rule := Rule{
		Name:     "peak",
		Pattern:  regexp.MustCompile(`peak (?P<v>[0-9.]+)`),
		Template: Template{KeyName: Literal("peak-time"), KeyValue: Coerced("v", Float)},
	}
	records, err := rule.Evaluate("peak 1.5")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "time", records[0].Name())
}

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAnalysisRules(t *testing.T) {
	t.Parallel()

	reports := t.TempDir()
	writeJSON(t, filepath.Join(reports, "analysis_results.json"), `{
		"total_call_edges": 120345,
		"total_reachable_types": 4012,
		"total_reachable_methods": 23001,
		"total_reachable_fields": 7000,
		"total_memory_bytes": 536870912,
		"nested": {"ignored": 1}
	}`)

	stdout := "building\n# Printing analysis results stats to: /tmp/other/place/analysis_results.json\ndone\n"
	records, err := Evaluate(AnalysisRules("scrabble", reports, false), stdout)
	require.NoError(t, err)
	require.Len(t, records, 5)

	byObject := map[string]Record{}
	for _, r := range records {
		assert.Equal(t, "analysis-stats", r.Name())
		assert.Equal(t, "scrabble", r.Benchmark())
		byObject[r.Object()] = r
	}
	assert.Equal(t, int64(120345), byObject["call-edges"][KeyValue])
	assert.Equal(t, "#", byObject["call-edges"].Unit())
	assert.Equal(t, int64(536870912), byObject["memory"][KeyValue])
	assert.Equal(t, "B", byObject["memory"].Unit())
}

func TestAnalysisRulesDiagnosticsMode(t *testing.T) {
	t.Parallel()

	reports := t.TempDir()
	writeJSON(t, filepath.Join(reports, "diag-20240101", "analysis_results.json"), `{"total_call_edges": 5}`)

	stdout := "# Printing analysis results stats to: /build/diag-20240101/analysis_results.json\n"
	records, err := Evaluate(AnalysisRules("b", reports, true)[:1], stdout)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(5), records[0][KeyValue])
}

func TestAnalysisRulesMissingReport(t *testing.T) {
	t.Parallel()

	reports := t.TempDir()
	stdout := "# Printing analysis results stats to: /build/reports/analysis_results.json\n"
	_, err := Evaluate(AnalysisRules("b", reports, false), stdout)
	require.ErrorIs(t, err, types.ErrArtifactIntegrity)

	var ae *types.ArtifactIntegrityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, filepath.Join(reports, "analysis_results.json"), ae.Path)
	assert.Equal(t, "/build/reports/analysis_results.json", ae.Source)
}

func TestStatisticsAndTimerRules(t *testing.T) {
	t.Parallel()

	stats := filepath.Join(t.TempDir(), "reports", "image_build_statistics.json")
	writeJSON(t, stats, `{
		"total_devirtualized_invokes": 412,
		"total_null_pointer_before_high_tier": 37,
		"total_time": 45678.9,
		"total_memory": 2147483648,
		"analysis_time": 12001.2
	}`)

	rules := append(StatisticsRules("b", stats), TimerRules("b", stats)...)
	assert.Len(t, rules, 1+3*11+2*len(TimedPhases))

	records, err := Evaluate(rules, "")
	require.NoError(t, err)
	require.Len(t, records, 5)

	got := map[string]Record{}
	for _, r := range records {
		got[r.Name()+"/"+r.Object()] = r
	}
	assert.Equal(t, int64(412), got["image-build-stats/devirtualized-invokes"][KeyValue])
	assert.Equal(t, int64(37), got["image-build-stats/null-pointer-before-high-tier"][KeyValue])
	assert.Equal(t, int64(45678), got["compile-time/total"][KeyValue])
	assert.Equal(t, "ms", got["compile-time/total"].Unit())
	assert.Equal(t, int64(2147483648), got["compile-time/total_memory"][KeyValue])
	assert.Equal(t, "B", got["compile-time/total_memory"].Unit())
	assert.Equal(t, int64(12001), got["compile-time/analysis"][KeyValue])
}

func TestFixedFileMissingYieldsNothing(t *testing.T) {
	t.Parallel()

	records, err := Evaluate(TimerRules("b", filepath.Join(t.TempDir(), "missing.json")), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestImageBuildRules(t *testing.T) {
	t.Parallel()

	rules := ImageBuildRules(ImageBuild{Benchmark: "b", ReportsDir: t.TempDir(), StatsFile: "/nonexistent/stats.json"})
	assert.Len(t, rules, 4+len(analysisKeys)+1+3*len(guardCounters)+2*len(TimedPhases))

	records, err := Evaluate(rules, "The executed image size for benchmark s:b is 10 B\n")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileSizeRules(t *testing.T) {
	t.Parallel()

	stdout := "== binary size == lib:jvmcicompiler is 52428800 bytes, path = lib/libjvmcicompiler.so\n" +
		"== binary size == js is 1024 bytes, path = bin/js\n"
	records, err := Evaluate(FileSizeRules("file-size"), stdout)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "lib:jvmcicompiler", records[0].Benchmark())
	assert.Equal(t, int64(52428800), records[0][KeyValue])
	assert.Equal(t, "lib/libjvmcicompiler.so", records[0][KeyBenchmarkConfiguration])
	assert.Equal(t, "file-size", records[0][KeyBenchSuite])
	assert.Equal(t, "js", records[1].Benchmark())
}
