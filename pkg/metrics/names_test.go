// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "time", StandardName("peak-time"))
	assert.Equal(t, "compile-time", StandardName("compilation-time"))
	assert.Equal(t, "pe-time", StandardName("partial-evaluation-time"))
	assert.Equal(t, "allocated-memory", StandardName("allocated-bytes"))
	assert.Equal(t, "warmup", StandardName("warmup"))
}

func TestMetricNameFromOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		output string
		want   string
		ok     bool
	}{
		{"::: Bench specifics :::\nmetric class: PeakTimeMetric\n", "time", true},
		{"metric class:   AllocatedBytesMetric", "allocated-memory", true},
		{"metric class: CompilationTimeMetric", "compile-time", true},
		{"metric class: MetaspaceMemory", "metaspace-memory", true},
		{"metric class: Instructions", "instructions", true},
		{"no metric here", "", false},
	}
	for _, tt := range tests {
		got, ok := MetricNameFromOutput(tt.output)
		assert.Equal(t, tt.ok, ok, tt.output)
		assert.Equal(t, tt.want, got, tt.output)
	}
}

const polybenchOutput = `metric class: PeakTimeMetric
::: Warmup :::
[fib.js] iteration 0: 120.5 ms
[fib.js] iteration 1: 80.25 ms
::: Running :::
[fib.js] iteration 0: 40.0 ms
[fib.js] iteration 1: 39.5 ms
### load time (ms): 12
### init time (ms): 7
`

func TestPolybenchTimeRules(t *testing.T) {
	t.Parallel()

	name, ok := MetricNameFromOutput(polybenchOutput)
	require.True(t, ok)

	records, err := Evaluate(PolybenchRules("interpreter/fib.js", name, "standard"), polybenchOutput)
	require.NoError(t, err)

	var warmup, measured []Record
	byName := map[string]Record{}
	for _, r := range records {
		assert.Equal(t, "interpreter/fib.js", r.Benchmark())
		assert.Equal(t, "standard", r[KeyEngineConfig])
		switch r.Name() {
		case "warmup":
			warmup = append(warmup, r)
		case "time":
			measured = append(measured, r)
		default:
			byName[r.Name()] = r
		}
	}

	require.Len(t, warmup, 4)
	assert.Equal(t, int64(3), warmup[3].Iteration())
	assert.Equal(t, 120.5, warmup[0][KeyValue])

	require.Len(t, measured, 2)
	assert.Equal(t, int64(0), measured[0].Iteration())
	assert.Equal(t, 40.0, measured[0][KeyValue])
	assert.Equal(t, "ms", measured[1].Unit())

	assert.Equal(t, 12.0, byName["context-eval-time"][KeyValue])
	assert.Equal(t, 7.0, byName["context-init-time"][KeyValue])
}

func TestPolybenchOtherMetrics(t *testing.T) {
	t.Parallel()

	memory := "::: Running :::\n[a.js] iteration 0: 1024.0 B\n"
	records, err := Evaluate(PolybenchRules("a.js", "allocated-memory", ""), memory)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "allocated-memory", records[0].Name())
	assert.NotContains(t, records[0], KeyEngineConfig)

	records, err = Evaluate(PolybenchRules("a.js", "pe-time", ""), "[a.js] after run: 33.3 ms\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 33.3, records[0][KeyValue])

	assert.Empty(t, PolybenchRules("a.js", "unknown-metric", ""))
}
