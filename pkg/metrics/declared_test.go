// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclaredCompile(t *testing.T) {
	t.Parallel()

	d := Declared{
		Pattern:     `(?P<op>\w+) throughput: (?P<ops>[0-9,]+) ops/s`,
		Metric:      "throughput",
		Unit:        "op/s",
		Better:      "higher",
		ValueGroup:  "ops",
		Coercion:    "int",
		Object:      "<op>",
		StartMarker: `^=== measure ===$`,
	}
	rule, err := d.Compile("scrabble")
	require.NoError(t, err)

	records, err := rule.Evaluate("read throughput: 100 ops/s\n=== measure ===\nread throughput: 1,500 ops/s\n")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1500), records[0][KeyValue])
	assert.Equal(t, "read", records[0].Object())
	assert.Equal(t, "higher", records[0].Better())
	assert.Equal(t, "scrabble", records[0].Benchmark())
}

func TestDeclaredDefaults(t *testing.T) {
	t.Parallel()

	rule, err := Declared{Pattern: `took (?P<v>[0-9.]+) s`, Metric: "latency", Unit: "s", ValueGroup: "v", Object: "p99"}.Compile("b")
	require.NoError(t, err)

	records, err := rule.Evaluate("took 0.25 s")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.25, records[0][KeyValue])
	assert.Equal(t, "lower", records[0].Better())
	assert.Equal(t, "p99", records[0].Object())
}

func TestDeclaredCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule Declared
	}{
		{"missing metric", Declared{Pattern: `(?P<v>1)`, ValueGroup: "v"}},
		{"bad pattern", Declared{Metric: "m", Pattern: `(`, ValueGroup: "v"}},
		{"missing value group", Declared{Metric: "m", Pattern: `(?P<x>1)`, ValueGroup: "v"}},
		{"unknown coercion", Declared{Metric: "m", Pattern: `(?P<v>1)`, ValueGroup: "v", Coercion: "bool"}},
		{"bad better", Declared{Metric: "m", Pattern: `(?P<v>1)`, ValueGroup: "v", Better: "up"}},
		{"missing object group", Declared{Metric: "m", Pattern: `(?P<v>1)`, ValueGroup: "v", Object: "<o>"}},
		{"bad start marker", Declared{Metric: "m", Pattern: `(?P<v>1)`, ValueGroup: "v", StartMarker: `[`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.rule.Compile("b")
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}
