// SPDX-License-Identifier: MPL-2.0

package metrics

import "fmt"

// Dimension keys of a metric record.
const (
	KeyBenchSuite             = "bench-suite"
	KeyBenchmark              = "benchmark"
	KeyBenchmarkConfiguration = "benchmark-configuration"
	KeyVM                     = "vm"
	KeyEngineConfig           = "engine.config"
	KeyName                   = "metric.name"
	KeyValue                  = "metric.value"
	KeyUnit                   = "metric.unit"
	KeyType                   = "metric.type"
	KeyScoreFunction          = "metric.score-function"
	KeyBetter                 = "metric.better"
	KeyIteration              = "metric.iteration"
	KeyObject                 = "metric.object"
)

type (
	// Record is one extracted data point keyed by dimension.
	Record map[string]any

	// Sink receives the records extracted for a benchmark.
	Sink interface {
		Record(benchmark string, records []Record) error
	}
)

// Benchmark returns the benchmark dimension.
func (r Record) Benchmark() string { return r.str(KeyBenchmark) }

// Name returns the metric name.
func (r Record) Name() string { return r.str(KeyName) }

// Unit returns the metric unit.
func (r Record) Unit() string { return r.str(KeyUnit) }

// Object returns the optional metric object, or "".
func (r Record) Object() string { return r.str(KeyObject) }

// Better returns the direction in which the metric improves.
func (r Record) Better() string { return r.str(KeyBetter) }

// Value returns the metric value as a float and whether it is numeric.
func (r Record) Value() (float64, bool) {
	switch v := r[KeyValue].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Iteration returns the metric iteration, or 0.
func (r Record) Iteration() int64 {
	if v, ok := r[KeyIteration].(int64); ok {
		return v
	}
	return 0
}

func (r Record) str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
