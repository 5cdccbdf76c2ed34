// SPDX-License-Identifier: MPL-2.0

// Package telemetry collects stage timings and outcomes of a benchmark run
// and writes them as a Prometheus textfile for the node exporter.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nibench/nibench/pkg/stages"
)

const namespace = "nibench"

// Collector implements executor.Observer on a private registry, so that
// several benchmark runs in one process never share series.
type Collector struct {
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	stageOutcomes *prometheus.CounterVec
	records       *prometheus.CounterVec
	labels        prometheus.Labels
}

// New creates a collector whose series carry the suite, benchmark and
// configuration of the run.
func New(suite, benchmark, config string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	c := &Collector{
		registry: reg,
		labels:   prometheus.Labels{"suite": suite, "benchmark": benchmark, "config": config},
	}

	// stageDuration holds the wall-clock time of the latest run of each stage
	c.stageDuration = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall-clock duration of the last execution of a stage",
	}, []string{"suite", "benchmark", "config", "stage"})

	// stageOutcomes counts stage executions by outcome
	c.stageOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_outcomes_total",
		Help:      "Stage executions by outcome",
	}, []string{"suite", "benchmark", "config", "stage", "outcome"})

	// records counts metric records extracted from benchmark output
	c.records = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "metric_records_total",
		Help:      "Metric records extracted from benchmark output",
	}, []string{"suite", "benchmark", "config"})

	return c
}

// StageFinished records the duration and outcome of a stage.
func (c *Collector) StageFinished(stage stages.Stage, outcome string, elapsed time.Duration) {
	c.stageDuration.With(c.with("stage", string(stage))).Set(elapsed.Seconds())
	c.stageOutcomes.With(c.with("stage", string(stage), "outcome", outcome)).Inc()
}

// RecordsExtracted adds n extracted metric records.
func (c *Collector) RecordsExtracted(n int) {
	c.records.With(c.labels).Add(float64(n))
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes all series to path atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

func (c *Collector) with(kv ...string) prometheus.Labels {
	l := make(prometheus.Labels, len(c.labels)+len(kv)/2)
	for k, v := range c.labels {
		l[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		l[kv[i]] = kv[i+1]
	}
	return l
}
