// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nibench/nibench/pkg/stages"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	c := New("renaissance", "scrabble", "default-ce")
	c.StageFinished(stages.Agent, "success", 1500*time.Millisecond)
	c.StageFinished(stages.Image, "failure", 90*time.Second)
	c.StageFinished(stages.Image, "failure", 60*time.Second)
	c.RecordsExtracted(7)

	path := filepath.Join(t.TempDir(), "textfile", "nibench.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`nibench_stage_duration_seconds{benchmark="scrabble",config="default-ce",stage="agent",suite="renaissance"} 1.5`,
		`nibench_stage_duration_seconds{benchmark="scrabble",config="default-ce",stage="image",suite="renaissance"} 60`,
		`nibench_stage_outcomes_total{benchmark="scrabble",config="default-ce",outcome="failure",stage="image",suite="renaissance"} 2`,
		`nibench_metric_records_total{benchmark="scrabble",config="default-ce",suite="renaissance"} 7`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %s\n%s", want, text)
		}
	}
}

func TestCollectorsAreIsolated(t *testing.T) {
	t.Parallel()

	a := New("s", "a", "default")
	b := New("s", "b", "default")
	a.RecordsExtracted(1)

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == "nibench_metric_records_total" && len(f.GetMetric()) > 0 {
			t.Error("records of one collector leaked into another")
		}
	}
}
