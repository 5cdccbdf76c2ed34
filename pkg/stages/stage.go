// SPDX-License-Identifier: MPL-2.0

package stages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nibench/nibench/internal/dag"
)

const (
	// Agent runs the benchmark on the JVM with the tracing agent to collect
	// reflection and resource configuration.
	Agent Stage = "agent"
	// InstrumentImage builds the profile-instrumented image.
	InstrumentImage Stage = "instrument-image"
	// InstrumentRun runs the instrumented image to dump the profile.
	InstrumentRun Stage = "instrument-run"
	// Image builds the final, optimized image.
	Image Stage = "image"
	// Run executes the final image to collect benchmark results.
	Run Stage = "run"
)

// ErrUnknownStage is the sentinel error wrapped by UnknownStageError.
var ErrUnknownStage = errors.New("unknown stage")

var (
	artifacts = stageGraph()
	canonical = mustOrder(artifacts)
)

type (
	// Stage is one step of the native-image benchmark pipeline.
	Stage string

	// UnknownStageError is returned when a stage name is not recognized.
	UnknownStageError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q (expected one of %s)", e.Value, strings.Join(Names(), ", "))
}

// Unwrap returns ErrUnknownStage for errors.Is() compatibility.
func (e *UnknownStageError) Unwrap() error { return ErrUnknownStage }

// stageGraph records which stage hands which artifact to which.
func stageGraph() *dag.Graph[Stage] {
	g := dag.New[Stage]()
	for _, s := range []Stage{Agent, InstrumentImage, InstrumentRun, Image, Run} {
		g.AddNode(s)
	}
	g.AddEdge(Agent, InstrumentImage, "reachability configuration")
	g.AddEdge(InstrumentImage, InstrumentRun, "instrumented image")
	g.AddEdge(Agent, Image, "reachability configuration")
	g.AddEdge(InstrumentRun, Image, "profile")
	g.AddEdge(Image, Run, "final image")
	return g
}

func mustOrder(g *dag.Graph[Stage]) []Stage {
	order, err := g.TopologicalSort()
	if err != nil {
		panic(err)
	}
	return order
}

// All returns the stages in canonical order.
func All() []Stage {
	return append([]Stage(nil), canonical...)
}

// Names returns the stage names in canonical order.
func Names() []string {
	names := make([]string, 0, len(canonical))
	for _, s := range canonical {
		names = append(names, string(s))
	}
	return names
}

// Parse converts a stage name into a Stage.
func Parse(name string) (Stage, error) {
	s := Stage(strings.TrimSpace(name))
	if !s.IsValid() {
		return "", &UnknownStageError{Value: name}
	}
	return s, nil
}

// ParseList parses a comma-separated stage list. An empty list yields nil.
func ParseList(list string) ([]Stage, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out []Stage
	for name := range strings.SplitSeq(list, ",") {
		s, err := Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Join renders stages as a comma-separated list.
func Join(list []Stage) string {
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, string(s))
	}
	return strings.Join(names, ",")
}

// String returns the stage name.
func (s Stage) String() string { return string(s) }

// IsValid reports whether s is one of the five pipeline stages.
func (s Stage) IsValid() bool {
	switch s {
	case Agent, InstrumentImage, InstrumentRun, Image, Run:
		return true
	default:
		return false
	}
}

// IsImageBuild reports whether the stage invokes the image builder.
func (s Stage) IsImageBuild() bool {
	return s == InstrumentImage || s == Image
}

// Inputs lists the stages whose artifacts s consumes, with the artifact names.
func (s Stage) Inputs() []dag.Edge[Stage] {
	return artifacts.Inputs(s)
}

// index is the position of s in canonical order, or -1.
func (s Stage) index() int {
	for i, c := range canonical {
		if c == s {
			return i
		}
	}
	return -1
}
