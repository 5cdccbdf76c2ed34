// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New[string]()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_ArtifactChain(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("instrument-image", "instrument-run", "instrumented image")
	g.AddEdge("instrument-run", "image", "profile")
	g.AddEdge("agent", "image", "reflection config")
	g.AddEdge("image", "run", "final image")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"instrument-image", "agent", "instrument-run", "image", "run"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_InsertionOrderBreaksTies(t *testing.T) {
	t.Parallel()
	g := New[int]()
	g.AddNode(3)
	g.AddNode(1)
	g.AddEdge(3, 2, "x")
	g.AddEdge(1, 2, "y")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []int{3, 1, 2}) {
		t.Errorf("expected [3 1 2], got %v", order)
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		edges   [][2]string
		minSize int
	}{
		{name: "self loop", edges: [][2]string{{"A", "A"}}, minSize: 1},
		{name: "two nodes", edges: [][2]string{{"A", "B"}, {"B", "A"}}, minSize: 2},
		{name: "three nodes", edges: [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}, minSize: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New[string]()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1], "artifact")
			}

			_, err := g.TopologicalSort()
			var cycleErr *CycleError[string]
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T: %v", err, err)
			}
			if len(cycleErr.Cycle) < tt.minSize {
				t.Errorf("expected at least %d nodes in cycle, got %v", tt.minSize, cycleErr.Cycle)
			}
		})
	}
}

func TestTopologicalSort_DuplicateEdges(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("A", "B", "one")
	g.AddEdge("A", "B", "two")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", order)
	}
}

func TestInputs(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("agent", "image", "config")
	g.AddEdge("instrument-run", "image", "profile")
	g.AddEdge("image", "run", "binary")

	in := g.Inputs("image")
	if len(in) != 2 || in[0].Artifact != "config" || in[1].From != "instrument-run" {
		t.Errorf("unexpected inputs for image: %+v", in)
	}
	if got := g.Inputs("agent"); got != nil {
		t.Errorf("expected no inputs for agent, got %+v", got)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError[string]{Cycle: []string{"A", "B", "C"}}
	expected := "dependency cycle detected: A -> B -> C"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
