// SPDX-License-Identifier: MPL-2.0

// Package dag orders nodes connected by artifact hand-offs. An edge records
// that one node produces an artifact another node consumes, so the producer
// must finish first.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError[N comparable] struct {
		// Cycle contains the nodes left with unresolved inputs.
		Cycle []N
	}

	// Edge is a producer/consumer relation labelled with the artifact handed over.
	Edge[N comparable] struct {
		From     N
		To       N
		Artifact string
	}

	// Graph is a directed graph of nodes in insertion order.
	Graph[N comparable] struct {
		edges   []Edge[N]
		nodes   []N
		nodeSet map[N]bool
	}
)

func (e *CycleError[N]) Error() string {
	parts := make([]string, 0, len(e.Cycle))
	for _, n := range e.Cycle {
		parts = append(parts, fmt.Sprint(n))
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// New creates an empty Graph.
func New[N comparable]() *Graph[N] {
	return &Graph[N]{nodeSet: make(map[N]bool)}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph[N]) AddNode(n N) {
	if g.nodeSet[n] {
		return
	}
	g.nodeSet[n] = true
	g.nodes = append(g.nodes, n)
}

// AddEdge records that from produces artifact for to.
// Both nodes are implicitly added if they don't exist.
func (g *Graph[N]) AddEdge(from, to N, artifact string) {
	g.AddNode(from)
	g.AddNode(to)
	g.edges = append(g.edges, Edge[N]{From: from, To: to, Artifact: artifact})
}

// Inputs returns the edges ending in n, in insertion order.
func (g *Graph[N]) Inputs(n N) []Edge[N] {
	var in []Edge[N]
	for _, e := range g.edges {
		if e.To == n {
			in = append(in, e)
		}
	}
	return in
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// Nodes at the same topological level appear in insertion order.
func (g *Graph[N]) TopologicalSort() ([]N, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[N]int, len(g.nodes))
	for _, e := range g.edges {
		inDegree[e.To]++
	}

	queue := make([]N, 0, len(g.nodes))
	for _, n := range g.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	result := make([]N, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		result = append(result, n)

		for _, e := range g.edges {
			if e.From != n {
				continue
			}
			inDegree[e.To]--
			if inDegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []N
		for _, n := range g.nodes {
			if inDegree[n] > 0 {
				cycle = append(cycle, n)
			}
		}
		return nil, &CycleError[N]{Cycle: cycle}
	}

	return result, nil
}
