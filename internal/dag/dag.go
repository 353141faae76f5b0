// SPDX-License-Identifier: MPL-2.0

// Package dag orders the nodes of a directed graph. The task planner
// flattens hard dependencies, finalizer edges and soft ordering into
// "runs before" edges and sorts them here.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is wrapped by every CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError reports one closed path of the graph, first node repeated
	// at the end.
	CycleError struct {
		Path []string
	}

	// Graph is a directed graph over comparable keys. An edge from A to B
	// means A runs before B.
	Graph[K comparable] struct {
		order []K
		out   map[K][]K
		edges map[[2]K]struct{}
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// New returns an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		out:   make(map[K][]K),
		edges: make(map[[2]K]struct{}),
	}
}

// AddNode adds k once; later calls are no-ops.
func (g *Graph[K]) AddNode(k K) {
	if _, ok := g.out[k]; ok {
		return
	}
	g.out[k] = nil
	g.order = append(g.order, k)
}

// AddEdge records that from runs before to, adding missing nodes.
// Duplicate edges are ignored.
func (g *Graph[K]) AddEdge(from, to K) {
	g.AddNode(from)
	g.AddNode(to)
	if g.hasEdge(from, to) {
		return
	}
	g.edges[[2]K{from, to}] = struct{}{}
	g.out[from] = append(g.out[from], to)
}

// hasEdge reports whether from runs before to directly.
func (g *Graph[K]) hasEdge(from, to K) bool {
	_, ok := g.edges[[2]K{from, to}]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int { return len(g.order) }

// Sort returns the nodes in an order satisfying every edge. Among nodes
// that are ready at the same time, insertion order wins.
func (g *Graph[K]) Sort() ([]K, error) {
	indeg := make(map[K]int, len(g.order))
	for _, succ := range g.out {
		for _, s := range succ {
			indeg[s]++
		}
	}
	var ready []K
	for _, k := range g.order {
		if indeg[k] == 0 {
			ready = append(ready, k)
		}
	}

	sorted := make([]K, 0, len(g.order))
	for len(ready) > 0 {
		k := ready[0]
		ready = ready[1:]
		sorted = append(sorted, k)
		for _, s := range g.out[k] {
			if indeg[s]--; indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	if len(sorted) < len(g.order) {
		return nil, &CycleError{Path: g.cycle(indeg)}
	}
	return sorted, nil
}

// cycle returns one loop among the unsorted nodes (positive in-degree).
// Each of them keeps an unsorted predecessor, so walking predecessors
// from any of them must revisit a node.
func (g *Graph[K]) cycle(indeg map[K]int) []string {
	pred := make(map[K]K)
	var start K
	found := false
	for _, from := range g.order {
		if indeg[from] == 0 {
			continue
		}
		if !found {
			start, found = from, true
		}
		for _, to := range g.out[from] {
			if indeg[to] > 0 {
				pred[to] = from
			}
		}
	}

	var back []K
	seen := make(map[K]int)
	for k := start; ; k = pred[k] {
		if i, ok := seen[k]; ok {
			back = append(back[i:], k)
			break
		}
		seen[k] = len(back)
		back = append(back, k)
	}
	slices.Reverse(back)
	names := make([]string, len(back))
	for i, k := range back {
		names[i] = fmt.Sprint(k)
	}
	return names
}
