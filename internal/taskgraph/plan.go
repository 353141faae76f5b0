// SPDX-License-Identifier: MPL-2.0

package taskgraph

import (
	"fmt"
	"slices"

	"github.com/relgate/relgate/internal/dag"
)

type (
	// Node is one entry of a Plan.
	Node struct {
		Ref Ref
		// Task is nil for included-build tasks.
		Task *Task
		// Hard are the plan nodes that must succeed first.
		Hard []Ref
		// After are the plan nodes that must merely finish first
		// (finalized tasks and soft ordering).
		After []Ref
		// Finalizes lists the tasks this node finalizes.
		Finalizes []Ref
	}

	// Plan is the resolved, topologically ordered closure of requested tasks.
	Plan struct {
		Targets []Ref
		Order   []Ref
		nodes   map[Ref]*Node
	}
)

// Node returns the plan node for ref.
func (p *Plan) Node(ref Ref) (*Node, bool) {
	n, ok := p.nodes[ref]
	return n, ok
}

// Contains reports whether the plan executes ref.
func (p *Plan) Contains(ref Ref) bool {
	_, ok := p.nodes[ref]
	return ok
}

// Index returns the position of ref in the execution order, or -1.
func (p *Plan) Index(ref Ref) int {
	return slices.Index(p.Order, ref)
}

// Plan resolves the targets, their transitive dependencies and every
// finalizer of an included task, then orders the result.
func (g *Graph) Plan(targets ...Ref) (*Plan, error) {
	p := &Plan{Targets: slices.Clone(targets), nodes: make(map[Ref]*Node)}

	queue := slices.Clone(targets)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if _, seen := p.nodes[ref]; seen {
			continue
		}
		task, err := g.resolve(ref)
		if err != nil {
			return nil, err
		}
		n := &Node{Ref: ref, Task: task}
		p.nodes[ref] = n
		if task == nil {
			continue
		}
		queue = append(queue, task.dependsOn...)
		queue = append(queue, task.finalizedBy...)
	}

	// Wire relations once the closure is known so soft edges can be filtered.
	d := dag.New[Ref]()
	for _, ref := range p.sortedRefs() {
		d.AddNode(ref)
	}
	for _, ref := range p.sortedRefs() {
		n := p.nodes[ref]
		if n.Task == nil {
			continue
		}
		for _, dep := range n.Task.dependsOn {
			n.Hard = append(n.Hard, dep)
			d.AddEdge(dep, ref)
		}
		for _, after := range n.Task.mustRunAfter {
			if p.Contains(after) {
				n.After = append(n.After, after)
				d.AddEdge(after, ref)
			}
		}
		for _, fin := range n.Task.finalizedBy {
			fn := p.nodes[fin]
			fn.After = appendUnique(fn.After, ref)
			fn.Finalizes = appendUnique(fn.Finalizes, ref)
			d.AddEdge(ref, fin)
		}
	}

	order, err := d.Sort()
	if err != nil {
		return nil, fmt.Errorf("plan %v: %w", targets, err)
	}
	p.Order = order
	return p, nil
}

// sortedRefs returns plan refs sorted by their string form so graph
// construction, and therefore tie-breaking in the order, is deterministic.
func (p *Plan) sortedRefs() []Ref {
	refs := make([]Ref, 0, len(p.nodes))
	for ref := range p.nodes {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b Ref) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	})
	return refs
}
