// SPDX-License-Identifier: MPL-2.0

package taskgraph

import (
	"context"
	"slices"

	"github.com/relgate/relgate/pkg/types"
)

type (
	// Action is the work a task performs. Lifecycle tasks have no action.
	Action func(ctx context.Context) error

	// Ref addresses a task in the workspace (Build == "") or in an included
	// build.
	Ref struct {
		Build string
		Path  types.TaskPath
	}

	// Task is a node of the task graph.
	Task struct {
		path        types.TaskPath
		Description string
		Group       string
		// IgnoreFailures makes a failing action count as success for
		// dependents. The failure is still reported.
		IgnoreFailures bool
		// Enabled tasks run their action; disabled tasks are skipped and
		// count as success for dependents.
		Enabled bool
		Action  Action

		dependsOn    []Ref
		finalizedBy  []Ref
		mustRunAfter []Ref
	}
)

// Local returns a Ref to a workspace task.
func Local(path types.TaskPath) Ref {
	return Ref{Path: path}
}

// IsExternal reports whether the ref points into an included build.
func (r Ref) IsExternal() bool { return r.Build != "" }

// String renders the ref; included-build tasks are prefixed with the build
// name in brackets.
func (r Ref) String() string {
	if r.Build == "" {
		return r.Path.String()
	}
	return "[" + r.Build + "]" + r.Path.String()
}

// Path returns the task path.
func (t *Task) Path() types.TaskPath { return t.path }

// Owner returns the owning module, or "" for root tasks.
func (t *Task) Owner() types.ModuleName { return t.path.Owner() }

// DependsOn adds hard dependencies on workspace tasks.
func (t *Task) DependsOn(paths ...types.TaskPath) *Task {
	for _, p := range paths {
		t.dependsOn = appendUnique(t.dependsOn, Local(p))
	}
	return t
}

// DependsOnRef adds hard dependencies, possibly on included-build tasks.
func (t *Task) DependsOnRef(refs ...Ref) *Task {
	for _, r := range refs {
		t.dependsOn = appendUnique(t.dependsOn, r)
	}
	return t
}

// FinalizedBy adds finalizer edges.
func (t *Task) FinalizedBy(paths ...types.TaskPath) *Task {
	for _, p := range paths {
		t.finalizedBy = appendUnique(t.finalizedBy, Local(p))
	}
	return t
}

// MustRunAfter adds soft ordering constraints.
func (t *Task) MustRunAfter(paths ...types.TaskPath) *Task {
	for _, p := range paths {
		t.mustRunAfter = appendUnique(t.mustRunAfter, Local(p))
	}
	return t
}

// Dependencies returns the hard dependencies in declaration order.
func (t *Task) Dependencies() []Ref { return slices.Clone(t.dependsOn) }

// Finalizers returns the finalizer edges in declaration order.
func (t *Task) Finalizers() []Ref { return slices.Clone(t.finalizedBy) }

// RunsAfter returns the soft ordering constraints.
func (t *Task) RunsAfter() []Ref { return slices.Clone(t.mustRunAfter) }

// HasDependency reports whether ref is a direct hard dependency.
func (t *Task) HasDependency(ref Ref) bool { return slices.Contains(t.dependsOn, ref) }

// IsFinalizedBy reports whether path is a finalizer of the task.
func (t *Task) IsFinalizedBy(path types.TaskPath) bool {
	return slices.Contains(t.finalizedBy, Local(path))
}

func appendUnique(refs []Ref, r Ref) []Ref {
	if slices.Contains(refs, r) {
		return refs
	}
	return append(refs, r)
}
