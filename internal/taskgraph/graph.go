// SPDX-License-Identifier: MPL-2.0

package taskgraph

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/relgate/relgate/pkg/types"
)

var (
	// ErrDuplicateTask is returned when registering a path twice.
	ErrDuplicateTask = errors.New("task already registered")
	// ErrUnknownTask is returned when a ref does not resolve to a task.
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownBuild is returned when a ref names a build that was not included.
	ErrUnknownBuild = errors.New("unknown included build")
	// ErrIncomplete is returned when a requested target did not succeed.
	ErrIncomplete = errors.New("target did not complete")
)

type (
	// RunFunc executes a task of an included build.
	RunFunc func(ctx context.Context, path types.TaskPath) error

	// IncludedBuild is a separately versioned build composed into the
	// workspace. Only exposed tasks are addressable from the workspace.
	IncludedBuild struct {
		Name    string
		Dir     string
		Version string
		Run     RunFunc

		exposed []types.TaskPath
	}

	// Graph holds the workspace tasks and included builds.
	Graph struct {
		tasks    map[types.TaskPath]*Task
		order    []types.TaskPath
		included map[string]*IncludedBuild
	}
)

// NewIncludedBuild creates an included build exposing the given tasks.
func NewIncludedBuild(name, dir, version string, run RunFunc, exposed ...types.TaskPath) *IncludedBuild {
	return &IncludedBuild{Name: name, Dir: dir, Version: version, Run: run, exposed: slices.Clone(exposed)}
}

// Task returns the handle of an exposed task.
func (b *IncludedBuild) Task(path types.TaskPath) (Ref, error) {
	if !slices.Contains(b.exposed, path) {
		return Ref{}, fmt.Errorf("%w: %s in included build %q", ErrUnknownTask, path, b.Name)
	}
	return Ref{Build: b.Name, Path: path}, nil
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		tasks:    make(map[types.TaskPath]*Task),
		included: make(map[string]*IncludedBuild),
	}
}

// Register adds a new task. Registering an existing path is an error.
func (g *Graph) Register(path types.TaskPath, action Action) (*Task, error) {
	if valid, errs := path.IsValid(); !valid {
		return nil, errs[0]
	}
	if _, ok := g.tasks[path]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, path)
	}
	t := &Task{path: path, Enabled: true, Action: action}
	g.tasks[path] = t
	g.order = append(g.order, path)
	return t, nil
}

// Ensure returns the task at path, registering a lifecycle task (no action)
// when it does not exist yet. The boolean reports whether it was created.
func (g *Graph) Ensure(path types.TaskPath) (*Task, bool, error) {
	if t, ok := g.tasks[path]; ok {
		return t, false, nil
	}
	t, err := g.Register(path, nil)
	return t, err == nil, err
}

// Find returns the task at path.
func (g *Graph) Find(path types.TaskPath) (*Task, bool) {
	t, ok := g.tasks[path]
	return t, ok
}

// Tasks returns all tasks in registration order.
func (g *Graph) Tasks() []*Task {
	out := make([]*Task, 0, len(g.order))
	for _, p := range g.order {
		out = append(out, g.tasks[p])
	}
	return out
}

// ModuleTasks returns the tasks owned by a module, in registration order.
func (g *Graph) ModuleTasks(module types.ModuleName) []*Task {
	var out []*Task
	for _, p := range g.order {
		if p.Owner() == module {
			out = append(out, g.tasks[p])
		}
	}
	return out
}

// Include composes an included build into the graph.
func (g *Graph) Include(b *IncludedBuild) error {
	if _, ok := g.included[b.Name]; ok {
		return fmt.Errorf("included build %q already registered", b.Name)
	}
	g.included[b.Name] = b
	return nil
}

// IncludedBuild returns a composed included build by name.
func (g *Graph) IncludedBuild(name string) (*IncludedBuild, bool) {
	b, ok := g.included[name]
	return b, ok
}

// resolve validates that ref points at an existing task or exposed handle.
func (g *Graph) resolve(ref Ref) (*Task, error) {
	if ref.IsExternal() {
		b, ok := g.included[ref.Build]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBuild, ref.Build)
		}
		if _, err := b.Task(ref.Path); err != nil {
			return nil, err
		}
		return nil, nil
	}
	t, ok := g.tasks[ref.Path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, ref.Path)
	}
	return t, nil
}
