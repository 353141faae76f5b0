// SPDX-License-Identifier: MPL-2.0

package taskgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is the worker limit used when none is configured.
const DefaultParallelism = 4

const (
	// OutcomeSuccess means the action completed, or its failure was ignored.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the action returned an error.
	OutcomeFailed
	// OutcomeSkipped means a hard dependency did not succeed, or the run was
	// cancelled before the task started.
	OutcomeSkipped
	// OutcomeDisabled means the task was switched off and counts as success.
	OutcomeDisabled
)

type (
	// Outcome is the terminal state of a task in a run.
	Outcome int

	// TaskResult records how one plan node finished.
	TaskResult struct {
		Ref     Ref
		Outcome Outcome
		Err     error
		// Ignored is set when the action failed but the task ignores failures.
		Ignored  bool
		Duration time.Duration
	}

	// Observer receives every result as soon as it is known.
	Observer func(TaskResult)

	// Executor runs a Plan with a bounded number of concurrent actions.
	// Siblings of a failing task keep running; only its dependents are skipped.
	Executor struct {
		graph       *Graph
		parallelism int
		logger      *log.Logger
		observers   []Observer
	}

	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)

	// Report is the outcome of one execution.
	Report struct {
		// Results are in completion order.
		Results []TaskResult
		byRef   map[Ref]TaskResult
	}

	// ExecutionError aggregates every task failure of a run.
	ExecutionError struct {
		Failures []TaskResult
	}
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// satisfies reports whether dependents may run after this outcome.
func (o Outcome) satisfies() bool {
	return o == OutcomeSuccess || o == OutcomeDisabled
}

// WithParallelism bounds the number of concurrently running actions.
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(l *log.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers a result observer. Observers are called from the
// dispatching goroutine only.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observers = append(e.observers, o) }
}

// NewExecutor creates an Executor for tasks of g.
func NewExecutor(g *Graph, opts ...ExecutorOption) *Executor {
	e := &Executor{graph: g, parallelism: DefaultParallelism, logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every node of the plan. The returned error is non-nil only
// when the plan cannot make progress; task failures are in the Report.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{byRef: make(map[Ref]TaskResult, len(plan.Order))}
	results := make(chan TaskResult, len(plan.Order))
	dispatched := make(map[Ref]bool, len(plan.Order))

	var g errgroup.Group
	g.SetLimit(e.parallelism)

	record := func(res TaskResult) {
		report.add(res)
		e.log(res)
		for _, o := range e.observers {
			o(res)
		}
	}

	running := 0
	for {
		progressed := false
		for _, ref := range plan.Order {
			if dispatched[ref] {
				continue
			}
			node := plan.nodes[ref]
			if !report.finished(node.Hard) || !report.finished(node.After) {
				continue
			}
			dispatched[ref] = true
			if res, decided := e.decide(ctx, node, report); decided {
				record(res)
				progressed = true
				continue
			}
			running++
			e.logger.Debug("starting task", "task", ref.String())
			g.Go(func() error {
				results <- e.run(ctx, node)
				return nil
			})
		}
		if len(report.byRef) == len(plan.Order) {
			break
		}
		if running == 0 {
			if progressed {
				continue
			}
			return report, fmt.Errorf("execution stalled with %d of %d tasks finished",
				len(report.byRef), len(plan.Order))
		}
		res := <-results
		running--
		record(res)
	}
	_ = g.Wait()
	return report, nil
}

// decide settles nodes that need no action.
func (e *Executor) decide(ctx context.Context, node *Node, report *Report) (TaskResult, bool) {
	for _, dep := range node.Hard {
		if !report.byRef[dep].Outcome.satisfies() {
			return TaskResult{
				Ref:     node.Ref,
				Outcome: OutcomeSkipped,
				Err:     fmt.Errorf("dependency %s did not succeed", dep),
			}, true
		}
	}
	if err := ctx.Err(); err != nil {
		return TaskResult{Ref: node.Ref, Outcome: OutcomeSkipped, Err: err}, true
	}
	if node.Task == nil {
		return TaskResult{}, false
	}
	if !node.Task.Enabled {
		return TaskResult{Ref: node.Ref, Outcome: OutcomeDisabled}, true
	}
	if node.Task.Action == nil {
		return TaskResult{Ref: node.Ref, Outcome: OutcomeSuccess}, true
	}
	return TaskResult{}, false
}

func (e *Executor) run(ctx context.Context, node *Node) TaskResult {
	start := time.Now()
	var err error
	if node.Task == nil {
		err = e.runExternal(ctx, node.Ref)
	} else {
		err = node.Task.Action(ctx)
	}
	res := TaskResult{Ref: node.Ref, Outcome: OutcomeSuccess, Duration: time.Since(start)}
	if err != nil {
		res.Err = err
		if node.Task != nil && node.Task.IgnoreFailures {
			res.Ignored = true
		} else {
			res.Outcome = OutcomeFailed
		}
	}
	return res
}

func (e *Executor) runExternal(ctx context.Context, ref Ref) error {
	b, ok := e.graph.IncludedBuild(ref.Build)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBuild, ref.Build)
	}
	if b.Run == nil {
		return fmt.Errorf("included build %q cannot run %s", b.Name, ref.Path)
	}
	return b.Run(ctx, ref.Path)
}

func (e *Executor) log(res TaskResult) {
	switch {
	case res.Outcome == OutcomeFailed:
		e.logger.Error("task failed", "task", res.Ref.String(), "err", res.Err)
	case res.Ignored:
		e.logger.Warn("task failed, ignoring", "task", res.Ref.String(), "err", res.Err)
	case res.Outcome == OutcomeSkipped:
		e.logger.Info("task skipped", "task", res.Ref.String(), "reason", res.Err)
	default:
		e.logger.Debug("task finished", "task", res.Ref.String(), "outcome", res.Outcome, "duration", res.Duration)
	}
}

func (r *Report) add(res TaskResult) {
	r.Results = append(r.Results, res)
	r.byRef[res.Ref] = res
}

func (r *Report) finished(refs []Ref) bool {
	for _, ref := range refs {
		if _, ok := r.byRef[ref]; !ok {
			return false
		}
	}
	return true
}

// Result returns the result of ref.
func (r *Report) Result(ref Ref) (TaskResult, bool) {
	res, ok := r.byRef[ref]
	return res, ok
}

// Outcome returns the outcome of ref, or OutcomeSkipped when it did not run.
func (r *Report) Outcome(ref Ref) Outcome {
	if res, ok := r.byRef[ref]; ok {
		return res.Outcome
	}
	return OutcomeSkipped
}

// Failed returns the failed results in completion order.
func (r *Report) Failed() []TaskResult {
	var out []TaskResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded reports whether no task failed and every requested target
// succeeded.
func (r *Report) Succeeded(targets ...Ref) bool {
	if len(r.Failed()) > 0 {
		return false
	}
	for _, t := range targets {
		if !r.Outcome(t).satisfies() {
			return false
		}
	}
	return true
}

// Err returns an ExecutionError when any task failed.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &ExecutionError{Failures: failed}
}

// Incomplete returns an error wrapping ErrIncomplete when a target did not
// succeed although no task failed, as when the run was cancelled.
func (r *Report) Incomplete(targets ...Ref) error {
	var errs []error
	for _, t := range targets {
		if r.Outcome(t).satisfies() {
			continue
		}
		reason := errors.New("not run")
		if res, ok := r.byRef[t]; ok && res.Err != nil {
			reason = res.Err
		}
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrIncomplete, t, reason))
	}
	return errors.Join(errs...)
}

func (e *ExecutionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Ref, f.Err))
	}
	return fmt.Sprintf("%d task(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every task error to errors.Is and errors.As.
func (e *ExecutionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
