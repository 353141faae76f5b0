// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/relgate/relgate/internal/compose"
	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/dag"
	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/internal/metrics"
	"github.com/relgate/relgate/internal/publish"
	"github.com/relgate/relgate/internal/shell"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/internal/violation"
	"github.com/relgate/relgate/internal/workspace"
	"github.com/relgate/relgate/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// Options configures pipeline construction. Zero values select defaults.
	Options struct {
		Load     config.LoadOptions
		Provider config.Provider
		Logger   *log.Logger
		// Report receives rendered gate reports.
		Report io.Writer
		// Stdout and Stderr receive tool output.
		Stdout io.Writer
		Stderr io.Writer
		// MetricsFile overrides the configured textfile path.
		MetricsFile string
		// Parallelism overrides the configured worker count when positive.
		Parallelism int
		// Runner replaces the shell runner for tools and included builds.
		Runner compose.ToolRunner
		// ChangeSet replaces the git changeset.
		ChangeSet violation.ChangeSet
		// Publish adds orchestrator options.
		Publish []publish.Option
		// Now stamps metrics; defaults to time.Now.
		Now func() time.Time
	}

	// Pipeline is a fully wired workspace ready to run targets.
	Pipeline struct {
		Loaded    *config.Loaded
		Workspace *workspace.Workspace
		Graph     *taskgraph.Graph
		Composer  *compose.Composer
		Publisher *publish.Orchestrator
		Builds    []compose.RootBuild
		Metrics   *metrics.Recorder

		opts Options

		gateMu sync.Mutex
		gates  map[types.ModuleName]violation.GateResult
	}

	// Result is the outcome of one run.
	Result struct {
		Plan   *taskgraph.Plan
		Report *taskgraph.Report
		Gates  map[types.ModuleName]violation.GateResult
	}
)

// Build loads configuration and wires every task. Structural
// misconfiguration is reported here, before anything executes.
func Build(ctx context.Context, opts Options) (*Pipeline, error) {
	if opts.Provider == nil {
		opts.Provider = config.NewProvider()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Report == nil {
		opts.Report = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	loaded, err := opts.Provider.Load(ctx, opts.Load)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Load(ctx, loaded, workspace.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Loaded:    loaded,
		Workspace: ws,
		Graph:     taskgraph.New(),
		Metrics:   metrics.NewRecorder(),
		opts:      opts,
		gates:     make(map[types.ModuleName]violation.GateResult),
	}

	runner := opts.Runner
	if runner == nil {
		shellOpts := []shell.Option{shell.WithLogger(opts.Logger)}
		if opts.Stdout != nil || opts.Stderr != nil {
			shellOpts = append(shellOpts, shell.WithOutput(opts.Stdout, opts.Stderr))
		}
		runner = shell.NewRunner(shellOpts...)
	}

	composeOpts := []compose.Option{
		compose.WithRunner(runner),
		compose.WithLogger(opts.Logger),
		compose.WithReportWriter(opts.Report),
		compose.WithGateObserver(p.recordGate),
		compose.WithGateObserver(p.Metrics.ObserveGate),
	}
	if opts.ChangeSet != nil {
		composeOpts = append(composeOpts, compose.WithChangeSet(opts.ChangeSet))
	}
	p.Composer = compose.New(p.Graph, ws, composeOpts...)
	if err := p.Composer.WireAll(); err != nil {
		return nil, err
	}

	pubOpts := append([]publish.Option{
		publish.WithLogger(opts.Logger),
		publish.WithGate(p.Composer.GateTasks),
	}, opts.Publish...)
	p.Publisher = publish.New(p.Graph, pubOpts...)
	if err := p.Publisher.Configure(ctx, ws); err != nil {
		return nil, err
	}

	p.Builds, err = compose.IncludedBuilds(ws.Config(), ws.Root(), runner)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("compose included builds").
			WithSuggestion("Check publish_task and local_publish_task of included_builds in relgate.cue").
			WithIssue(issue.IncludedBuildFailedId).
			Wrap(err).
			BuildError()
	}
	if err := p.Composer.WireRoot(p.Builds); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseTarget turns a CLI target into a task path. Bare names address root
// tasks ("publish" -> ":publish").
func ParseTarget(s string) (types.TaskPath, error) {
	s = strings.TrimSpace(s)
	path := types.TaskPath(s)
	if !strings.HasPrefix(s, ":") {
		path = types.RootTask(s)
	}
	if ok, errs := path.IsValid(); !ok {
		return "", errs[0]
	}
	return path, nil
}

// Plan resolves targets into an execution plan.
func (p *Pipeline) Plan(targets ...string) (*taskgraph.Plan, error) {
	refs := make([]taskgraph.Ref, 0, len(targets))
	for _, s := range targets {
		path, err := ParseTarget(s)
		if err != nil {
			return nil, err
		}
		refs = append(refs, taskgraph.Local(path))
	}
	plan, err := p.Graph.Plan(refs...)
	if err == nil {
		return plan, nil
	}

	var cycle *dag.CycleError
	switch {
	case errors.As(err, &cycle):
		return nil, issue.NewErrorContext().
			WithOperation("plan tasks").
			WithSuggestion("Remove one of the dependencies forming the cycle").
			WithIssue(issue.DependencyCycleId).
			Wrap(err).
			BuildError()
	case errors.Is(err, taskgraph.ErrUnknownTask), errors.Is(err, taskgraph.ErrUnknownBuild):
		return nil, issue.NewErrorContext().
			WithOperation("plan tasks").
			WithResource(strings.Join(targets, " ")).
			WithSuggestion("Run 'relgate tasks' to list the available tasks").
			WithIssue(issue.TaskNotFoundId).
			Wrap(err).
			BuildError()
	default:
		return nil, err
	}
}

// Run plans and executes targets. The returned error aggregates every task
// failure, or reports targets left unfinished by cancellation; the Result is
// returned even when tasks failed.
func (p *Pipeline) Run(ctx context.Context, targets ...string) (*Result, error) {
	plan, err := p.Plan(targets...)
	if err != nil {
		return nil, err
	}

	parallelism := p.Workspace.Config().Execution.Parallelism
	if p.opts.Parallelism > 0 {
		parallelism = p.opts.Parallelism
	}
	exec := taskgraph.NewExecutor(p.Graph,
		taskgraph.WithParallelism(parallelism),
		taskgraph.WithExecutorLogger(p.opts.Logger),
		taskgraph.WithObserver(p.Metrics.ObserveTask),
	)
	report, err := exec.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	if path := p.metricsFile(); path != "" {
		if err := p.Metrics.WriteTextfile(path, p.opts.Now()); err != nil {
			p.opts.Logger.Warn("metrics not written", "path", path, "err", err)
		}
	}

	res := &Result{Plan: plan, Report: report, Gates: p.Gates()}
	if err := report.Err(); err != nil {
		return res, err
	}
	return res, report.Incomplete(plan.Targets...)
}

// Gates returns the gates evaluated so far.
func (p *Pipeline) Gates() map[types.ModuleName]violation.GateResult {
	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	out := make(map[types.ModuleName]violation.GateResult, len(p.gates))
	for k, v := range p.gates {
		out[k] = v
	}
	return out
}

func (p *Pipeline) recordGate(m types.ModuleName, res violation.GateResult) {
	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	p.gates[m] = res
}

func (p *Pipeline) metricsFile() string {
	if p.opts.MetricsFile != "" {
		return p.opts.MetricsFile
	}
	path := p.Workspace.Config().Metrics.Textfile
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Workspace.Root(), path)
}
