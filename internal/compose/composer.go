// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"context"
	"io"
	"sync"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/internal/shell"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/internal/violation"
	"github.com/relgate/relgate/internal/workspace"
	"github.com/relgate/relgate/pkg/types"

	"github.com/charmbracelet/log"
)

// Task names registered by the composer.
const (
	TaskSpotlessCheck       = "spotlessCheck"
	TaskCheckstyle          = "checkstyle"
	TaskPMD                 = "pmd"
	TaskCheck               = "check"
	TaskViolations          = "violations"
	TaskPublish             = "publish"
	TaskPublishToMavenLocal = "publishToMavenLocal"

	groupVerification = "verification"
	groupBuild        = "build"
	groupPublishing   = "publishing"
)

type (
	// ToolRunner executes black-box tool commands.
	ToolRunner interface {
		Exec(ctx context.Context, cmd shell.Command) error
	}

	// GateObserver receives every evaluated gate.
	GateObserver func(m types.ModuleName, res violation.GateResult)

	// Composer wires modules into a task graph.
	Composer struct {
		graph      *taskgraph.Graph
		ws         *workspace.Workspace
		classifier *module.Classifier
		tools      config.ToolsConfig
		analysis   config.AnalysisConfig
		runner     ToolRunner
		logger     *log.Logger
		observers  []GateObserver

		reportMu sync.Mutex
		report   io.Writer

		changesOnce sync.Once
		changes     violation.ChangeSet
		changeSetFn func() (violation.ChangeSet, error)

		wired    map[types.ModuleName]bool
		analyses map[types.ModuleName][]types.TaskPath
	}

	// Option configures a Composer.
	Option func(*Composer)
)

// WithRunner sets the tool runner.
func WithRunner(r ToolRunner) Option {
	return func(c *Composer) { c.runner = r }
}

// WithLogger sets the composer logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReportWriter sets where gate reports are rendered.
func WithReportWriter(w io.Writer) Option {
	return func(c *Composer) { c.report = w }
}

// WithGateObserver registers a gate observer.
func WithGateObserver(o GateObserver) Option {
	return func(c *Composer) { c.observers = append(c.observers, o) }
}

// WithChangeSet overrides the changeset used for diff counting.
func WithChangeSet(cs violation.ChangeSet) Option {
	return func(c *Composer) {
		c.changeSetFn = func() (violation.ChangeSet, error) { return cs, nil }
	}
}

// New creates a Composer for the workspace.
func New(g *taskgraph.Graph, ws *workspace.Workspace, opts ...Option) *Composer {
	cfg := ws.Config()
	c := &Composer{
		graph:      g,
		ws:         ws,
		classifier: ws.Classifier(),
		tools:      cfg.Tools,
		analysis:   cfg.Analysis,
		logger:     log.Default(),
		report:     io.Discard,
		wired:      make(map[types.ModuleName]bool),
		analyses:   make(map[types.ModuleName][]types.TaskPath),
	}
	c.changeSetFn = func() (violation.ChangeSet, error) {
		return violation.GitChangeSet(ws.Root(), cfg.Analysis.DiffBase)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = shell.NewRunner(shell.WithLogger(c.logger))
	}
	return c
}

// WireAll wires every workspace module.
func (c *Composer) WireAll() error {
	for _, m := range c.ws.Modules() {
		if err := c.Wire(m); err != nil {
			return err
		}
	}
	return nil
}

// Wire registers the governance tasks of one module. Calling it again for
// the same module is a no-op.
func (c *Composer) Wire(m module.Module) error {
	if c.wired[m.Name] {
		return nil
	}
	policies := c.classifier.Classify(m)
	var analysis []types.TaskPath

	if policies.Formatting {
		t, err := c.ensure(m.Name, TaskSpotlessCheck, c.formatAction(m))
		if err != nil {
			return err
		}
		t.Description = "Checks that Java sources are formatted"
		t.Group = groupVerification
		analysis = append(analysis, t.Path())
	}

	checkstyle, err := c.ensure(m.Name, TaskCheckstyle, c.checkstyleAction(m))
	if err != nil {
		return err
	}
	checkstyle.Description = "Runs Checkstyle over production sources"
	checkstyle.Group = groupVerification
	checkstyle.IgnoreFailures = true
	analysis = append(analysis, checkstyle.Path())

	if policies.Lint != nil {
		for _, v := range policies.Variants {
			lint, err := c.ensure(m.Name, "lint"+v.TaskName(), c.lintAction(m, v, *policies.Lint))
			if err != nil {
				return err
			}
			lint.Description = "Runs lint on the " + v.Name + " variant"
			lint.Group = groupVerification
			lint.IgnoreFailures = !policies.Lint.AbortOnError
			analysis = append(analysis, lint.Path())
		}
	}

	if c.classifier.HasCapability(m, module.CapPMD) {
		pmd, err := c.ensure(m.Name, TaskPMD, c.pmdAction(m))
		if err != nil {
			return err
		}
		pmd.Description = "Runs PMD"
		pmd.Group = groupVerification
		pmd.IgnoreFailures = true
		analysis = append(analysis, pmd.Path())
	}

	for _, v := range policies.Variants {
		if !c.classifier.GeneratesBuildConfig(m, v) {
			continue
		}
		gen, err := c.ensure(m.Name, "generate"+v.TaskName()+"BuildConfig", c.buildConfigAction(m, v))
		if err != nil {
			return err
		}
		gen.Description = "Generates build metadata for the " + v.Name + " variant"
		gen.Group = groupBuild
	}

	violations, err := c.ensure(m.Name, TaskViolations, c.gateAction(m))
	if err != nil {
		return err
	}
	violations.Description = "Aggregates analysis reports and fails on any finding"
	violations.Group = groupVerification
	violations.MustRunAfter(analysis...)

	if c.classifier.HasCheckLifecycle(m) {
		check, _, err := c.graph.Ensure(types.ModuleTask(m.Name, TaskCheck))
		if err != nil {
			return err
		}
		check.Description = "Runs all checks"
		check.Group = groupVerification
		check.DependsOn(analysis...).FinalizedBy(violations.Path())
	}

	c.wired[m.Name] = true
	c.analyses[m.Name] = analysis
	c.logger.Debug("module wired", "module", m.Name, "analysis", len(analysis), "ignored_variants", len(policies.Ignored))
	return nil
}

// GateTasks returns the tasks a module's publication must wait for: its
// check task and gate, or, without a check lifecycle, its analysis tasks
// and gate so the reports are produced before they are aggregated.
func (c *Composer) GateTasks(name types.ModuleName) []types.TaskPath {
	var out []types.TaskPath
	if _, ok := c.graph.Find(types.ModuleTask(name, TaskCheck)); ok {
		out = append(out, types.ModuleTask(name, TaskCheck))
	} else {
		out = append(out, c.analyses[name]...)
	}
	if _, ok := c.graph.Find(types.ModuleTask(name, TaskViolations)); ok {
		out = append(out, types.ModuleTask(name, TaskViolations))
	}
	return out
}

// ensure registers a module task unless it already exists.
func (c *Composer) ensure(m types.ModuleName, name string, action taskgraph.Action) (*taskgraph.Task, error) {
	path := types.ModuleTask(m, name)
	if t, ok := c.graph.Find(path); ok {
		return t, nil
	}
	return c.graph.Register(path, action)
}
