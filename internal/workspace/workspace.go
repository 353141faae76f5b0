// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/pkg/cueutil"
	"github.com/relgate/relgate/pkg/types"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// DescriptorFileName is the name of per-module descriptor files.
const DescriptorFileName = "module.cue"

// ErrDuplicateModule is returned when two declarations share a module name.
var ErrDuplicateModule = errors.New("duplicate module")

type (
	// Workspace is the immutable module set of one run.
	Workspace struct {
		root       string
		config     *config.Config
		classifier *module.Classifier
		modules    []module.Module
		byName     map[types.ModuleName]int
	}

	// Option configures Load.
	Option func(*loadOptions)

	loadOptions struct {
		logger *log.Logger
	}
)

// WithLogger sets the logger used while loading.
func WithLogger(l *log.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Load builds the workspace from a loaded configuration.
func Load(ctx context.Context, loaded *config.Loaded, opts ...Option) (*Workspace, error) {
	o := loadOptions{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := loaded.Config

	ws := &Workspace{
		root:       loaded.Root,
		config:     cfg,
		classifier: NewClassifier(cfg),
		byName:     make(map[types.ModuleName]int),
	}

	decls := slices.Clone(cfg.Modules)
	descriptors, err := discoverDescriptors(ctx, loaded.Root, cfg.Workspace.ModuleDescriptors)
	if err != nil {
		return nil, err
	}
	decls = append(decls, descriptors...)

	for _, decl := range decls {
		m := toModule(loaded.Root, decl)
		if _, dup := ws.byName[m.Name]; dup {
			return nil, misconfigured(m.Name, fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name))
		}
		if err := ws.classifier.Validate(m); err != nil {
			return nil, misconfigured(m.Name, err)
		}
		ws.byName[m.Name] = len(ws.modules)
		ws.modules = append(ws.modules, m)
		o.logger.Debug("module loaded", "module", m.Name, "kind", m.Kind, "dir", m.Dir)
	}
	return ws, nil
}

// New builds a workspace from already constructed modules. It is used by
// callers that do not read configuration files.
func New(root string, cfg *config.Config, modules ...module.Module) (*Workspace, error) {
	ws := &Workspace{root: root, config: cfg, classifier: NewClassifier(cfg), byName: make(map[types.ModuleName]int)}
	for _, m := range modules {
		if _, dup := ws.byName[m.Name]; dup {
			return nil, misconfigured(m.Name, fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name))
		}
		if err := ws.classifier.Validate(m); err != nil {
			return nil, misconfigured(m.Name, err)
		}
		ws.byName[m.Name] = len(ws.modules)
		ws.modules = append(ws.modules, m)
	}
	return ws, nil
}

// NewClassifier derives the module classifier from configuration.
func NewClassifier(cfg *config.Config) *module.Classifier {
	return module.NewClassifier(module.Options{
		FormatExclusions:    toNames(cfg.FormatExclusions()),
		MetaAnalysisModules: toNames(cfg.Workspace.MetaAnalysisModules),
		ReleaseBuildTypes:   slices.Clone(cfg.Workspace.ReleaseBuildTypes),
	})
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Config returns the workspace configuration.
func (w *Workspace) Config() *config.Config { return w.config }

// Classifier returns the module classifier.
func (w *Workspace) Classifier() *module.Classifier { return w.classifier }

// Modules returns the modules in declaration order.
func (w *Workspace) Modules() []module.Module { return slices.Clone(w.modules) }

// Module returns the module named name.
func (w *Workspace) Module(name types.ModuleName) (module.Module, bool) {
	i, ok := w.byName[name]
	if !ok {
		return module.Module{}, false
	}
	return w.modules[i], true
}

func discoverDescriptors(ctx context.Context, root string, patterns []string) ([]config.ModuleConfig, error) {
	fsys := os.DirFS(root)
	var out []config.ModuleConfig
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("module descriptor pattern %q: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, rel := range matches {
			if seen[rel] || path.Base(rel) != DescriptorFileName {
				continue
			}
			seen[rel] = true
			decl, err := parseDescriptor(root, rel)
			if err != nil {
				return nil, issue.NewErrorContext().
					WithOperation("load module descriptor").
					WithResource(rel).
					WithIssue(issue.ModuleMisconfiguredId).
					Wrap(err).
					BuildError()
			}
			out = append(out, decl)
		}
	}
	return out, nil
}

func parseDescriptor(root, rel string) (config.ModuleConfig, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return config.ModuleConfig{}, err
	}
	res, err := cueutil.ParseAndDecode[config.ModuleConfig](config.Schema(), data, "#ModuleDescriptor",
		cueutil.WithFilename(rel))
	if err != nil {
		return config.ModuleConfig{}, err
	}
	decl := *res.Value
	if decl.Path == "" {
		decl.Path = path.Dir(rel)
	}
	return decl, nil
}

func toModule(root string, decl config.ModuleConfig) module.Module {
	dir := decl.Path
	if dir == "" {
		dir = decl.Name
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, filepath.FromSlash(dir))
	}
	m := module.Module{
		Name: types.ModuleName(decl.Name),
		Dir:  dir,
		Kind: module.Kind(decl.Kind),
	}
	for _, c := range decl.Capabilities {
		m.Capabilities = append(m.Capabilities, module.Capability(c))
	}
	for _, v := range decl.Variants {
		m.Variants = append(m.Variants, module.Variant{Name: v.Name, BuildType: v.BuildType})
	}
	if p := decl.Publication; p != nil {
		m.Publication = &module.Publication{
			GroupID:    p.GroupID,
			ArtifactID: p.ArtifactID,
			Version:    p.Version,
			Artifacts:  slices.Clone(p.Artifacts),
		}
	}
	return m
}

func misconfigured(name types.ModuleName, err error) error {
	return issue.NewErrorContext().
		WithOperation("configure module").
		WithResource(name.String()).
		WithSuggestion("Check the module kind, capabilities and variants in relgate.cue").
		WithSuggestion("Run 'relgate tasks' after fixing to confirm the graph wires").
		WithIssue(issue.ModuleMisconfiguredId).
		Wrap(err).
		BuildError()
}

func toNames(in []string) []types.ModuleName {
	out := make([]types.ModuleName, 0, len(in))
	for _, s := range in {
		out = append(out, types.ModuleName(s))
	}
	return out
}
