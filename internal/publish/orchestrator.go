// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/credential"
	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/internal/workspace"
	"github.com/relgate/relgate/pkg/types"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/iancoleman/strcase"
)

const (
	taskPublish             = "publish"
	taskPublishToMavenLocal = "publishToMavenLocal"
	groupPublishing         = "publishing"
)

type (
	// GateFunc returns the tasks a module's publication must wait for.
	GateFunc func(types.ModuleName) []types.TaskPath

	// Orchestrator decides which repositories are active, whether artifacts
	// are signed, and registers the publication tasks.
	Orchestrator struct {
		graph         *taskgraph.Graph
		resolver      *credential.Resolver
		ambient       *credential.Ambient
		gate          GateFunc
		logger        *log.Logger
		newS3         S3Factory
		newStaging    StagingFactory
		localOverride Repository
		extraProps    map[string]string
		lookupEnv     func(string) (string, bool)

		cfg     config.PublishingConfig
		targets []*Target
		local   Repository
		signer  *Signer

		mu      sync.Mutex
		bundles map[types.ModuleName]*bundleOnce
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	bundleOnce struct {
		once   sync.Once
		bundle *Bundle
		err    error
	}
)

// WithLogger sets the orchestrator logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithResolver replaces the credential resolver built from configuration.
func WithResolver(r *credential.Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithAmbient sets the ambient credential step of the private repository.
// A nil Ambient removes the step.
func WithAmbient(a *credential.Ambient) Option {
	return func(o *Orchestrator) { o.ambient = a }
}

// WithGate sets the gate dependencies of publication tasks.
func WithGate(g GateFunc) Option {
	return func(o *Orchestrator) { o.gate = g }
}

// WithS3Factory replaces the private repository constructor.
func WithS3Factory(f S3Factory) Option {
	return func(o *Orchestrator) { o.newS3 = f }
}

// WithStagingFactory replaces the staging repository constructor.
func WithStagingFactory(f StagingFactory) Option {
	return func(o *Orchestrator) { o.newStaging = f }
}

// WithLocalRepository replaces the local Maven cache.
func WithLocalRepository(r Repository) Option {
	return func(o *Orchestrator) { o.localOverride = r }
}

// WithProperties adds explicit properties that win over properties files.
func WithProperties(props map[string]string) Option {
	return func(o *Orchestrator) { o.extraProps = props }
}

// WithLookupEnv replaces the environment lookup of the default resolver.
func WithLookupEnv(f func(string) (string, bool)) Option {
	return func(o *Orchestrator) { o.lookupEnv = f }
}

// New creates an Orchestrator registering tasks into g.
func New(g *taskgraph.Graph, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		graph:      g,
		logger:     log.Default(),
		newS3:      NewS3Repository,
		newStaging: NewHTTPRepository,
		ambient:    credential.NewAmbient(credential.DefaultProviderLoader),
		gate:       func(types.ModuleName) []types.TaskPath { return nil },
		bundles:    make(map[types.ModuleName]*bundleOnce),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewResolver builds the credential resolver of a workspace: properties
// files, then inline properties, then the environment.
func NewResolver(root string, cfg config.CredentialsConfig, extra map[string]string, lookupEnv func(string) (string, bool), logger *log.Logger) (*credential.Resolver, error) {
	props := credential.NewPropertySource("properties", nil)
	for _, f := range cfg.PropertiesFiles {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		src, err := credential.LoadPropertiesFile(p)
		if err != nil {
			return nil, err
		}
		props = props.Merge(p, src.Values())
	}
	props = props.Merge("properties", cfg.Properties).Merge("properties", extra)

	if logger == nil {
		logger = log.Default()
	}
	env := credential.NewEnvSource()
	if lookupEnv != nil {
		env = credential.NewEnvSourceFunc(lookupEnv)
	}
	return credential.NewResolver([]credential.Source{props, env}, credential.WithLogger(logger)), nil
}

// Configure resolves repositories and signing, then registers publication
// tasks for every module with a publication.
func (o *Orchestrator) Configure(ctx context.Context, ws *workspace.Workspace) error {
	cfg := ws.Config()
	o.cfg = cfg.Publishing
	if o.resolver == nil {
		r, err := NewResolver(ws.Root(), cfg.Credentials, o.extraProps, o.lookupEnv, o.logger)
		if err != nil {
			return configError("load credential properties", err, issue.ConfigLoadFailedId)
		}
		o.resolver = r
	}

	if err := o.configureTargets(ctx); err != nil {
		return err
	}
	if err := o.configureSigning(ctx); err != nil {
		return err
	}

	o.local = o.localOverride
	if o.local == nil {
		dir := o.cfg.LocalRepository
		if dir != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(ws.Root(), dir)
		}
		local, err := NewLocalRepository(dir)
		if err != nil {
			return err
		}
		o.local = local
	}

	for _, m := range ws.Modules() {
		if !m.HasCapability(module.CapPublishing) {
			continue
		}
		if err := o.wireModule(m); err != nil {
			return err
		}
	}
	return nil
}

// Targets returns every remote target, active or not.
func (o *Orchestrator) Targets() []*Target { return o.targets }

// ActiveTargets returns the remote targets whose credentials resolved.
func (o *Orchestrator) ActiveTargets() []*Target {
	var out []*Target
	for _, t := range o.targets {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

// Signer returns the signer, or nil when publications are unsigned.
func (o *Orchestrator) Signer() *Signer { return o.signer }

// Resolver returns the credential resolver in use.
func (o *Orchestrator) Resolver() *credential.Resolver { return o.resolver }

// PrivateChain is the credential chain of the private repository.
func (o *Orchestrator) PrivateChain() credential.Chain {
	chain := credential.Chain{
		Name:  "repository:" + o.cfg.Private.Name,
		Steps: []credential.Step{o.resolver.PairStep(o.cfg.Private.AccessKey, o.cfg.Private.SecretKey)},
	}
	if o.ambient != nil {
		chain.Steps = append(chain.Steps, o.ambient.Step())
	}
	return chain
}

// StagingChain is the credential chain of the staging repository.
func (o *Orchestrator) StagingChain() credential.Chain {
	return credential.Chain{
		Name:  "repository:" + o.cfg.Staging.Name,
		Steps: []credential.Step{o.resolver.PairStep(o.cfg.Staging.Username, o.cfg.Staging.APIKey)},
	}
}

func (o *Orchestrator) configureTargets(ctx context.Context) error {
	o.targets = nil
	if o.cfg.Private.URL != "" {
		chain := o.PrivateChain()
		t := &Target{Name: o.cfg.Private.Name, URL: o.cfg.Private.URL, Binding: chain.Name}
		if creds, ok := o.resolver.ResolveChain(ctx, chain); ok {
			repo, err := o.newS3(ctx, o.cfg.Private, creds)
			if err != nil {
				return configError("configure repository "+t.Name, err, issue.ConfigLoadFailedId)
			}
			t.Repository, t.Active = repo, true
			o.logger.Debug("repository enabled", "repository", t.Name, "credentials", creds, "session", creds.HasSessionToken())
		} else {
			o.logger.Info("could not load credentials, publishing disabled", "repository", t.Name)
		}
		o.targets = append(o.targets, t)
	}
	if o.cfg.Staging.URL != "" {
		chain := o.StagingChain()
		t := &Target{Name: o.cfg.Staging.Name, URL: o.cfg.Staging.URL, Binding: chain.Name}
		if creds, ok := o.resolver.ResolveChain(ctx, chain); ok {
			repo, err := o.newStaging(ctx, o.cfg.Staging, creds)
			if err != nil {
				return configError("configure repository "+t.Name, err, issue.ConfigLoadFailedId)
			}
			t.Repository, t.Active = repo, true
			o.logger.Debug("repository enabled", "repository", t.Name, "credentials", creds)
		} else {
			o.logger.Info("credentials not found, publishing disabled", "repository", t.Name)
		}
		o.targets = append(o.targets, t)
	}
	return nil
}

func (o *Orchestrator) configureSigning(ctx context.Context) error {
	o.signer = nil
	if o.cfg.SigningKey == "" {
		return nil
	}
	key, ok := o.resolver.Resolve(ctx, o.cfg.SigningKey)
	if !ok {
		o.logger.Info("signing key not found, publications are unsigned", "name", o.cfg.SigningKey)
		return nil
	}
	signer, err := NewSigner(key)
	if err != nil {
		return configError("load signing key "+o.cfg.SigningKey, err, issue.SigningFailedId)
	}
	o.signer = signer
	o.logger.Debug("signing enabled", "key", signer.KeyID())
	return nil
}

// PublicationName returns the capitalized publication name of a module.
func PublicationName(m types.ModuleName) string {
	return strcase.ToCamel(m.String())
}

func (o *Orchestrator) wireModule(m module.Module) error {
	if _, err := semver.NewVersion(m.Publication.Version); err != nil {
		return configError("configure publication of "+m.Name.String(), fmt.Errorf("version %q: %w", m.Publication.Version, err), issue.ModuleMisconfiguredId)
	}
	pub := PublicationName(m.Name)
	gate := o.gate(m.Name)

	var prepare []types.TaskPath
	if o.signer != nil {
		sign, err := o.ensure(types.ModuleTask(m.Name, "sign"+pub+"Publication"), func(context.Context) error {
			_, err := o.bundle(m)
			return err
		})
		if err != nil {
			return err
		}
		sign.Description = "Signs the " + pub + " publication"
		prepare = append(prepare, sign.Path())
	}

	modulePublish, err := o.ensure(types.ModuleTask(m.Name, taskPublish), o.destinationCheck(m))
	if err != nil {
		return err
	}
	modulePublish.Description = "Publishes " + m.Name.String() + " to every remote repository"
	modulePublish.DependsOn(gate...)

	for _, t := range o.ActiveTargets() {
		repoTask, err := o.ensure(
			types.ModuleTask(m.Name, "publish"+pub+"PublicationTo"+strcase.ToCamel(t.Name)+"Repository"),
			o.uploadAction(m, t.Repository),
		)
		if err != nil {
			return err
		}
		repoTask.Description = "Publishes the " + pub + " publication to " + t.Name
		repoTask.DependsOn(prepare...).DependsOn(gate...)
		modulePublish.DependsOn(repoTask.Path())
	}

	localTask, err := o.ensure(types.ModuleTask(m.Name, "publish"+pub+"PublicationToMavenLocal"), o.uploadAction(m, o.local))
	if err != nil {
		return err
	}
	localTask.Description = "Publishes the " + pub + " publication to the local Maven repository"
	localTask.DependsOn(prepare...)
	if o.cfg.GateLocalPublish {
		localTask.DependsOn(gate...)
	}

	moduleLocal, err := o.ensure(types.ModuleTask(m.Name, taskPublishToMavenLocal), nil)
	if err != nil {
		return err
	}
	moduleLocal.Description = "Publishes " + m.Name.String() + " to the local Maven repository"
	moduleLocal.DependsOn(localTask.Path())
	return nil
}

func (o *Orchestrator) ensure(path types.TaskPath, action taskgraph.Action) (*taskgraph.Task, error) {
	t, created, err := o.graph.Ensure(path)
	if err != nil {
		return nil, err
	}
	if created {
		t.Action = action
		t.Group = groupPublishing
	}
	return t, nil
}

func (o *Orchestrator) destinationCheck(m module.Module) taskgraph.Action {
	return func(context.Context) error {
		if len(o.ActiveTargets()) == 0 {
			return issue.NewErrorContext().
				WithOperation("publish " + m.Name.String()).
				WithSuggestion("Provide repository credentials as properties or environment variables").
				WithSuggestion("Use publishToMavenLocal to publish locally").
				WithIssue(issue.NoPublishDestinationId).
				Wrap(ErrNoDestination).
				BuildError()
		}
		return nil
	}
}

func (o *Orchestrator) uploadAction(m module.Module, repo Repository) taskgraph.Action {
	return func(ctx context.Context) error {
		b, err := o.bundle(m)
		if err != nil {
			return err
		}
		for _, f := range b.Files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := repo.Put(ctx, b.Key(f), f.Data); err != nil {
				return err
			}
		}
		o.logger.Info("published", "module", m.Name, "repository", repo.Name(), "files", len(b.Files))
		return nil
	}
}

// bundle assembles the module's publication once per run.
func (o *Orchestrator) bundle(m module.Module) (*Bundle, error) {
	o.mu.Lock()
	b, ok := o.bundles[m.Name]
	if !ok {
		b = &bundleOnce{}
		o.bundles[m.Name] = b
	}
	o.mu.Unlock()

	b.once.Do(func() {
		b.bundle, b.err = Assemble(m, o.signer)
	})
	return b.bundle, b.err
}

func configError(op string, err error, id issue.Id) error {
	return issue.NewErrorContext().
		WithOperation(op).
		WithSuggestion("Check the publishing section of relgate.cue").
		WithIssue(id).
		Wrap(err).
		BuildError()
}
