// SPDX-License-Identifier: MPL-2.0

package credential

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

type (
	// Resolver resolves named values and credential chains, caching every
	// outcome (including absence) for the rest of the run.
	Resolver struct {
		sources []Source
		logger  *log.Logger

		mu     sync.Mutex
		values map[string]cachedValue
		chains map[string]cachedChain
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	cachedValue struct {
		value string
		ok    bool
	}

	cachedChain struct {
		creds Credentials
		ok    bool
	}
)

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver over the given sources, tried in order.
func NewResolver(sources []Source, opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		logger:  log.Default(),
		values:  make(map[string]cachedValue),
		chains:  make(map[string]cachedChain),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first value any source yields for name.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.values[name]; ok {
		return c.value, c.ok
	}

	for _, src := range r.sources {
		v, ok, err := src.Lookup(ctx, name)
		if err != nil {
			r.logger.Warn("credential lookup failed", "name", name, "source", src.Name(), "err", err)
			continue
		}
		if ok {
			r.logger.Debug("credential resolved", "name", name, "source", src.Name())
			r.values[name] = cachedValue{value: v, ok: true}
			return v, true
		}
	}

	r.logger.Debug("credential absent", "name", name)
	r.values[name] = cachedValue{}
	return "", false
}

// ResolveChain returns the credential of the first chain step that yields
// one. The outcome is cached under the chain name.
func (r *Resolver) ResolveChain(ctx context.Context, chain Chain) (Credentials, bool) {
	r.mu.Lock()
	if c, ok := r.chains[chain.Name]; ok {
		r.mu.Unlock()
		return c.creds, c.ok
	}
	r.mu.Unlock()

	// Steps may call back into Resolve, so the lock is not held here.
	var result cachedChain
	for _, step := range chain.Steps {
		creds, ok, err := step.Lookup(ctx)
		if err != nil {
			r.logger.Warn("credential step failed", "chain", chain.Name, "step", step.Name, "err", err)
			continue
		}
		if ok {
			if creds.Source == "" {
				creds.Source = step.Name
			}
			result = cachedChain{creds: creds, ok: true}
			break
		}
	}

	if !result.ok {
		r.logger.Info("no credentials resolved", "chain", chain.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chains[chain.Name]; ok {
		return c.creds, c.ok
	}
	r.chains[chain.Name] = result
	return result.creds, result.ok
}

// ValueStep is a chain step that resolves a single named secret.
func (r *Resolver) ValueStep(name string) Step {
	return Step{
		Name: name,
		Lookup: func(ctx context.Context) (Credentials, bool, error) {
			v, ok := r.Resolve(ctx, name)
			if !ok {
				return Credentials{}, false, nil
			}
			return Credentials{Secret: v}, true, nil
		},
	}
}

// PairStep is a chain step that resolves an identity/secret pair. Both
// halves must resolve for the step to succeed.
func (r *Resolver) PairStep(identityName, secretName string) Step {
	return Step{
		Name: identityName + "/" + secretName,
		Lookup: func(ctx context.Context) (Credentials, bool, error) {
			id, ok := r.Resolve(ctx, identityName)
			if !ok {
				return Credentials{}, false, nil
			}
			secret, ok := r.Resolve(ctx, secretName)
			if !ok {
				r.logger.Warn("credential pair incomplete", "identity", identityName, "missing", secretName)
				return Credentials{}, false, nil
			}
			return Credentials{Identity: id, Secret: secret}, true, nil
		},
	}
}
