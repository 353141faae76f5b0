// SPDX-License-Identifier: MPL-2.0

package credential

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

type (
	// ProviderLoader lazily builds an ambient credentials provider.
	ProviderLoader func(ctx context.Context) (aws.CredentialsProvider, error)

	// Ambient queries an ambient provider chain at most once per run.
	Ambient struct {
		load ProviderLoader

		once  sync.Once
		creds Credentials
		ok    bool
		err   error
	}
)

// DefaultProviderLoader builds the AWS default credential chain: environment,
// shared credentials/config files, then container and instance metadata.
func DefaultProviderLoader(ctx context.Context) (aws.CredentialsProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg.Credentials, nil
}

// NewAmbient creates an Ambient lookup over the loader.
func NewAmbient(load ProviderLoader) *Ambient {
	return &Ambient{load: load}
}

// NewAmbientProvider creates an Ambient lookup over an existing provider.
func NewAmbientProvider(p aws.CredentialsProvider) *Ambient {
	return NewAmbient(func(context.Context) (aws.CredentialsProvider, error) { return p, nil })
}

// Retrieve returns the ambient credentials, querying the chain only on the
// first call.
func (a *Ambient) Retrieve(ctx context.Context) (Credentials, bool, error) {
	a.once.Do(func() {
		a.creds, a.ok, a.err = a.retrieve(ctx)
	})
	return a.creds, a.ok, a.err
}

func (a *Ambient) retrieve(ctx context.Context) (Credentials, bool, error) {
	provider, err := a.load(ctx)
	if err != nil {
		return Credentials{}, false, err
	}
	if provider == nil {
		return Credentials{}, false, nil
	}
	v, err := provider.Retrieve(ctx)
	if err != nil {
		return Credentials{}, false, fmt.Errorf("could not load AWS credentials, publishing will be disabled: %w", err)
	}
	if !v.HasKeys() {
		return Credentials{}, false, nil
	}
	return Credentials{
		Identity:     v.AccessKeyID,
		Secret:       v.SecretAccessKey,
		SessionToken: v.SessionToken,
		Source:       "ambient:" + v.Source,
	}, true, nil
}

// Step returns the chain step backed by this ambient lookup.
func (a *Ambient) Step() Step {
	return Step{Name: "ambient", Lookup: a.Retrieve}
}
