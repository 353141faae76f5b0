// SPDX-License-Identifier: MPL-2.0

package credential

import "context"

type (
	// Credentials is a resolved credential. Single secrets (e.g., a signing
	// key) only populate Secret; pairs populate Identity and Secret; ambient
	// cloud credentials may also carry a SessionToken.
	Credentials struct {
		// Identity is the username or access key.
		Identity string
		// Secret is the password, API key, secret key or signing key.
		Secret string
		// SessionToken is set for temporary credentials only.
		SessionToken string
		// Source names the chain step that produced the credential.
		Source string
	}

	// Source is a single lookup location for named values.
	Source interface {
		// Name identifies the source in logs.
		Name() string
		// Lookup returns the value for key. A missing key returns ("", false, nil).
		Lookup(ctx context.Context, key string) (string, bool, error)
	}

	// LookupFunc resolves one step of a chain.
	LookupFunc func(ctx context.Context) (Credentials, bool, error)

	// Step is a named entry of a Chain.
	Step struct {
		Name   string
		Lookup LookupFunc
	}

	// Chain is an ordered list of steps; the first step that yields a
	// credential wins.
	Chain struct {
		// Name is the cache key of the chain and appears in logs.
		Name  string
		Steps []Step
	}
)

// HasSessionToken reports whether the credential is session scoped.
func (c Credentials) HasSessionToken() bool { return c.SessionToken != "" }

// String redacts secret material.
func (c Credentials) String() string {
	if c.Identity == "" {
		return "credentials{source=" + c.Source + "}"
	}
	return "credentials{identity=" + c.Identity + ", source=" + c.Source + "}"
}
