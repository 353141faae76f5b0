// SPDX-License-Identifier: MPL-2.0

// Package credential discovers secrets for signing and remote publishing.
//
// A Resolver walks an ordered list of sources (explicit configuration
// properties, then environment variables) and stops at the first one that
// yields a value. Composite credentials are resolved through a Chain of
// named steps; repository chains additionally end with an ambient provider
// step backed by the AWS default credential chain.
//
// Absence is never an error: callers treat a missing credential as a
// disabled feature. Lookup failures are logged and swallowed. All results
// are cached for the lifetime of the Resolver.
package credential
