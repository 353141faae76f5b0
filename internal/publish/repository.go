// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoDestination is returned by a module publish task when no remote
// repository is active.
var ErrNoDestination = errors.New("no publish destination configured")

type (
	// Repository stores artifacts under Maven layout keys.
	Repository interface {
		Name() string
		URL() string
		Put(ctx context.Context, key string, data []byte) error
	}

	// Target is a remote repository together with its activation decision.
	// Targets are built once per run and never change afterwards.
	Target struct {
		Name string
		URL  string
		// Binding names the credential chain the target was resolved with.
		Binding    string
		Active     bool
		Repository Repository
	}

	// LocalRepository is a Maven repository on the local filesystem.
	LocalRepository struct {
		dir string
	}
)

// NewLocalRepository creates a local repository rooted at dir. An empty dir
// selects the user's Maven cache.
func NewLocalRepository(dir string) (*LocalRepository, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate local repository: %w", err)
		}
		dir = filepath.Join(home, ".m2", "repository")
	}
	return &LocalRepository{dir: dir}, nil
}

// Name implements Repository.
func (r *LocalRepository) Name() string { return "MavenLocal" }

// URL implements Repository.
func (r *LocalRepository) URL() string { return "file://" + filepath.ToSlash(r.dir) }

// Dir returns the repository root.
func (r *LocalRepository) Dir() string { return r.dir }

// Put writes the artifact below the repository root.
func (r *LocalRepository) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(r.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
