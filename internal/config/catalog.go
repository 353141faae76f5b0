// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
)

// ErrUnknownVersionRef is returned when a version_ref is not in the catalog.
var ErrUnknownVersionRef = errors.New("unknown version reference")

// VersionCatalog is the [versions] table of a TOML version catalog.
type VersionCatalog struct {
	Versions  map[string]string         `toml:"versions"`
	Libraries map[string]map[string]any `toml:"libraries"`
}

// LoadVersionCatalog reads a TOML version catalog.
func LoadVersionCatalog(path string) (*VersionCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read version catalog: %w", err)
	}
	var catalog VersionCatalog
	if err := toml.Unmarshal(data, &catalog); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &catalog, nil
}

// Version returns the semantic version registered under ref.
func (c *VersionCatalog) Version(ref string) (*semver.Version, error) {
	raw, ok := c.Versions[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersionRef, ref)
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("version %q = %q: %w", ref, raw, err)
	}
	return v, nil
}

// ResolveIncludedBuildVersions replaces every version_ref with the catalog
// version. The catalog is only read when a reference exists.
func ResolveIncludedBuildVersions(cfg *Config, root string) error {
	var catalog *VersionCatalog
	for i := range cfg.IncludedBuilds {
		b := &cfg.IncludedBuilds[i]
		if b.VersionRef == "" || b.Version != "" {
			continue
		}
		if catalog == nil {
			path := cfg.Workspace.VersionCatalog
			if !filepath.IsAbs(path) {
				path = filepath.Join(root, path)
			}
			c, err := LoadVersionCatalog(path)
			if err != nil {
				return err
			}
			catalog = c
		}
		v, err := catalog.Version(b.VersionRef)
		if err != nil {
			return fmt.Errorf("included build %q: %w", b.Name, err)
		}
		b.Version = v.Original()
	}
	return nil
}
