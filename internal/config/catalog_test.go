// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/relgate/relgate/internal/testutil"
)

func TestLoadVersionCatalog(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "libs.versions.toml", sampleCatalog)

	catalog, err := LoadVersionCatalog(path)
	if err != nil {
		t.Fatalf("LoadVersionCatalog: %v", err)
	}
	v, err := catalog.Version("kotlin")
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Minor() != 9 || v.Original() != "1.9.22" {
		t.Errorf("unexpected version %v", v)
	}
	if _, err := catalog.Version("missing"); !errors.Is(err, ErrUnknownVersionRef) {
		t.Errorf("expected ErrUnknownVersionRef, got %v", err)
	}
	if len(catalog.Libraries) != 1 {
		t.Errorf("expected one library entry, got %d", len(catalog.Libraries))
	}
}

func TestLoadVersionCatalog_InvalidTOML(t *testing.T) {
	t.Parallel()
	path := testutil.MustWriteFile(t, t.TempDir(), "libs.versions.toml", "[versions\ncompiler = ")
	if _, err := LoadVersionCatalog(path); err == nil || !strings.Contains(err.Error(), "libs.versions.toml") {
		t.Fatalf("expected positioned decode error, got %v", err)
	}
}

func TestVersionCatalog_InvalidSemver(t *testing.T) {
	t.Parallel()
	catalog := &VersionCatalog{Versions: map[string]string{"compiler": "banana"}}
	if _, err := catalog.Version("compiler"); err == nil {
		t.Fatal("expected semver error")
	}
}

func TestResolveIncludedBuildVersions_SkipsCatalogWithoutRefs(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.IncludedBuilds = []IncludedBuildConfig{{Name: "compiler", Path: "compiler", Version: "1.0.0"}}
	// The catalog does not exist; it must not be read.
	if err := ResolveIncludedBuildVersions(cfg, t.TempDir()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
