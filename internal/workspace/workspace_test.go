// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/internal/module"
	"github.com/relgate/relgate/internal/testutil"
)

func loaded(t *testing.T, root string, mutate func(*config.Config)) *config.Loaded {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return &config.Loaded{Config: cfg, Root: root}
}

func TestLoad_InlineModules(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	ws, err := Load(context.Background(), loaded(t, root, func(c *config.Config) {
		c.Modules = []config.ModuleConfig{
			{
				Name: "library", Kind: "android-library",
				Capabilities: []string{"android", "android-library"},
				Variants:     []config.VariantConfig{{Name: "debug", BuildType: "debug"}},
			},
			{Name: "disklrucache", Path: "third_party/disklrucache", Kind: "library"},
		}
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	mods := ws.Modules()
	if len(mods) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(mods))
	}
	if mods[0].Dir != filepath.Join(root, "library") {
		t.Errorf("path should default to the module name, got %q", mods[0].Dir)
	}
	m, ok := ws.Module("disklrucache")
	if !ok || m.Dir != filepath.Join(root, "third_party", "disklrucache") {
		t.Errorf("unexpected module %+v", m)
	}
	if ws.Classifier().AppliesFormatting("disklrucache") {
		t.Error("disklrucache is exempt from formatting")
	}

	mods[0].Name = "mutated"
	if again, _ := ws.Module("library"); again.Name != "library" {
		t.Error("Modules() must not expose internal state")
	}
}

func TestLoad_Descriptors(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.MustWriteFile(t, root, "integration/okhttp/module.cue", `
name: "okhttp"
kind: "library"
capabilities: ["maven-publish"]
publication: {group_id: "com.github.bumptech.glide", artifact_id: "okhttp-integration", version: "4.16.0"}
`)
	testutil.MustWriteFile(t, root, "integration/volley/module.cue", `name: "volley", kind: "library"`)
	testutil.MustWriteFile(t, root, "integration/volley/notes.cue", `ignored: true`)

	ws, err := Load(context.Background(), loaded(t, root, func(c *config.Config) {
		c.Workspace.ModuleDescriptors = []string{"integration/**/*.cue"}
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ws.Modules()) != 2 {
		t.Fatalf("expected 2 modules, got %+v", ws.Modules())
	}
	okhttp, ok := ws.Module("okhttp")
	if !ok {
		t.Fatal("okhttp not loaded")
	}
	if okhttp.Dir != filepath.Join(root, "integration", "okhttp") {
		t.Errorf("descriptor dir should be the module dir, got %q", okhttp.Dir)
	}
	if okhttp.Publication == nil || okhttp.Publication.ArtifactID != "okhttp-integration" {
		t.Errorf("publication not decoded: %+v", okhttp.Publication)
	}
}

func TestLoad_InvalidDescriptor(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.MustWriteFile(t, root, "bad/module.cue", `name: "bad", kind: "plugin"`)
	_, err := Load(context.Background(), loaded(t, root, func(c *config.Config) {
		c.Workspace.ModuleDescriptors = []string{"**/module.cue"}
	}))
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.ModuleMisconfiguredId {
		t.Fatalf("expected misconfigured module error, got %v", err)
	}
}

func TestLoad_Misconfiguration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		modules []config.ModuleConfig
		want    error
	}{
		{
			"android kind without android capability",
			[]config.ModuleConfig{{Name: "library", Kind: "android-library"}},
			module.ErrMisconfigured,
		},
		{
			"publishing without publication",
			[]config.ModuleConfig{{Name: "core", Kind: "library", Capabilities: []string{"maven-publish"}}},
			module.ErrMisconfigured,
		},
		{
			"duplicate module",
			[]config.ModuleConfig{{Name: "core", Kind: "library"}, {Name: "core", Kind: "utility"}},
			ErrDuplicateModule,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(context.Background(), loaded(t, t.TempDir(), func(c *config.Config) { c.Modules = tt.modules }))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	ws, err := New("/ws", config.DefaultConfig(), module.Module{Name: "core", Dir: "/ws/core", Kind: module.KindLibrary})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := ws.Module("core"); !ok || ws.Root() != "/ws" {
		t.Error("module not registered")
	}
	if _, err := New("/ws", config.DefaultConfig(), module.Module{Name: "core", Kind: "bogus"}); err == nil {
		t.Error("invalid kind should fail")
	}
}
