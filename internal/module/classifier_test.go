// SPDX-License-Identifier: MPL-2.0

package module

import (
	"errors"
	"testing"

	"github.com/relgate/relgate/pkg/types"
)

func androidModule(name types.ModuleName) Module {
	return Module{
		Name:         name,
		Kind:         KindAndroidLibrary,
		Capabilities: []Capability{CapAndroid, CapAndroidLibrary},
		Variants: []Variant{
			{Name: "debug", BuildType: "debug"},
			{Name: "release", BuildType: "release"},
		},
	}
}

func TestAppliesFormatting(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})
	for _, name := range DefaultFormatExclusions {
		if c.AppliesFormatting(name) {
			t.Errorf("AppliesFormatting(%q) = true, want false for excluded module", name)
		}
	}
	for _, name := range []types.ModuleName{"library", "annotation", "integration"} {
		if !c.AppliesFormatting(name) {
			t.Errorf("AppliesFormatting(%q) = false, want true", name)
		}
	}
}

func TestAppliesFormatting_CustomExclusions(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{FormatExclusions: []types.ModuleName{"legacy-codec"}})
	if c.AppliesFormatting("legacy-codec") {
		t.Error("legacy-codec should be excluded")
	}
	if !c.AppliesFormatting("glide") {
		t.Error("custom exclusions replace the defaults")
	}
}

func TestIsReleaseVariant(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})
	if !c.IsReleaseVariant(Variant{Name: "release", BuildType: "release"}) {
		t.Error("release build type should be a release variant")
	}
	if !c.IsReleaseVariant(Variant{Name: "freeRelease", BuildType: "release"}) {
		t.Error("flavored release should be a release variant")
	}
	if c.IsReleaseVariant(Variant{Name: "debug", BuildType: "debug"}) {
		t.Error("debug should not be a release variant")
	}
}

func TestLintPolicy(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})

	lp, ok := c.LintPolicy(androidModule("library"))
	if !ok {
		t.Fatal("android module should get the lint policy")
	}
	if !lp.WarningsAsErrors || !lp.Quiet || lp.AbortOnError {
		t.Errorf("unexpected lint policy %+v", lp)
	}

	if _, ok := c.LintPolicy(androidModule("pmd")); ok {
		t.Error("pmd meta-analysis module must be exempt from the lint policy")
	}
	if _, ok := c.LintPolicy(Module{Name: "annotation", Kind: KindLibrary}); ok {
		t.Error("plain library must not get the lint policy")
	}
}

func TestGovernedVariants_ReleaseIgnored(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})
	p := c.Classify(androidModule("library"))

	if len(p.Variants) != 1 || p.Variants[0].Name != "debug" {
		t.Fatalf("governed variants = %v, want [debug]", p.Variants)
	}
	if len(p.Ignored) != 1 || p.Ignored[0].Name != "release" {
		t.Fatalf("ignored variants = %v, want [release]", p.Ignored)
	}
	if p.Lint == nil {
		t.Error("expected lint policy")
	}
}

func TestGovernedVariants_PMDModuleKeepsRelease(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})
	if got := c.GovernedVariants(androidModule("pmd")); len(got) != 2 {
		t.Errorf("pmd module variants = %v, want both variants retained", got)
	}
}

func TestGeneratesBuildConfig(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})
	m := androidModule("library")
	if !c.GeneratesBuildConfig(m, m.Variants[0]) {
		t.Error("debug variant should generate build config")
	}
	if c.GeneratesBuildConfig(m, m.Variants[1]) {
		t.Error("release variant must not generate build config")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	c := NewClassifier(Options{})

	tests := []struct {
		name    string
		mod     Module
		wantErr error
	}{
		{name: "valid android", mod: androidModule("library")},
		{name: "valid plain", mod: Module{Name: "annotation", Kind: KindLibrary}},
		{
			name:    "library plugin without extension",
			mod:     Module{Name: "broken", Kind: KindLibrary, Capabilities: []Capability{CapAndroidLibrary}},
			wantErr: ErrMisconfigured,
		},
		{
			name:    "android kind without capability",
			mod:     Module{Name: "broken", Kind: KindAndroidLibrary},
			wantErr: ErrMisconfigured,
		},
		{
			name:    "android without variants",
			mod:     Module{Name: "broken", Kind: KindAndroidLibrary, Capabilities: []Capability{CapAndroid}},
			wantErr: ErrMisconfigured,
		},
		{
			name:    "publishing without publication",
			mod:     Module{Name: "broken", Kind: KindLibrary, Capabilities: []Capability{CapPublishing}},
			wantErr: ErrMisconfigured,
		},
		{name: "bad kind", mod: Module{Name: "x", Kind: "app"}, wantErr: ErrInvalidKind},
		{name: "bad name", mod: Module{Name: "a:b", Kind: KindLibrary}, wantErr: types.ErrInvalidModuleName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := c.Validate(tt.mod)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVariantTaskName(t *testing.T) {
	t.Parallel()

	if got := (Variant{Name: "freeDebug"}).TaskName(); got != "FreeDebug" {
		t.Errorf("TaskName() = %q, want FreeDebug", got)
	}
}

func TestClassifier_HasCheckLifecycle(t *testing.T) {
	t.Parallel()
	c := NewClassifier(Options{})
	tests := []struct {
		caps []Capability
		want bool
	}{
		{nil, false},
		{[]Capability{CapCheck}, true},
		{[]Capability{CapAndroid}, true},
		{[]Capability{CapPMD, CapPublishing}, false},
	}
	for _, tt := range tests {
		m := Module{Name: "core", Kind: KindLibrary, Capabilities: tt.caps}
		if got := c.HasCheckLifecycle(m); got != tt.want {
			t.Errorf("HasCheckLifecycle(%v) = %v, want %v", tt.caps, got, tt.want)
		}
	}
}
