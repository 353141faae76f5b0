// SPDX-License-Identifier: MPL-2.0

package module

import (
	"errors"
	"fmt"
	"slices"

	"github.com/relgate/relgate/pkg/types"
)

// ErrMisconfigured is the sentinel error wrapped by MisconfigurationError.
var ErrMisconfigured = errors.New("structural module misconfiguration")

// DefaultFormatExclusions are the vendored and legacy modules exempted from
// formatting enforcement, plus the umbrella module.
var DefaultFormatExclusions = []types.ModuleName{
	"third_party",
	"gif_decoder",
	"gif_encoder",
	"disklrucache",
	"glide",
}

type (
	// Options configures a Classifier. Nil slices fall back to defaults.
	Options struct {
		// FormatExclusions lists modules that never get a formatting check.
		FormatExclusions []types.ModuleName
		// MetaAnalysisModules lists modules exempted from the lint policy.
		MetaAnalysisModules []types.ModuleName
		// ReleaseBuildTypes lists build types treated as release variants.
		ReleaseBuildTypes []string
	}

	// Classifier decides which governance policies apply to a module.
	Classifier struct {
		formatExclusions map[types.ModuleName]bool
		metaAnalysis     map[types.ModuleName]bool
		releaseTypes     map[string]bool
	}

	// LintPolicy is the lint configuration applied to Android modules.
	LintPolicy struct {
		WarningsAsErrors bool
		Quiet            bool
		// AbortOnError is always false: lint findings are deferred to the
		// violation gate.
		AbortOnError bool
	}

	// Policies is the derived set of policies for one module.
	Policies struct {
		Formatting bool
		Lint       *LintPolicy
		// Variants are the variants that remain governed after filtering.
		Variants []Variant
		// Ignored are the variants dropped by the release filter.
		Ignored []Variant
	}

	// MisconfigurationError reports a module whose declared kind and
	// capabilities contradict each other.
	MisconfigurationError struct {
		Module types.ModuleName
		Reason string
	}
)

// NewClassifier creates a Classifier from options.
func NewClassifier(opts Options) *Classifier {
	exclusions := opts.FormatExclusions
	if exclusions == nil {
		exclusions = DefaultFormatExclusions
	}
	meta := opts.MetaAnalysisModules
	if meta == nil {
		meta = []types.ModuleName{"pmd"}
	}
	release := opts.ReleaseBuildTypes
	if release == nil {
		release = []string{"release"}
	}

	c := &Classifier{
		formatExclusions: make(map[types.ModuleName]bool, len(exclusions)),
		metaAnalysis:     make(map[types.ModuleName]bool, len(meta)),
		releaseTypes:     make(map[string]bool, len(release)),
	}
	for _, n := range exclusions {
		c.formatExclusions[n] = true
	}
	for _, n := range meta {
		c.metaAnalysis[n] = true
	}
	for _, bt := range release {
		c.releaseTypes[bt] = true
	}
	return c
}

// AppliesFormatting reports whether the formatting check applies to the module.
func (c *Classifier) AppliesFormatting(name types.ModuleName) bool {
	return !c.formatExclusions[name]
}

// IsReleaseVariant reports whether the variant is a release-type variant.
func (c *Classifier) IsReleaseVariant(v Variant) bool {
	return c.releaseTypes[v.BuildType]
}

// HasAndroidPlugin reports whether the module applies the Android plugin.
func (c *Classifier) HasAndroidPlugin(m Module) bool {
	return m.HasCapability(CapAndroid)
}

// IsPMDModule reports whether the module is a meta-analysis module.
func (c *Classifier) IsPMDModule(m Module) bool {
	return c.metaAnalysis[m.Name]
}

// HasCapability is the capability query used before capability-specific
// configuration is applied.
func (c *Classifier) HasCapability(m Module, tag Capability) bool {
	return m.HasCapability(tag)
}

// HasCheckLifecycle reports whether the module has a check lifecycle task
// that analysis tasks and the violation gate attach to.
func (c *Classifier) HasCheckLifecycle(m Module) bool {
	return m.HasCapability(CapCheck) || m.HasCapability(CapAndroid)
}

// LintPolicy returns the lint policy for the module, or false when the
// module is not governed by lint.
func (c *Classifier) LintPolicy(m Module) (LintPolicy, bool) {
	if !c.HasAndroidPlugin(m) || c.IsPMDModule(m) {
		return LintPolicy{}, false
	}
	return LintPolicy{WarningsAsErrors: true, Quiet: true, AbortOnError: false}, true
}

// GovernedVariants returns the variants that stay in the pipeline. The
// release filter only applies to modules under the lint policy.
func (c *Classifier) GovernedVariants(m Module) []Variant {
	if _, ok := c.LintPolicy(m); !ok {
		return slices.Clone(m.Variants)
	}
	var out []Variant
	for _, v := range m.Variants {
		if !c.IsReleaseVariant(v) {
			out = append(out, v)
		}
	}
	return out
}

// GeneratesBuildConfig reports whether build metadata is generated for the
// variant. Release variants never generate it.
func (c *Classifier) GeneratesBuildConfig(m Module, v Variant) bool {
	return m.HasCapability(CapAndroidLibrary) && !c.IsReleaseVariant(v)
}

// Classify derives the full policy set for the module.
func (c *Classifier) Classify(m Module) Policies {
	p := Policies{
		Formatting: c.AppliesFormatting(m.Name),
		Variants:   c.GovernedVariants(m),
	}
	if lp, ok := c.LintPolicy(m); ok {
		p.Lint = &lp
	}
	for _, v := range m.Variants {
		if !slices.Contains(p.Variants, v) {
			p.Ignored = append(p.Ignored, v)
		}
	}
	return p
}

// Validate checks the module for structural misconfiguration. A failure here
// is fatal at configuration time.
func (c *Classifier) Validate(m Module) error {
	if valid, errs := m.Name.IsValid(); !valid {
		return errors.Join(errs...)
	}
	if valid, errs := m.Kind.IsValid(); !valid {
		return errors.Join(errs...)
	}
	if m.HasCapability(CapAndroidLibrary) && !m.HasCapability(CapAndroid) {
		return &MisconfigurationError{Module: m.Name, Reason: "android-library plugin applied without the android extension"}
	}
	if m.Kind == KindAndroidLibrary && !m.HasCapability(CapAndroid) {
		return &MisconfigurationError{Module: m.Name, Reason: "kind android-library requires the android capability"}
	}
	if m.HasCapability(CapAndroid) && len(m.Variants) == 0 {
		return &MisconfigurationError{Module: m.Name, Reason: "android module declares no build variants"}
	}
	if m.HasCapability(CapPublishing) && m.Publication == nil {
		return &MisconfigurationError{Module: m.Name, Reason: "maven-publish capability without a publication"}
	}
	return nil
}

// Error implements the error interface for MisconfigurationError.
func (e *MisconfigurationError) Error() string {
	return fmt.Sprintf("module %q: %s", e.Module, e.Reason)
}

// Unwrap returns ErrMisconfigured for errors.Is() compatibility.
func (e *MisconfigurationError) Unwrap() error { return ErrMisconfigured }
