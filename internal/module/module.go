// SPDX-License-Identifier: MPL-2.0

package module

import (
	"errors"
	"fmt"
	"slices"

	"github.com/relgate/relgate/pkg/types"

	"github.com/iancoleman/strcase"
)

const (
	// KindAndroidLibrary is a library with platform build variants.
	KindAndroidLibrary Kind = "android-library"
	// KindLibrary is a plain JVM library.
	KindLibrary Kind = "library"
	// KindUtility is an excluded utility module (tests, samples, benchmarks).
	KindUtility Kind = "utility"

	// CapAndroid marks a module that applies the Android plugin.
	CapAndroid Capability = "android"
	// CapAndroidLibrary marks a module that applies the Android library plugin.
	CapAndroidLibrary Capability = "android-library"
	// CapPMD marks a module that produces PMD reports.
	CapPMD Capability = "pmd"
	// CapPublishing marks a module that carries a Maven publication.
	CapPublishing Capability = "maven-publish"
	// CapCheck marks a module that exposes a check lifecycle task.
	CapCheck Capability = "check"
)

// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
var ErrInvalidKind = errors.New("invalid module kind")

type (
	// Kind classifies a module.
	Kind string

	// InvalidKindError is returned when a Kind value is not recognized.
	InvalidKindError struct {
		Value Kind
	}

	// Capability is a tag queried before capability-specific configuration
	// is applied to a module.
	Capability string

	// Variant is a build variant of a module with platform variants.
	Variant struct {
		// Name is the variant name (e.g., "debug", "release", "freeDebug").
		Name string
		// BuildType is the build type the variant was derived from.
		BuildType string
	}

	// Publication describes the Maven coordinates and files a module publishes.
	Publication struct {
		GroupID    string
		ArtifactID string
		Version    string
		// Artifacts are doublestar globs relative to the module directory.
		Artifacts []string
	}

	// Module is an independently buildable unit of the workspace.
	Module struct {
		Name         types.ModuleName
		Dir          string
		Kind         Kind
		Capabilities []Capability
		Variants     []Variant
		Publication  *Publication
	}
)

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// IsValid returns whether the Kind is one of the defined module kinds.
func (k Kind) IsValid() (bool, []error) {
	switch k {
	case KindAndroidLibrary, KindLibrary, KindUtility:
		return true, nil
	default:
		return false, []error{&InvalidKindError{Value: k}}
	}
}

// Error implements the error interface for InvalidKindError.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid module kind %q (valid: android-library, library, utility)", e.Value)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// HasCapability reports whether the module carries the capability tag.
func (m Module) HasCapability(c Capability) bool {
	return slices.Contains(m.Capabilities, c)
}

// TaskName returns the capitalized variant name used in task names
// ("debug" -> "Debug").
func (v Variant) TaskName() string {
	return strcase.ToCamel(v.Name)
}
