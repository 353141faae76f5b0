// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"io"
	"regexp"
)

const (
	// KindPMD is the static-defect-pattern tool.
	KindPMD Kind = "PMD"
	// KindAndroidLint is the platform-specific lint tool.
	KindAndroidLint Kind = "ANDROIDLINT"
	// KindCheckstyle is the style-checker tool.
	KindCheckstyle Kind = "CHECKSTYLE"
)

type (
	// Kind identifies the tool that produced a report.
	Kind string

	// ParseFunc parses one report artifact. moduleDir resolves relative
	// file locations.
	ParseFunc func(r io.Reader, moduleDir string) ([]Finding, error)

	// ReportSource locates and parses the report artifacts of one tool.
	ReportSource struct {
		Kind Kind
		// Pattern is matched against the artifact path relative to the module
		// directory, slash-separated with a leading slash.
		Pattern *regexp.Regexp
		// Label is the human readable tool name.
		Label string
		Parse ParseFunc
	}
)

// DefaultSources returns the three built-in report sources.
func DefaultSources() []ReportSource {
	return []ReportSource{
		{Kind: KindPMD, Pattern: regexp.MustCompile(`.*/pmd/.*\.xml$`), Label: "PMD", Parse: ParsePMD},
		{Kind: KindAndroidLint, Pattern: regexp.MustCompile(`.*/lint-results\.xml$`), Label: "AndroidLint", Parse: ParseAndroidLint},
		{Kind: KindCheckstyle, Pattern: regexp.MustCompile(`.*/checkstyle/.*\.xml$`), Label: "Checkstyle", Parse: ParseCheckstyle},
	}
}

// Matches reports whether the module-relative artifact path belongs to
// this source.
func (s ReportSource) Matches(slashPath string) bool {
	return s.Pattern.MatchString(slashPath)
}
