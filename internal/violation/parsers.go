// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

type (
	pmdReport struct {
		Files []struct {
			Name       string `xml:"name,attr"`
			Violations []struct {
				BeginLine string `xml:"beginline,attr"`
				Rule      string `xml:"rule,attr"`
				RuleSet   string `xml:"ruleset,attr"`
				Priority  string `xml:"priority,attr"`
				Message   string `xml:",chardata"`
			} `xml:"violation"`
		} `xml:"file"`
	}

	lintReport struct {
		Issues []struct {
			ID        string `xml:"id,attr"`
			Severity  string `xml:"severity,attr"`
			Message   string `xml:"message,attr"`
			Locations []struct {
				File string `xml:"file,attr"`
				Line string `xml:"line,attr"`
			} `xml:"location"`
		} `xml:"issue"`
	}

	checkstyleReport struct {
		Files []struct {
			Name   string `xml:"name,attr"`
			Errors []struct {
				Line     string `xml:"line,attr"`
				Severity string `xml:"severity,attr"`
				Message  string `xml:"message,attr"`
				Source   string `xml:"source,attr"`
			} `xml:"error"`
		} `xml:"file"`
	}
)

// ParsePMD parses a PMD XML report. Priorities 1-2 map to ERROR, 3-4 to WARN
// and 5 to INFO.
func ParsePMD(r io.Reader, moduleDir string) ([]Finding, error) {
	var doc pmdReport
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse PMD report: %w", err)
	}

	var out []Finding
	for _, f := range doc.Files {
		for _, v := range f.Violations {
			out = append(out, Finding{
				Tool:     KindPMD,
				Rule:     v.Rule,
				Severity: pmdSeverity(v.Priority),
				File:     resolveFile(moduleDir, f.Name),
				Line:     atoi(v.BeginLine),
				Message:  strings.TrimSpace(v.Message),
			})
		}
	}
	return out, nil
}

// ParseAndroidLint parses an Android lint-results.xml report. Issues without
// a location are attributed to the module directory.
func ParseAndroidLint(r io.Reader, moduleDir string) ([]Finding, error) {
	var doc lintReport
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse Android lint report: %w", err)
	}

	var out []Finding
	for _, issue := range doc.Issues {
		f := Finding{
			Tool:     KindAndroidLint,
			Rule:     issue.ID,
			Severity: lintSeverity(issue.Severity),
			File:     moduleDir,
			Message:  issue.Message,
		}
		if len(issue.Locations) > 0 {
			f.File = resolveFile(moduleDir, issue.Locations[0].File)
			f.Line = atoi(issue.Locations[0].Line)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseCheckstyle parses a Checkstyle XML report.
func ParseCheckstyle(r io.Reader, moduleDir string) ([]Finding, error) {
	var doc checkstyleReport
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse Checkstyle report: %w", err)
	}

	var out []Finding
	for _, f := range doc.Files {
		for _, e := range f.Errors {
			out = append(out, Finding{
				Tool:     KindCheckstyle,
				Rule:     e.Source,
				Severity: checkstyleSeverity(e.Severity),
				File:     resolveFile(moduleDir, f.Name),
				Line:     atoi(e.Line),
				Message:  e.Message,
			})
		}
	}
	return out, nil
}

func pmdSeverity(priority string) Severity {
	p := atoi(priority)
	switch {
	case p > 0 && p < 3:
		return SeverityError
	case p >= 3 && p < 5:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func lintSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "fatal", "error":
		return SeverityError
	case "warning":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func checkstyleSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError
	case "warning":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func resolveFile(moduleDir, name string) string {
	if name == "" {
		return moduleDir
	}
	if filepath.IsAbs(name) || moduleDir == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(moduleDir, name)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
