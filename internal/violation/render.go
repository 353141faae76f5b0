// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

const (
	// DetailVerbose prints every finding with its rule and message.
	DetailVerbose DetailLevel = "VERBOSE"
	// DetailCompact prints one line per finding.
	DetailCompact DetailLevel = "COMPACT"
)

// DetailLevel controls how much of a GateResult Render prints.
type DetailLevel string

// Render writes a per-finding report for one module. Findings are sorted by
// file and line so output is stable between runs.
func Render(w io.Writer, module string, res GateResult, detail DetailLevel) error {
	findings := slices.Clone(res.Findings)
	slices.SortStableFunc(findings, func(a, b Finding) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		return a.Line - b.Line
	})

	var b strings.Builder
	status := "PASSED"
	if !res.Pass {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "%s: violations gate %s (%d finding(s), %d in changed files, %d report(s))\n",
		module, status, res.Count, res.DiffCount, res.Reports)

	for _, kind := range slices.Sorted(maps.Keys(res.ByTool)) {
		fmt.Fprintf(&b, "  %-12s %d\n", kind, res.ByTool[kind])
	}

	for _, f := range findings {
		switch detail {
		case DetailCompact:
			fmt.Fprintf(&b, "  %s %s %s\n", f.Severity, f.Location(), f.Rule)
		default:
			fmt.Fprintf(&b, "\n  %s [%s] %s\n    %s\n    %s\n", f.Severity, f.Tool, f.Rule, f.Location(), f.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
