// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/relgate/relgate/internal/app/execute"
	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/pkg/types"

	"github.com/charmbracelet/lipgloss"
)

// formatError renders an error for the terminal. Actionable errors show
// their suggestions; in verbose mode the linked issue guide follows.
func (a *App) formatError(err error) string {
	var b strings.Builder
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		b.WriteString(renderHeaderStyle.Render("Error: "))
		b.WriteString(ae.Format(a.flags.verbose))
		if guide := ae.CatalogIssue(); guide != nil && a.flags.verbose {
			if rendered, rerr := guide.Render(a.glamourStyle()); rerr == nil {
				b.WriteString("\n")
				b.WriteString(rendered)
			}
		}
		return b.String()
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return ""
	}
	b.WriteString(renderHeaderStyle.Render("Error: "))
	b.WriteString(err.Error())
	return b.String()
}

// glamourStyle picks the issue guide style from the configured color
// scheme, detecting the terminal background for auto.
func (a *App) glamourStyle() string {
	switch a.scheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// printSummary lists the outcome of every requested target and every
// failed task.
func printSummary(w io.Writer, res *execute.Result) {
	if res == nil {
		return
	}
	failed := res.Report.Failed()
	for _, ref := range res.Plan.Targets {
		outcome := res.Report.Outcome(ref)
		mark := SuccessStyle.Render("✓")
		if outcome == taskgraph.OutcomeFailed || outcome == taskgraph.OutcomeSkipped {
			mark = ErrorStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, renderCommandStyle.Render(ref.String()), renderValueStyle.Render(outcome.String()))
	}
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderLabelStyle.Render("Failed tasks:"))
	for _, f := range failed {
		fmt.Fprintf(w, "  %s %s\n", renderCommandStyle.Render(f.Ref.String()), renderValueStyle.Render(f.Err.Error()))
	}

	names := make([]types.ModuleName, 0, len(res.Gates))
	for name, g := range res.Gates {
		if !g.Pass {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if len(names) > 0 {
		fmt.Fprintln(w, renderHintStyle.Render("Violation gates failed for: "+joinNames(names)+". Fix every finding; thresholds are zero."))
	}
}

func joinNames(names []types.ModuleName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
