// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
)

// PMDReport returns a PMD XML report with one violation per file name.
func PMDReport(files ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<pmd version=\"6.55.0\">\n")
	for i, f := range files {
		fmt.Fprintf(&b, "<file name=%q>\n<violation beginline=\"%d\" endline=\"%d\" rule=\"UnusedLocalVariable\" ruleset=\"Best Practices\" priority=\"3\">Avoid unused local variables.</violation>\n</file>\n", f, i+10, i+10)
	}
	b.WriteString("</pmd>\n")
	return b.String()
}

// LintReport returns an Android Lint XML report with one issue of the given
// severity per file.
func LintReport(severity string, files ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<issues format=\"6\" by=\"lint 8.2.0\">\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<issue id=\"UnusedResources\" severity=%q message=\"The resource is never used\" category=\"Performance\">\n<location file=%q line=\"3\"/>\n</issue>\n", severity, f)
	}
	b.WriteString("</issues>\n")
	return b.String()
}

// CheckstyleReport returns a Checkstyle XML report with one error of the
// given severity per file.
func CheckstyleReport(severity string, files ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<checkstyle version=\"10.12.0\">\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<file name=%q>\n<error line=\"1\" column=\"1\" severity=%q message=\"Missing a Javadoc comment.\" source=\"com.puppycrawl.tools.checkstyle.checks.javadoc.MissingJavadocMethodCheck\"/>\n</file>\n", f, severity)
	}
	b.WriteString("</checkstyle>\n")
	return b.String()
}

// WriteModuleReports writes the given reports under a module build
// directory using the artifact layout the analyzers produce.
func WriteModuleReports(t testing.TB, moduleDir string, pmd, lint, checkstyle string) {
	t.Helper()
	if pmd != "" {
		MustWriteFile(t, moduleDir, "build/reports/pmd/pmd.xml", pmd)
	}
	if lint != "" {
		MustWriteFile(t, moduleDir, "build/reports/lint-results.xml", lint)
	}
	if checkstyle != "" {
		MustWriteFile(t, moduleDir, "build/reports/checkstyle/checkstyle.xml", checkstyle)
	}
}
