// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

type (
	// Options configures an Aggregator. Zero values select the defaults:
	// the three built-in sources, an INFO floor and zero tolerance.
	Options struct {
		Sources           []ReportSource
		MinSeverity       Severity
		MaxViolations     int
		DiffMaxViolations int
		// Changes selects findings attributable to the current changeset.
		Changes ChangeSet
		Logger  *log.Logger
	}

	// Aggregator evaluates reports from every source against one gate.
	Aggregator struct {
		sources           []ReportSource
		minSeverity       Severity
		maxViolations     int
		diffMaxViolations int
		changes           ChangeSet
		logger            *log.Logger
	}

	// Report is one parsed report artifact.
	Report struct {
		Tool     Kind
		Path     string
		Findings []Finding
	}

	// GateResult is the outcome of Evaluate.
	GateResult struct {
		Pass bool
		// Count is the number of findings at or above the severity floor.
		Count int
		// DiffCount is the subset of Count located in changed files.
		DiffCount int
		ByTool    map[Kind]int
		Findings  []Finding
		Reports   int
	}
)

// NewAggregator creates an Aggregator.
func NewAggregator(opts Options) *Aggregator {
	sources := opts.Sources
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	changes := opts.Changes
	if changes == nil {
		changes = EmptyChangeSet{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		sources:           sources,
		minSeverity:       opts.MinSeverity,
		maxViolations:     opts.MaxViolations,
		diffMaxViolations: opts.DiffMaxViolations,
		changes:           changes,
		logger:            logger,
	}
}

// Sources returns the registered report sources.
func (a *Aggregator) Sources() []ReportSource {
	return slices.Clone(a.sources)
}

// Collect locates and parses every report artifact under moduleDir. A
// report that cannot be parsed is an error: the gate must never pass on
// output it could not read.
func (a *Aggregator) Collect(ctx context.Context, moduleDir string) ([]Report, error) {
	absDir, err := filepath.Abs(moduleDir)
	if err != nil {
		return nil, fmt.Errorf("resolve module directory: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(absDir), "**/*.xml", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan %s for reports: %w", absDir, err)
	}

	var reports []Report
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := filepath.Join(absDir, filepath.FromSlash(rel))
		for _, src := range a.sources {
			if !src.Matches("/" + rel) {
				continue
			}
			findings, err := parseFile(src, abs, absDir)
			if err != nil {
				return nil, err
			}
			a.logger.Debug("collected report", "tool", src.Kind, "path", abs, "findings", len(findings))
			reports = append(reports, Report{Tool: src.Kind, Path: abs, Findings: findings})
		}
	}
	return reports, nil
}

func parseFile(src ReportSource, path, moduleDir string) ([]Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	findings, err := src.Parse(f, moduleDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return findings, nil
}

// Evaluate counts findings at or above the severity floor across all
// reports, regardless of the tool that produced them, and applies both
// thresholds.
func (a *Aggregator) Evaluate(reports []Report) GateResult {
	res := GateResult{ByTool: make(map[Kind]int), Reports: len(reports)}
	for _, r := range reports {
		for _, f := range r.Findings {
			if f.Severity < a.minSeverity {
				continue
			}
			res.Count++
			res.ByTool[f.Tool]++
			res.Findings = append(res.Findings, f)
			if a.changes.Contains(f.File) {
				res.DiffCount++
			}
		}
	}
	res.Pass = res.Count <= a.maxViolations && res.DiffCount <= a.diffMaxViolations
	return res
}

// Run collects the reports of moduleDir and evaluates them.
func (a *Aggregator) Run(ctx context.Context, moduleDir string) (GateResult, error) {
	reports, err := a.Collect(ctx, moduleDir)
	if err != nil {
		return GateResult{}, err
	}
	return a.Evaluate(reports), nil
}
