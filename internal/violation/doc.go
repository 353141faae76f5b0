// SPDX-License-Identifier: MPL-2.0

// Package violation collects the reports emitted by independent analysis
// tools and evaluates them against a single zero-tolerance gate.
//
// Every tool is described by a ReportSource: a kind, a pattern locating its
// report artifacts under a module directory, and a parser that turns the
// artifact into uniform Findings. The Aggregator only ever sees Findings, so
// supporting another tool means registering another ReportSource; the
// pass/fail logic does not change.
package violation
