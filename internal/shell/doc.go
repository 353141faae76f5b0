// SPDX-License-Identifier: MPL-2.0

// Package shell runs the black-box tool commands of a workspace (formatter,
// analyzers, included-build tasks) through the mvdan/sh interpreter so they
// behave the same on every platform.
package shell
