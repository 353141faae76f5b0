// SPDX-License-Identifier: MPL-2.0

// Package execute assembles the governance pipeline for the CLI: it loads
// configuration, builds the workspace, wires module and publication tasks,
// and runs the requested targets through the task executor.
package execute
