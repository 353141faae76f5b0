// SPDX-License-Identifier: MPL-2.0

// Package workspace enumerates the modules of a workspace once per run.
//
// Modules come from the modules list of relgate.cue and from module.cue
// descriptor files matched by the workspace.module_descriptors globs. Every
// module is validated before any task is wired; the resulting set is
// immutable for the run.
package workspace
