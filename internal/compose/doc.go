// SPDX-License-Identifier: MPL-2.0

// Package compose wires the governance task graph of a workspace.
//
// Per module it registers the formatting check (absent for exempted
// modules), checkstyle over production sources, lint for governed variants,
// pmd, build-config generation and the violations gate. check depends on
// the analysis tasks and is finalized by violations, so the gate always
// reports but only blocks publication. At the root, publish and
// publishToMavenLocal depend on the module publications and on the exposed
// tasks of included builds.
package compose
