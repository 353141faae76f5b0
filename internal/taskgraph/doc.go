// SPDX-License-Identifier: MPL-2.0

// Package taskgraph models the workspace task graph and executes resolved
// plans of it.
//
// A Task has three kinds of outgoing relations:
//
//   - DependsOn: hard dependencies. A task never starts before its
//     dependencies finished, and is skipped when one of them failed.
//   - FinalizedBy: finalizer edges. The finalizer is pulled into every plan
//     that contains the finalized task and runs after it regardless of its
//     outcome, without blocking it.
//   - MustRunAfter: soft ordering that only applies when both tasks are in
//     the same plan.
//
// Included builds expose named task handles (Refs) that workspace tasks may
// depend on; the build's Runner executes them.
package taskgraph
