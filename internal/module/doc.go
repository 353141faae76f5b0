// SPDX-License-Identifier: MPL-2.0

// Package module models the subprojects of a workspace and classifies which
// governance policies apply to each of them.
//
// Policies are always derived by a Classifier from a Module's name, kind and
// capability tags; they are never stored on the Module itself. Modules are
// enumerated once per run and are immutable afterwards.
package module
