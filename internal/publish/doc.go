// SPDX-License-Identifier: MPL-2.0

// Package publish configures artifact repositories, signing and the
// publication tasks of every publishing module.
//
// Remote repositories are only registered when their credentials resolve.
// Publication tasks wait for the module's violation gate, so a failing gate
// blocks every upload of that module and, transitively, the root publish.
package publish
