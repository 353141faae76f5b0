// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown guides
// for the failures relgate users hit most: unreadable workspace files,
// misconfigured modules, failing violation gates and publications without a
// destination.
package issue
