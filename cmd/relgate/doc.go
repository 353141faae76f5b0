// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the relgate CLI commands.
package cmd
