// SPDX-License-Identifier: MPL-2.0

// Package config loads the workspace configuration (relgate.cue) using Viper
// with CUE as the file format.
//
// Defaults are registered in Viper first; the CUE file is validated against
// the embedded schema (config_schema.cue) and merged on top. Included-build
// versions may reference the TOML version catalog of the workspace.
package config
