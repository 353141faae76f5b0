// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents validated against an embedded schema.
//
// The flow is always the same: compile the schema, compile and unify the
// user document with one schema definition, validate, then decode.
//
//	//go:embed module_schema.cue
//	var moduleSchema []byte
//
//	res, err := cueutil.ParseAndDecode[Descriptor](moduleSchema, data, "#Module",
//	    cueutil.WithFilename("library/module.cue"))
package cueutil
