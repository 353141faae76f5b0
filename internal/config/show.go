// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
)

// GenerateCUE renders cfg as a relgate.cue document.
func GenerateCUE(cfg *Config) (string, error) {
	v := cuecontext.New().Encode(cfg)
	if v.Err() != nil {
		return "", fmt.Errorf("encode config: %w", v.Err())
	}
	out, err := format.Node(v.Syntax(cue.Final(), cue.Concrete(true)), format.Simplify())
	if err != nil {
		return "", fmt.Errorf("format config: %w", err)
	}
	return "// relgate workspace configuration\n\n" + string(out), nil
}
