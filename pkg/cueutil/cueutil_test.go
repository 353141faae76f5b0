// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Module: {
	name:          string & =~"^[a-z]+$"
	kind:          "library" | "utility"
	capabilities?: [...string]
}
`

type testModule struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Capabilities []string `json:"capabilities,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid document", func(t *testing.T) {
		t.Parallel()
		res, err := ParseAndDecode[testModule]([]byte(testSchema),
			[]byte(`name: "core", kind: "library", capabilities: ["pmd"]`), "#Module")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Value.Name != "core" || res.Value.Kind != "library" || len(res.Value.Capabilities) != 1 {
			t.Errorf("unexpected value %+v", res.Value)
		}
	})

	t.Run("schema violation names the field", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecode[testModule]([]byte(testSchema),
			[]byte(`name: "core", kind: "plugin"`), "#Module", WithFilename("core/module.cue"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "core/module.cue") || !strings.Contains(err.Error(), "kind") {
			t.Errorf("error should name file and field: %v", err)
		}
	})

	t.Run("missing required field with concrete validation", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseAndDecode[testModule]([]byte(testSchema), []byte(`kind: "library"`), "#Module"); err == nil {
			t.Fatal("expected error for missing name")
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseAndDecode[testModule]([]byte(testSchema), []byte(`name: "core`), "#Module"); err == nil {
			t.Fatal("expected syntax error")
		}
	})

	t.Run("unknown definition", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecode[testModule]([]byte(testSchema), []byte(`name: "core"`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "#Missing") {
			t.Fatalf("expected missing definition error, got %v", err)
		}
	})

	t.Run("file size limit", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecode[testModule]([]byte(testSchema),
			[]byte(`name: "core", kind: "library"`), "#Module", WithMaxFileSize(4))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Fatalf("expected size error, got %v", err)
		}
	})
}

func TestFormatError(t *testing.T) {
	t.Parallel()
	if FormatError(nil, "x.cue") != nil {
		t.Error("nil error should stay nil")
	}
	plain := errors.New("some error")
	err := FormatError(plain, "relgate.cue")
	if !errors.Is(err, plain) || !strings.HasPrefix(err.Error(), "relgate.cue: ") {
		t.Errorf("non-CUE error should be wrapped with the file name, got %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"workspace"}, "workspace"},
		{[]string{"publishing", "staging", "url"}, "publishing.staging.url"},
		{[]string{"modules", "0", "variants", "1", "name"}, "modules[0].variants[1].name"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
