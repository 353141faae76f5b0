// SPDX-License-Identifier: MPL-2.0

package credential

import (
	"context"
	"fmt"
	"os"

	"github.com/iancoleman/strcase"
	"github.com/magiconair/properties"
)

type (
	// PropertySource serves explicitly supplied configuration values.
	PropertySource struct {
		name   string
		values map[string]string
	}

	// EnvSource serves environment variables. Keys are converted from
	// camelCase to UPPER_SNAKE_CASE before lookup.
	EnvSource struct {
		lookupEnv func(string) (string, bool)
	}
)

// NewPropertySource creates a source backed by an in-memory map.
func NewPropertySource(name string, values map[string]string) *PropertySource {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &PropertySource{name: name, values: copied}
}

// LoadPropertiesFile reads a Java-style properties file (e.g. gradle.properties)
// into a PropertySource. A missing file yields an empty source.
func LoadPropertiesFile(path string) (*PropertySource, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewPropertySource(path, nil), nil
	}
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("load properties %s: %w", path, err)
	}
	return NewPropertySource(path, p.Map()), nil
}

// Merge returns a new PropertySource where values from other win.
func (s *PropertySource) Merge(name string, other map[string]string) *PropertySource {
	merged := make(map[string]string, len(s.values)+len(other))
	for k, v := range s.values {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return &PropertySource{name: name, values: merged}
}

// Values returns a copy of the source's values.
func (s *PropertySource) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Name implements Source.
func (s *PropertySource) Name() string { return "property " + s.name }

// Lookup implements Source.
func (s *PropertySource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// NewEnvSource creates a source backed by os.LookupEnv.
func NewEnvSource() *EnvSource {
	return &EnvSource{lookupEnv: os.LookupEnv}
}

// NewEnvSourceFunc creates a source backed by a custom lookup function.
func NewEnvSourceFunc(lookup func(string) (string, bool)) *EnvSource {
	return &EnvSource{lookupEnv: lookup}
}

// EnvName converts a camelCase credential name to its environment variable
// name ("sonatypeApiKey" -> "SONATYPE_API_KEY").
func EnvName(key string) string {
	return strcase.ToScreamingSnake(key)
}

// Name implements Source.
func (s *EnvSource) Name() string { return "environment" }

// Lookup implements Source.
func (s *EnvSource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := s.lookupEnv(EnvName(key))
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}
