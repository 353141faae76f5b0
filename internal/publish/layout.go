// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/relgate/relgate/internal/module"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// File is one file of a publication.
	File struct {
		Name string
		Data []byte
	}

	// Bundle is everything a publication uploads: artifacts, POM,
	// signatures and checksums.
	Bundle struct {
		Publication module.Publication
		Files       []File
	}

	pomProject struct {
		XMLName      xml.Name `xml:"project"`
		Xmlns        string   `xml:"xmlns,attr"`
		ModelVersion string   `xml:"modelVersion"`
		GroupID      string   `xml:"groupId"`
		ArtifactID   string   `xml:"artifactId"`
		Version      string   `xml:"version"`
		Packaging    string   `xml:"packaging,omitempty"`
	}
)

// BasePath returns the Maven layout directory of a publication,
// "com/example/lib/1.0.0" style.
func BasePath(p module.Publication) string {
	return path.Join(strings.ReplaceAll(p.GroupID, ".", "/"), p.ArtifactID, p.Version)
}

// Key returns the repository key of a file in the bundle.
func (b *Bundle) Key(f File) string {
	return BasePath(b.Publication) + "/" + f.Name
}

// Names returns the bundle file names in upload order.
func (b *Bundle) Names() []string {
	out := make([]string, len(b.Files))
	for i, f := range b.Files {
		out[i] = f.Name
	}
	return out
}

// Assemble collects the module's artifacts, generates its POM and adds
// signatures (when signer is non-nil) and checksums.
func Assemble(m module.Module, signer *Signer) (*Bundle, error) {
	if m.Publication == nil {
		return nil, fmt.Errorf("module %s has no publication", m.Name)
	}
	pub := *m.Publication
	prefix := pub.ArtifactID + "-" + pub.Version

	artifacts, err := collectArtifacts(m.Dir, pub.Artifacts)
	if err != nil {
		return nil, err
	}

	names, err := artifactNames(prefix, artifacts)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", m.Name, err)
	}
	var primary []File
	for i, a := range artifacts {
		data, err := os.ReadFile(a)
		if err != nil {
			return nil, err
		}
		primary = append(primary, File{Name: names[i], Data: data})
	}
	packaging := "pom"
	switch {
	case slices.Contains(names, prefix+".aar"):
		packaging = "aar"
	case slices.Contains(names, prefix+".jar"):
		packaging = "jar"
	}

	pom, err := generatePOM(pub, packaging)
	if err != nil {
		return nil, err
	}
	primary = append(primary, File{Name: prefix + ".pom", Data: pom})

	files := slices.Clone(primary)
	if signer != nil {
		for _, f := range primary {
			sig, err := signer.Sign(f.Data)
			if err != nil {
				return nil, fmt.Errorf("sign %s: %w", f.Name, err)
			}
			files = append(files, File{Name: f.Name + ".asc", Data: sig})
		}
	}
	for _, f := range slices.Clone(files) {
		files = append(files, checksums(f)...)
	}
	return &Bundle{Publication: pub, Files: files}, nil
}

// artifactNames maps artifacts to repository file names. Files already
// named after the publication keep their name; the first other file of
// each extension takes the main artifact name when it is free, and the
// rest are classified by their stem.
func artifactNames(prefix string, artifacts []string) ([]string, error) {
	names := make([]string, len(artifacts))
	owner := make(map[string]string, len(artifacts))
	claim := func(i int, name string) error {
		if prev, ok := owner[name]; ok {
			return fmt.Errorf("artifacts %s and %s both publish as %s", prev, artifacts[i], name)
		}
		owner[name] = artifacts[i]
		names[i] = name
		return nil
	}

	for i, a := range artifacts {
		if base := filepath.Base(a); strings.HasPrefix(base, prefix) {
			if err := claim(i, base); err != nil {
				return nil, err
			}
		}
	}
	for i, a := range artifacts {
		if names[i] != "" {
			continue
		}
		base := filepath.Base(a)
		ext := filepath.Ext(base)
		name := prefix + ext
		if _, taken := owner[name]; taken {
			name = prefix + "-" + strings.TrimSuffix(base, ext) + ext
		}
		if err := claim(i, name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func collectArtifacts(dir string, patterns []string) ([]string, error) {
	fsys := os.DirFS(dir)
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("artifact pattern %q: %w", pattern, err)
		}
		for _, rel := range matches {
			p := filepath.Join(dir, filepath.FromSlash(rel))
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func generatePOM(pub module.Publication, packaging string) ([]byte, error) {
	project := pomProject{
		Xmlns:        "http://maven.apache.org/POM/4.0.0",
		ModelVersion: "4.0.0",
		GroupID:      pub.GroupID,
		ArtifactID:   pub.ArtifactID,
		Version:      pub.Version,
	}
	if packaging != "jar" {
		project.Packaging = packaging
	}
	out, err := xml.MarshalIndent(project, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func checksums(f File) []File {
	s1 := sha1.Sum(f.Data)
	s256 := sha256.Sum256(f.Data)
	return []File{
		{Name: f.Name + ".sha1", Data: []byte(hex.EncodeToString(s1[:]))},
		{Name: f.Name + ".sha256", Data: []byte(hex.EncodeToString(s256[:]))},
	}
}
