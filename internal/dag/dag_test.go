// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{name: "empty", want: []string{}},
		{name: "single", nodes: []string{"check"}, want: []string{"check"}},
		{
			name:  "chain",
			edges: [][2]string{{"lintDebug", "check"}, {"check", "violations"}},
			want:  []string{"lintDebug", "check", "violations"},
		},
		{
			name:  "diamond keeps insertion order between peers",
			edges: [][2]string{{"a", "pmd"}, {"a", "lint"}, {"pmd", "check"}, {"lint", "check"}},
			want:  []string{"a", "pmd", "lint", "check"},
		},
		{
			name:  "disconnected",
			nodes: []string{"x", "y"},
			edges: [][2]string{{"b", "c"}},
			want:  []string{"x", "y", "b", "c"},
		},
		{
			name:  "duplicate edges",
			edges: [][2]string{{"a", "b"}, {"a", "b"}, {"a", "b"}},
			want:  []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New[string]()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			got, err := g.Sort()
			if err != nil {
				t.Fatalf("Sort: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Sort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort_Cycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		want  string
	}{
		{name: "self loop", edges: [][2]string{{"a", "a"}}, want: "a -> a"},
		{name: "pair", edges: [][2]string{{"a", "b"}, {"b", "a"}}, want: "a -> b -> a"},
		{
			name:  "downstream of cycle is not reported",
			edges: [][2]string{{"root", "a"}, {"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "tail"}},
			want:  "a -> b -> c -> a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New[string]()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.Sort()
			var cycle *CycleError
			if !errors.As(err, &cycle) {
				t.Fatalf("Sort() error = %v, want CycleError", err)
			}
			if !errors.Is(err, ErrCycle) {
				t.Error("CycleError does not wrap ErrCycle")
			}
			if got := strings.Join(cycle.Path, " -> "); got != tt.want {
				t.Errorf("cycle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGraph_StructKeys(t *testing.T) {
	t.Parallel()
	type ref struct{ build, path string }
	g := New[ref]()
	pub := ref{"compiler", ":publish"}
	root := ref{"", ":publish"}
	g.AddEdge(pub, root)
	g.AddEdge(pub, root)
	if g.Len() != 2 || !g.hasEdge(pub, root) || g.hasEdge(root, pub) {
		t.Fatalf("unexpected graph: len=%d", g.Len())
	}
	if n := len(g.out[pub]); n != 1 {
		t.Errorf("duplicate edge recorded %d times", n)
	}
	got, err := g.Sort()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []ref{pub, root}) {
		t.Errorf("Sort() = %v", got)
	}
}
