// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestWatcher(t *testing.T, root string, onChange ChangeFunc) *Watcher {
	t.Helper()
	w, err := New(Options{
		Root:     root,
		Quiet:    50 * time.Millisecond,
		OnChange: onChange,
		Logger:   log.New(&bytes.Buffer{}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestMatches(t *testing.T) {
	t.Parallel()
	w := newTestWatcher(t, t.TempDir(), nil)
	t.Cleanup(func() { _ = w.fsw.Close() })

	tests := []struct {
		rel  string
		want bool
	}{
		{"library/src/main/java/com/example/Foo.java", true},
		{"library/src/main/AndroidManifest.xml", true},
		{"relgate.cue", true},
		{"gradle/libs.versions.toml", true},
		{"library/build/reports/pmd/pmd.xml", false},
		{"build/intermediates/Foo.java", false},
		{".git/HEAD", false},
		{"library/.gradle/cache.properties", false},
		{"README.md", false},
		{"library/src/main/java/Foo.java~", false},
	}
	for _, tt := range tests {
		if got := w.Matches(tt.rel); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := New(Options{Root: t.TempDir(), Sources: []string{"src/[.java"}})
	if err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestRun_CoalescesChanges(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := filepath.Join(root, "library", "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}

	got := make(chan []string, 4)
	w := newTestWatcher(t, root, func(_ context.Context, changed []string) error {
		got <- changed
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	for _, name := range []string{"A.java", "B.java"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("class X {}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(src, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case changed := <-got:
		want := []string{"library/src/A.java", "library/src/B.java"}
		if !slices.Equal(changed, want) {
			t.Errorf("changed = %v, want %v", changed, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRun_Once(t *testing.T) {
	t.Parallel()
	w := newTestWatcher(t, t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !w.started.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	<-errCh
}
