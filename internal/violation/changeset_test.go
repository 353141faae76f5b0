// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func commitFile(t *testing.T, repo *git.Repository, root, rel, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(root, rel)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit("update "+rel, &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return hash.String()
}

func TestGitChangeSet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("PlainInit() error: %v", err)
	}

	base := commitFile(t, repo, root, "library/src/Old.java", "class Old {}")
	commitFile(t, repo, root, "library/src/New.java", "class New {}")

	dirty := filepath.Join(root, "library", "src", "Dirty.java")
	if err := os.WriteFile(dirty, []byte("class Dirty {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := GitChangeSet(filepath.Join(root, "library"), base)
	if err != nil {
		t.Fatalf("GitChangeSet() error: %v", err)
	}

	if !set.Contains(filepath.Join(root, "library", "src", "New.java")) {
		t.Error("file committed after base should be in the changeset")
	}
	if !set.Contains(dirty) {
		t.Error("untracked file should be in the changeset")
	}
	if set.Contains(filepath.Join(root, "library", "src", "Old.java")) {
		t.Error("file unchanged since base should not be in the changeset")
	}
}

func TestGitChangeSet_NotARepository(t *testing.T) {
	t.Parallel()

	if _, err := GitChangeSet(t.TempDir(), ""); err == nil {
		t.Fatal("expected error outside a repository")
	}
}
