// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type (
	// ChangeSet reports whether a file belongs to the change under review.
	// Findings in changed files count towards the diff threshold.
	ChangeSet interface {
		Contains(absPath string) bool
	}

	// FileSet is a ChangeSet over a fixed set of absolute paths.
	FileSet map[string]bool

	// EmptyChangeSet contains no files.
	EmptyChangeSet struct{}
)

// Contains implements ChangeSet.
func (EmptyChangeSet) Contains(string) bool { return false }

// NewFileSet builds a FileSet from paths, cleaning each of them.
func NewFileSet(paths ...string) FileSet {
	s := make(FileSet, len(paths))
	for _, p := range paths {
		s[filepath.Clean(p)] = true
	}
	return s
}

// Contains implements ChangeSet.
func (s FileSet) Contains(absPath string) bool {
	return s[filepath.Clean(absPath)]
}

// GitChangeSet computes the changeset of the repository containing dir: the
// files that differ between baseRef and HEAD plus every uncommitted or
// untracked file in the worktree. An empty baseRef only considers the
// worktree.
func GitChangeSet(dir, baseRef string) (FileSet, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	root := wt.Filesystem.Root()

	set := FileSet{}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	for path, st := range status {
		if st.Worktree != git.Unmodified || st.Staging != git.Unmodified {
			set[filepath.Join(root, filepath.FromSlash(path))] = true
		}
	}

	if baseRef == "" {
		return set, nil
	}

	changes, err := committedChanges(repo, baseRef)
	if err != nil {
		return nil, err
	}
	for _, ch := range changes {
		for _, name := range []string{ch.From.Name, ch.To.Name} {
			if name != "" {
				set[filepath.Join(root, filepath.FromSlash(name))] = true
			}
		}
	}
	return set, nil
}

func committedChanges(repo *git.Repository, baseRef string) (object.Changes, error) {
	baseHash, err := repo.ResolveRevision(plumbing.Revision(baseRef))
	if err != nil {
		return nil, fmt.Errorf("resolve base ref %q: %w", baseRef, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	baseCommit, err := repo.CommitObject(*baseHash)
	if err != nil {
		return nil, fmt.Errorf("load base commit: %w", err)
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load base tree: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load HEAD tree: %w", err)
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..HEAD: %w", baseRef, err)
	}
	return changes, nil
}
