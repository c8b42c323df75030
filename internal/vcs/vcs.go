// Package vcs is the version-control collaborator: it exposes the
// tracked-file set and the three index mutations the reconciliation
// engine needs, backed by go-git so no git binary is required.
package vcs

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// ErrNoRepository is returned when the project directory holds no git
// repository. Reconciliation cannot run without one.
var ErrNoRepository = errors.New("no git repository")

// Tracker is the surface the reconciliation engine depends on.
// Implemented by Repo; tests substitute fakes.
type Tracker interface {
	// Tracked returns the set of file names currently in the index,
	// keyed by slash-separated relative path.
	Tracked() (map[string]bool, error)
	// Add stages the file for the next commit.
	Add(name string) error
	// Forget drops the file from the index but leaves the working-tree
	// copy in place (git rm --cached).
	Forget(name string) error
	// Remove drops the file from the index and deletes it from the
	// working tree (git rm).
	Remove(name string) error
}

// Repo wraps a non-bare repository rooted at the project directory.
type Repo struct {
	repo *git.Repository
	wt   *git.Worktree
}

var _ Tracker = (*Repo)(nil)

// Open opens the repository at dir.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w in %s", ErrNoRepository, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository worktree: %w", err)
	}
	return &Repo{repo: repo, wt: wt}, nil
}

// Tracked reads the index once and returns all entry names.
func (r *Repo) Tracked() (map[string]bool, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	tracked := make(map[string]bool, len(idx.Entries))
	for _, e := range idx.Entries {
		tracked[e.Name] = true
	}
	return tracked, nil
}

// Add stages name.
func (r *Repo) Add(name string) error {
	if _, err := r.wt.Add(name); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

// Forget removes name from the index only. Forgetting an untracked file
// is a no-op, which keeps repeated reconciliation runs idempotent.
func (r *Repo) Forget(name string) error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	if _, err := idx.Remove(name); err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return nil
		}
		return fmt.Errorf("forget %s: %w", name, err)
	}
	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Remove removes name from the index and the working tree.
func (r *Repo) Remove(name string) error {
	if _, err := r.wt.Remove(name); err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return nil
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
