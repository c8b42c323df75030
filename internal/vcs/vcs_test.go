package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
)

func initRepo(t *testing.T) (string, *Repo) {
	t.Helper()
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	repo, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenWithoutRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNoRepository) {
		t.Errorf("Open() = %v, want ErrNoRepository", err)
	}
}

func TestAddAndTracked(t *testing.T) {
	dir, repo := initRepo(t)
	writeFile(t, dir, "a.patch", "diff\n")
	writeFile(t, dir, "sub/b.patch", "diff\n")

	tracked, err := repo.Tracked()
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 0 {
		t.Fatalf("fresh repo should track nothing, got %v", tracked)
	}

	if err := repo.Add("a.patch"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Add("sub/b.patch"); err != nil {
		t.Fatal(err)
	}

	tracked, err = repo.Tracked()
	if err != nil {
		t.Fatal(err)
	}
	if !tracked["a.patch"] || !tracked["sub/b.patch"] {
		t.Errorf("Tracked() = %v", tracked)
	}
}

func TestForgetKeepsWorkingTreeCopy(t *testing.T) {
	dir, repo := initRepo(t)
	writeFile(t, dir, "b.tar.gz", "pretend binary")
	if err := repo.Add("b.tar.gz"); err != nil {
		t.Fatal(err)
	}

	if err := repo.Forget("b.tar.gz"); err != nil {
		t.Fatal(err)
	}

	tracked, err := repo.Tracked()
	if err != nil {
		t.Fatal(err)
	}
	if tracked["b.tar.gz"] {
		t.Error("file still tracked after Forget")
	}
	if _, err := os.Stat(filepath.Join(dir, "b.tar.gz")); err != nil {
		t.Errorf("working-tree copy gone after Forget: %v", err)
	}

	// forgetting an untracked file is a no-op
	if err := repo.Forget("b.tar.gz"); err != nil {
		t.Errorf("second Forget = %v, want nil", err)
	}
}

func TestRemoveDeletesWorkingTreeCopy(t *testing.T) {
	dir, repo := initRepo(t)
	writeFile(t, dir, "stale.txt", "old\n")
	if err := repo.Add("stale.txt"); err != nil {
		t.Fatal(err)
	}

	if err := repo.Remove("stale.txt"); err != nil {
		t.Fatal(err)
	}

	tracked, err := repo.Tracked()
	if err != nil {
		t.Fatal(err)
	}
	if tracked["stale.txt"] {
		t.Error("file still tracked after Remove")
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("working-tree copy survived Remove: %v", err)
	}
}
