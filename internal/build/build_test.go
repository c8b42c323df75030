package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunStreamsOutput(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker"), []byte("built\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	s := NewShell("cat", nil)
	s.stdout = &out

	if err := s.Run(context.Background(), dir, []string{"marker"}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "built\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunReportsFailure(t *testing.T) {
	s := NewShell("false", nil)
	s.stdout = &bytes.Buffer{}
	s.stderr = &bytes.Buffer{}

	if err := s.Run(context.Background(), t.TempDir(), nil); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestAvailable(t *testing.T) {
	if ok, err := NewShell("sh", nil).Available(); !ok || err != nil {
		t.Errorf("sh should be available: %v", err)
	}
	if ok, _ := NewShell("pkgsync-no-such-tool", nil).Available(); ok {
		t.Error("nonexistent command reported available")
	}
}
