//go:build e2e

// Package harness builds the pkgsync binary once per suite and runs it
// against scaffolded projects.
package harness

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/example/pkgsync/internal/testutil"
)

// Suite holds the built binary for a test run.
type Suite struct {
	t   *testing.T
	bin string
}

// Result carries one binary invocation's outcome.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Build compiles cmd/pkgsync into a temp location and returns a suite
// around it. The build failing fails the test immediately.
func Build(t *testing.T) *Suite {
	t.Helper()

	root, err := testutil.FindProjectRoot()
	if err != nil {
		t.Fatalf("locate module root: %v", err)
	}

	bin := filepath.Join(t.TempDir(), "pkgsync")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/pkgsync")
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build: %v\n%s", err, out)
	}

	return &Suite{t: t, bin: bin}
}

// Run invokes the binary in dir and returns its outcome. A non-zero
// exit is not an error; callers assert on ExitCode.
func (s *Suite) Run(ctx context.Context, dir string, args ...string) Result {
	s.t.Helper()

	cmd := exec.CommandContext(ctx, s.bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			s.t.Fatalf("run %s %v: %v", s.bin, args, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRun invokes the binary and fails the test on a non-zero exit.
func (s *Suite) MustRun(ctx context.Context, dir string, args ...string) Result {
	s.t.Helper()
	res := s.Run(ctx, dir, args...)
	if res.ExitCode != 0 {
		s.t.Fatalf("pkgsync %v exited %d\nstdout: %s\nstderr: %s",
			args, res.ExitCode, res.Stdout, res.Stderr)
	}
	return res
}
