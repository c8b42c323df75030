// Package build shells out to the project's build tool once the
// working tree holds a complete source set.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner executes the configured build command inside a project
// directory.
type Runner interface {
	// Run invokes the build command with extra arguments appended to the
	// configured ones. Output streams through as the build produces it.
	Run(ctx context.Context, dir string, extra []string) error
	// Available checks that the build command can be found at all.
	Available() (bool, error)
}

// Shell implements Runner by executing the command directly.
type Shell struct {
	command string
	args    []string
	stdout  io.Writer
	stderr  io.Writer
}

// NewShell creates a runner for the given command and base arguments.
func NewShell(command string, args []string) *Shell {
	return &Shell{
		command: command,
		args:    args,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Run invokes the build command in dir, streaming its output.
func (s *Shell) Run(ctx context.Context, dir string, extra []string) error {
	args := append(append([]string{}, s.args...), extra...)
	cmd := exec.CommandContext(ctx, s.command, args...)
	cmd.Dir = dir
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", s.command, err)
	}
	return nil
}

// Available checks that the build command resolves on PATH.
func (s *Shell) Available() (bool, error) {
	if _, err := exec.LookPath(s.command); err != nil {
		return false, fmt.Errorf("%s not available: %w", s.command, err)
	}
	return true, nil
}
