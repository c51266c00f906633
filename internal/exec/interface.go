// Package exec provides an interface for running external agent commands.
package exec

import (
	"context"
	"io"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunWithInput is Run with stdin connected to input.
	RunWithInput(ctx context.Context, workDir string, input io.Reader, name string, args ...string) (output []byte, err error)

	// LookPath resolves name against PATH.
	LookPath(name string) (string, error)
}
