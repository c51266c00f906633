package exec

import (
	"context"
	"io"
	"os/exec"
	"time"
)

// killGrace is how long a cancelled command may keep its output pipes open.
const killGrace = 5 * time.Second

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewRunner creates a new ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command and returns combined stdout/stderr output.
func (r *ExecRunner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	return r.RunWithInput(ctx, workDir, nil, name, args...)
}

// RunWithInput executes a command with input on stdin.
// A cancelled ctx kills the process.
func (r *ExecRunner) RunWithInput(ctx context.Context, workDir string, input io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	if input != nil {
		cmd.Stdin = input
	}
	cmd.WaitDelay = killGrace
	return cmd.CombinedOutput()
}

// LookPath resolves name against PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
