// Package codex runs tasks through the codex command-line agent.
package codex

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/swarm/internal/exec"
	"github.com/ShayCichocki/swarm/internal/executor"
	"github.com/ShayCichocki/swarm/internal/pool"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// DefaultBinary is the codex executable looked up on PATH.
const DefaultBinary = "codex"

// outputTail bounds how much failing output ends up in an error message.
const outputTail = 400

// Config contains configuration for the codex backend.
type Config struct {
	// Binary is the codex executable. Empty selects DefaultBinary.
	Binary string
	// Args precede the prompt argument, e.g. ["exec", "--full-auto"].
	Args []string
	// Model is passed as --model when set.
	Model string
	// WorkDir is where the agent runs. Empty uses the current directory.
	WorkDir string
}

// Executor runs each task as one non-interactive codex invocation. The
// prompt is written to stdin.
type Executor struct {
	cfg    Config
	runner exec.CommandRunner
}

// New creates a codex executor using runner. A nil runner uses os/exec.
func New(cfg Config, runner exec.CommandRunner) *Executor {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if runner == nil {
		runner = exec.NewRunner()
	}
	return &Executor{cfg: cfg, runner: runner}
}

// IsAvailable reports whether the codex binary can be found.
func (e *Executor) IsAvailable() bool {
	_, err := e.runner.LookPath(e.cfg.Binary)
	return err == nil
}

// Run invokes codex and parses the closing status block of its output.
// A non-zero exit is a failed attempt, not an executor error.
func (e *Executor) Run(ctx context.Context, task *models.TaskNode, tc models.TaskContext) (*pool.ExecutionResult, error) {
	prompt := executor.BuildPrompt(task, tc)

	output, err := e.runner.RunWithInput(ctx, e.cfg.WorkDir, strings.NewReader(executor.SystemPrompt+"\n\n"+prompt), e.cfg.Binary, e.args()...)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	report := executor.Report(task, models.ExecutorCodex, string(output))
	if err != nil {
		report.Success = false
		report.Error = fmt.Sprintf("%s exited: %v: %s", e.cfg.Binary, err, tail(string(output), outputTail))
	}

	return &pool.ExecutionResult{
		Success: report.Success,
		Report:  report,
		Error:   report.Error,
	}, nil
}

// args builds the codex arguments. The trailing "-" reads the prompt from stdin.
func (e *Executor) args() []string {
	args := append([]string(nil), e.cfg.Args...)
	if e.cfg.Model != "" {
		args = append(args, "--model", e.cfg.Model)
	}
	return append(args, "-")
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return "..." + s[len(s)-n:]
	}
	return s
}

// Verify Executor implements pool.Executor at compile time.
var _ pool.Executor = (*Executor)(nil)
