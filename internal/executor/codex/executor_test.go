package codex

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ShayCichocki/swarm/pkg/models"
)

type fakeRunner struct {
	output  string
	err     error
	missing bool

	workDir string
	name    string
	args    []string
	stdin   string
}

func (f *fakeRunner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	return f.RunWithInput(ctx, workDir, nil, name, args...)
}

func (f *fakeRunner) RunWithInput(ctx context.Context, workDir string, input io.Reader, name string, args ...string) ([]byte, error) {
	f.workDir, f.name, f.args = workDir, name, args
	if input != nil {
		b, _ := io.ReadAll(input)
		f.stdin = string(b)
	}
	return []byte(f.output), f.err
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

func TestIsAvailable(t *testing.T) {
	if !New(Config{}, &fakeRunner{}).IsAvailable() {
		t.Error("expected codex to be available")
	}
	if New(Config{}, &fakeRunner{missing: true}).IsAvailable() {
		t.Error("expected missing binary to be unavailable")
	}
}

func TestRunSuccess(t *testing.T) {
	runner := &fakeRunner{output: "working...\nSTATUS: SUCCESS\nSUMMARY: wrote migration\nFILES: db/001.sql"}
	e := New(Config{Args: []string{"exec", "--full-auto"}, Model: "gpt-5-codex", WorkDir: "/repo"}, runner)

	task := &models.TaskNode{ID: "db", Name: "Schema", Description: "Create the schema"}
	res, err := e.Run(context.Background(), task, models.TaskContext{UserGoal: "add users"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Report.Summary != "wrote migration" || len(res.Report.FilesChanged) != 1 {
		t.Errorf("unexpected report %+v", res.Report)
	}
	if res.Report.ExecutorType != models.ExecutorCodex {
		t.Errorf("expected codex executor type, got %q", res.Report.ExecutorType)
	}

	if runner.name != "codex" || runner.workDir != "/repo" {
		t.Errorf("unexpected invocation %s in %s", runner.name, runner.workDir)
	}
	wantArgs := "exec --full-auto --model gpt-5-codex -"
	if got := strings.Join(runner.args, " "); got != wantArgs {
		t.Errorf("args = %q, want %q", got, wantArgs)
	}
	if !strings.Contains(runner.stdin, "Create the schema") || !strings.Contains(runner.stdin, "add users") {
		t.Errorf("prompt not written to stdin: %q", runner.stdin)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	runner := &fakeRunner{output: "panic: something broke", err: errors.New("exit status 1")}
	e := New(Config{}, runner)

	res, err := e.Run(context.Background(), &models.TaskNode{ID: "a"}, models.TaskContext{})
	if err != nil {
		t.Fatalf("non-zero exit should be a failed attempt, got error %v", err)
	}
	if res.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Error, "exit status 1") || !strings.Contains(res.Error, "something broke") {
		t.Errorf("unexpected error %q", res.Error)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(Config{}, &fakeRunner{err: errors.New("signal: killed")})

	if _, err := e.Run(ctx, &models.TaskNode{ID: "a"}, models.TaskContext{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short  ", 10); got != "short" {
		t.Errorf("tail = %q", got)
	}
	if got := tail("abcdefghij", 3); got != "...hij" {
		t.Errorf("tail = %q", got)
	}
}
