package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/executor/claude"
	"github.com/ShayCichocki/swarm/internal/executor/codex"
	"github.com/ShayCichocki/swarm/pkg/models"
)

type fakeRunner struct {
	found bool
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func (f *fakeRunner) RunWithInput(ctx context.Context, workDir string, input io.Reader, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if !f.found {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

func TestExecutorFactory(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := config.Default()
	factory := newExecutorFactory(context.Background(), cfg, t.TempDir(), &fakeRunner{found: true})

	e, err := factory(models.ExecutorClaude)
	if err != nil {
		t.Fatalf("claude factory failed: %v", err)
	}
	if _, ok := e.(*claude.Executor); !ok {
		t.Errorf("expected *claude.Executor, got %T", e)
	}
	if e.IsAvailable() {
		t.Error("expected claude executor without a key to be unavailable")
	}

	e, err = factory(models.ExecutorCodex)
	if err != nil {
		t.Fatalf("codex factory failed: %v", err)
	}
	if _, ok := e.(*codex.Executor); !ok {
		t.Errorf("expected *codex.Executor, got %T", e)
	}
	if !e.IsAvailable() {
		t.Error("expected codex executor to be available when the binary is found")
	}

	if _, err := factory("gpt"); err == nil {
		t.Error("expected error for unknown executor type")
	}
}

func TestExecutorFactoryWithKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key-123456")

	factory := newExecutorFactory(context.Background(), config.Default(), t.TempDir(), &fakeRunner{})
	e, err := factory(models.ExecutorClaude)
	if err != nil {
		t.Fatalf("claude factory failed: %v", err)
	}
	if !e.IsAvailable() {
		t.Error("expected claude executor with a key to be available")
	}
}

func TestCheckBackends(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		found bool
		mode  models.PoolMode
		want  int
	}{
		{name: "hybrid with nothing", mode: models.PoolModeHybrid, want: 2},
		{name: "hybrid ready", key: "sk-ant-test-key-123456", found: true, mode: models.PoolModeHybrid, want: 0},
		{name: "claude only ignores codex", mode: models.PoolModeClaude, want: 1},
		{name: "codex only ignores claude", found: true, mode: models.PoolModeCodex, want: 0},
		{name: "codex missing", key: "sk-ant-test-key-123456", mode: models.PoolModeCodex, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.key)
			got := checkBackends(config.Default(), tt.mode, &fakeRunner{found: tt.found})
			if len(got) != tt.want {
				t.Errorf("expected %d problems, got %v", tt.want, got)
			}
		})
	}
}

func TestApplyRunFlags(t *testing.T) {
	defer func() { runMode, runMaxWorkers = "", 0 }()

	runMode, runMaxWorkers = "codex", 2
	cfg := config.Default()
	if err := applyRunFlags(cfg); err != nil {
		t.Fatalf("applyRunFlags failed: %v", err)
	}
	if cfg.PoolMode() != models.PoolModeCodex || cfg.Pool.MaxWorkers != 2 {
		t.Errorf("flags not applied: %+v", cfg.Pool)
	}

	runMode = "gpt"
	if err := applyRunFlags(config.Default()); err == nil {
		t.Error("expected invalid mode to be rejected")
	}
}

func TestResolveUnder(t *testing.T) {
	if got := resolveUnder("/repo", ".swarm/journal.db"); got != "/repo/.swarm/journal.db" {
		t.Errorf("unexpected relative resolution %q", got)
	}
	if got := resolveUnder("/repo", "/var/lib/journal.db"); got != "/var/lib/journal.db" {
		t.Errorf("absolute path changed to %q", got)
	}
}
