package main

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/exec"
	"github.com/ShayCichocki/swarm/internal/executor/claude"
	"github.com/ShayCichocki/swarm/internal/executor/codex"
	"github.com/ShayCichocki/swarm/internal/pool"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// newExecutorFactory returns the pool factory that builds backends from cfg.
// Codex workers run in repoPath. A nil runner uses os/exec.
func newExecutorFactory(ctx context.Context, cfg *config.Config, repoPath string, runner exec.CommandRunner) pool.Factory {
	return func(typ models.ExecutorType) (pool.Executor, error) {
		switch typ {
		case models.ExecutorClaude:
			// A missing key leaves the executor unavailable; the pool reports it.
			key, _ := config.GetAPIKey(cfg)
			e, err := claude.New(ctx, claude.Config{
				Model:      anthropic.Model(cfg.Anthropic.Model),
				MaxTokens:  cfg.Anthropic.MaxTokens,
				APIKey:     key,
				UseBedrock: cfg.Bedrock.Enabled,
				AWSRegion:  cfg.Bedrock.Region,
				AWSProfile: cfg.Bedrock.Profile,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		case models.ExecutorCodex:
			return codex.New(codex.Config{
				Binary:  cfg.Codex.Binary,
				Args:    cfg.Codex.Args,
				Model:   cfg.Codex.Model,
				WorkDir: repoPath,
			}, runner), nil
		default:
			return nil, fmt.Errorf("unknown executor type %q", typ)
		}
	}
}

// backendsFor lists the backends a pool mode can dispatch to.
func backendsFor(mode models.PoolMode) []models.ExecutorType {
	switch mode {
	case models.PoolModeClaude:
		return []models.ExecutorType{models.ExecutorClaude}
	case models.PoolModeCodex:
		return []models.ExecutorType{models.ExecutorCodex}
	default:
		return models.ExecutorTypes
	}
}

// checkBackends reports which backends the mode needs but cannot use.
func checkBackends(cfg *config.Config, mode models.PoolMode, runner exec.CommandRunner) []string {
	var problems []string
	for _, typ := range backendsFor(mode) {
		switch typ {
		case models.ExecutorClaude:
			if config.GetAPIKeySource(cfg) == config.KeySourceNone {
				problems = append(problems, "claude: no ANTHROPIC_API_KEY and Bedrock is disabled")
			}
		case models.ExecutorCodex:
			if _, err := runner.LookPath(cfg.Codex.Binary); err != nil {
				problems = append(problems, fmt.Sprintf("codex: %s not found in PATH", cfg.Codex.Binary))
			}
		}
	}
	return problems
}
