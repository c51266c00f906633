package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Config prints the configuration after defaults, the user config, the
project .swarm.yaml and SWARM_* environment variables have been merged.
The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func printConfig(w io.Writer, cfg *config.Config) {
	key, _ := config.GetAPIKey(cfg)

	fmt.Fprintln(w, "Config files:")
	fmt.Fprintf(w, "  user:    %s%s\n", config.GetUserConfigPath(), missing(config.GetUserConfigPath()))
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Fprintf(w, "  project: %s\n", project)
	} else {
		fmt.Fprintf(w, "  project: (no %s found)\n", config.ProjectConfigName)
	}
	if configPath != "" {
		fmt.Fprintf(w, "  flag:    %s\n", configPath)
	}

	fmt.Fprintln(w, "\nClaude:")
	fmt.Fprintf(w, "  api_key:    %s (source: %s)\n", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
	fmt.Fprintf(w, "  model:      %s\n", cfg.Anthropic.Model)
	fmt.Fprintf(w, "  max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	if cfg.Bedrock.Enabled {
		fmt.Fprintf(w, "  bedrock:    region=%s profile=%s\n", orDefault(cfg.Bedrock.Region), orDefault(cfg.Bedrock.Profile))
	}

	fmt.Fprintln(w, "\nCodex:")
	fmt.Fprintf(w, "  binary: %s\n", cfg.Codex.Binary)
	fmt.Fprintf(w, "  args:   %s\n", strings.Join(cfg.Codex.Args, " "))
	if cfg.Codex.Model != "" {
		fmt.Fprintf(w, "  model:  %s\n", cfg.Codex.Model)
	}

	fmt.Fprintln(w, "\nPool:")
	fmt.Fprintf(w, "  mode:                 %s\n", cfg.Pool.Mode)
	fmt.Fprintf(w, "  max_workers:          %d\n", cfg.Pool.MaxWorkers)
	fmt.Fprintf(w, "  task_timeout:         %s\n", cfg.Pool.TaskTimeout)
	fmt.Fprintf(w, "  default_task_timeout: %s\n", cfg.Pool.DefaultTaskTimeout)
	fmt.Fprintf(w, "  wait_timeout:         %s\n", cfg.Pool.WaitTimeout)

	fmt.Fprintln(w, "\nRetry:")
	fmt.Fprintf(w, "  max_retries:  %d\n", cfg.Retry.MaxRetries)
	fmt.Fprintf(w, "  backoff_unit: %s\n", cfg.Retry.BackoffUnit)

	fmt.Fprintln(w, "\nJournal:")
	fmt.Fprintf(w, "  enabled: %t\n", cfg.Journal.Enabled)
	fmt.Fprintf(w, "  path:    %s\n", cfg.Journal.Path)
}

func missing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (not found)"
	}
	return ""
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
