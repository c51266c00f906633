// Package config handles configuration loading and management for swarm.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/swarm/internal/orchestrator/policy"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// ProjectConfigName is the project-level config file searched for upward from the working directory.
const ProjectConfigName = ".swarm.yaml"

// Config holds all configuration for swarm.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Bedrock   BedrockConfig   `mapstructure:"bedrock"`
	Codex     CodexConfig     `mapstructure:"codex"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// AnthropicConfig holds Anthropic API settings for the claude backend.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// BedrockConfig routes the claude backend through AWS Bedrock.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// CodexConfig holds settings for the codex command-line backend.
type CodexConfig struct {
	Binary string   `mapstructure:"binary"`
	Args   []string `mapstructure:"args"`
	Model  string   `mapstructure:"model"`
}

// PoolConfig holds worker pool sizing and timeouts.
type PoolConfig struct {
	Mode               string        `mapstructure:"mode"`
	MaxWorkers         int           `mapstructure:"max_workers"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout"`
	DefaultTaskTimeout time.Duration `mapstructure:"default_task_timeout"`
	WaitTimeout        time.Duration `mapstructure:"wait_timeout"`
}

// RetryConfig holds retry settings for the dispatch loop.
type RetryConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	BackoffUnit time.Duration `mapstructure:"backoff_unit"`
}

// JournalConfig controls the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DebugConfig controls the file-backed debug log.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogPath string `mapstructure:"log_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, SWARM_POOL_MAX_WORKERS, ...)
// 2. Project config (.swarm.yaml in current directory or parent)
// 3. User config (~/.config/swarm/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return decode(v)
}

// LoadFromPath loads configuration from a specific file on top of the defaults.
// Environment variables still apply.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return decode(v)
}

// decode applies environment overrides and unmarshals into a validated Config.
func decode(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SWARM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "SWARM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("bedrock.region", "SWARM_BEDROCK_REGION", "AWS_REGION")
	v.BindEnv("bedrock.profile", "SWARM_BEDROCK_PROFILE", "AWS_PROFILE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Journal.Path = os.ExpandEnv(cfg.Journal.Path)
	cfg.Debug.LogPath = os.ExpandEnv(cfg.Debug.LogPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if !models.PoolMode(c.Pool.Mode).Valid() {
		return fmt.Errorf("invalid pool.mode %q: expected claude, codex or hybrid", c.Pool.Mode)
	}
	if c.Pool.MaxWorkers < 1 {
		return fmt.Errorf("pool.max_workers must be at least 1, got %d", c.Pool.MaxWorkers)
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("retry.max_retries must be at least 1, got %d", c.Retry.MaxRetries)
	}
	if c.Pool.TaskTimeout < 0 || c.Pool.WaitTimeout < 0 || c.Retry.BackoffUnit < 0 {
		return fmt.Errorf("timeouts and backoff must not be negative")
	}
	return nil
}

// PoolMode returns the configured pool mode.
func (c *Config) PoolMode() models.PoolMode {
	return models.PoolMode(c.Pool.Mode)
}

// Policy converts the configuration into dispatch policy values.
func (c *Config) Policy() *policy.Config {
	p := policy.Default()
	p.Retry.MaxRetries = c.Retry.MaxRetries
	p.Retry.BackoffUnit = c.Retry.BackoffUnit
	p.Pool.MaxWorkers = c.Pool.MaxWorkers
	p.Pool.TaskTimeout = c.Pool.TaskTimeout
	if c.Pool.DefaultTaskTimeout > 0 {
		p.Pool.DefaultTaskTimeout = c.Pool.DefaultTaskTimeout
	}
	if c.Pool.WaitTimeout > 0 {
		p.Pool.WaitTimeout = c.Pool.WaitTimeout
	}
	return p
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)

	v.SetDefault("bedrock.enabled", false)
	v.SetDefault("bedrock.region", "")
	v.SetDefault("bedrock.profile", "")

	v.SetDefault("codex.binary", "codex")
	v.SetDefault("codex.args", []string{"exec", "--full-auto"})
	v.SetDefault("codex.model", "")

	v.SetDefault("pool.mode", string(models.PoolModeHybrid))
	v.SetDefault("pool.max_workers", 4)
	v.SetDefault("pool.task_timeout", "0s")
	v.SetDefault("pool.default_task_timeout", "15m")
	v.SetDefault("pool.wait_timeout", "5m")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.backoff_unit", "1s")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(".swarm", "journal.db"))

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.log_path", "")
}

// getUserConfigDir returns the XDG config directory for swarm.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarm")
	}
	return filepath.Join(home, ".config", "swarm")
}

// findProjectConfig searches for .swarm.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 8192,
		},
		Codex: CodexConfig{
			Binary: "codex",
			Args:   []string{"exec", "--full-auto"},
		},
		Pool: PoolConfig{
			Mode:               string(models.PoolModeHybrid),
			MaxWorkers:         4,
			DefaultTaskTimeout: 15 * time.Minute,
			WaitTimeout:        5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BackoffUnit: time.Second,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(".swarm", "journal.db"),
		},
	}
}
