package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Dependency-graph task dispatch for coding agents",
	Long: `Swarm runs a planned graph of tasks across a pool of claude and codex
workers, honouring dependency order and bounding concurrency.

Failed attempts are retried with linear backoff. A task that fails for good
cancels everything that depends on it.

Graphs are YAML (.yaml, .yml) or HCL (.hcl) files. Each run is journaled to
.swarm/journal.db; 'swarm status' lists recent runs.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config merged with .swarm.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the --config file if given, else the layered configuration.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}
