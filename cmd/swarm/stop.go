package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/signals"
)

var stopRepo string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Cancel the run in progress",
	Long: `Stop drops a kill file into .swarm/signals. A run in the same repository
notices it, cancels its in-flight attempts and ends unfinished tasks as
cancelled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoPath, err := resolveRepo(stopRepo)
		if err != nil {
			return err
		}
		if err := signals.SendKill(repoPath); err != nil {
			return fmt.Errorf("send stop signal: %w", err)
		}
		printStatus("✓", "Stop signal sent", color.FgGreen)
		return nil
	},
}

func init() {
	stopCmd.Flags().StringVar(&stopRepo, "repo", "", "Repository of the run to stop (default: current directory)")
}
