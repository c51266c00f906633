package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/journal"
)

var (
	statusLimit int
	statusRepo  string
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show journaled runs",
	Long: `Status lists the most recent runs recorded in the journal. Given a run
ID it prints that run's tally and its task events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of runs to list")
	statusCmd.Flags().StringVar(&statusRepo, "repo", "", "Repository whose journal to read (default: current directory)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	repoPath, err := resolveRepo(statusRepo)
	if err != nil {
		return err
	}

	path := resolveUnder(repoPath, cfg.Journal.Path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	db, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.RecoverInterrupted(); err != nil {
		log.Printf("[status] WARNING: failed to recover interrupted runs: %v", err)
	}

	if len(args) == 1 {
		return showRun(cmd.OutOrStdout(), db, args[0])
	}
	return listRuns(cmd.OutOrStdout(), db, statusLimit)
}

func listRuns(w io.Writer, db *journal.DB, limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-10s  %d/%d done  %s  %s\n",
			r.ID,
			color.New(verdictColor(r.Status)).Sprint(r.Status),
			r.Completed+r.Failed+r.Cancelled, r.Total,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			oneLine(r.Goal, 60))
	}
	return nil
}

func showRun(w io.Writer, db *journal.DB, id string) error {
	r, err := db.GetRun(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %s %s\n", r.ID, color.New(verdictColor(r.Status)).Sprint(r.Status))
	if r.GraphPath != "" {
		fmt.Fprintf(w, "  Graph:    %s\n", r.GraphPath)
	}
	if r.Goal != "" {
		fmt.Fprintf(w, "  Goal:     %s\n", oneLine(r.Goal, 100))
	}
	fmt.Fprintf(w, "  Tasks:    %d total, %d completed, %d failed, %d cancelled\n",
		r.Total, r.Completed, r.Failed, r.Cancelled)
	fmt.Fprintf(w, "  Started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
	if r.FinishedAt != nil {
		fmt.Fprintf(w, "  Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	if r.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", r.Error)
	}

	evs, err := db.Events(r.ID, "")
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "  Events:")
	for _, e := range evs {
		if line := formatEvent(e); line != "" {
			fmt.Fprintf(w, "    %s %s\n", e.Timestamp.Local().Format("15:04:05"), line)
		}
	}
	return nil
}
