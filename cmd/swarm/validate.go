package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/graph"
	"github.com/ShayCichocki/swarm/internal/graphfile"
)

var validateGoal string

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>",
	Short: "Check a task graph without running it",
	Long: `Validate parses a graph file and checks that its dependencies reference
known tasks and form no cycle. It then prints the dispatch order, the graph's
width and its estimated critical path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateGraph(cmd.OutOrStdout(), args[0], validateGoal)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateGoal, "goal", "", "Goal exposed to HCL files as the goal variable")
}

func validateGraph(w io.Writer, path, goal string) error {
	doc, err := graphfile.Load(path, graphfile.Options{Goal: goal})
	if err != nil {
		fmt.Fprintf(w, "%s %v\n", color.RedString("✗"), err)
		return err
	}

	dg, err := graph.Build(doc.Graph)
	if err != nil {
		fmt.Fprintf(w, "%s %v\n", color.RedString("✗"), err)
		return err
	}

	fmt.Fprintf(w, "%s %s is valid (%s)\n", color.GreenString("✓"), path, doc.Format)
	if doc.Goal != "" {
		fmt.Fprintf(w, "  Goal:     %s\n", oneLine(doc.Goal, 100))
	}
	fmt.Fprintf(w, "  Tasks:    %d\n", dg.Size())
	fmt.Fprintf(w, "  Width:    %d\n", dg.Width())

	depths := dg.Depths()
	fmt.Fprintln(w, "  Order:")
	for _, id := range dg.TopologicalOrder() {
		n := dg.Node(id)
		line := fmt.Sprintf("    %s%s", strings.Repeat("  ", depths[id]), id)
		if n.ExecutorPreference != "" {
			line += fmt.Sprintf(" [%s]", n.ExecutorPreference)
		}
		if n.EstimatedDuration > 0 {
			line += fmt.Sprintf(" ~%s", n.EstimatedDuration)
		}
		fmt.Fprintln(w, line)
	}

	if cp, dur := dg.CriticalPath(); len(cp) > 0 {
		fmt.Fprintf(w, "  Critical: %s (%s estimated)\n", strings.Join(cp, " → "), dur)
	}
	return nil
}
