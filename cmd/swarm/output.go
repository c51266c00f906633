package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/internal/orchestrator"
)

// printStatus prints a status line with a colored symbol.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// verdictColor maps a run status to the color it is printed in.
func verdictColor(status string) color.Attribute {
	switch status {
	case string(orchestrator.VerdictCompleted):
		return color.FgGreen
	case string(orchestrator.VerdictFailed), "error":
		return color.FgRed
	case "running":
		return color.FgCyan
	default:
		return color.FgYellow
	}
}

// formatEvent renders one event as a single line. It returns "" for events
// that are not worth showing on the terminal.
func formatEvent(e events.Event) string {
	switch e.Type {
	case events.EventTaskStarted:
		return fmt.Sprintf("%s %s started on %s (attempt %d)",
			color.CyanString("▶"), e.TaskID, e.WorkerID, e.Attempt)
	case events.EventTaskCompleted:
		line := fmt.Sprintf("%s %s completed", color.GreenString("✓"), e.TaskID)
		if e.Report != nil {
			line += fmt.Sprintf(" in %s", e.Report.Duration.Round(time.Second))
			if e.Report.Summary != "" {
				line += ": " + oneLine(e.Report.Summary, 100)
			}
		}
		return line
	case events.EventTaskFailed:
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		switch {
		case e.Final:
			return fmt.Sprintf("%s %s failed after %d attempt(s): %s", color.RedString("✗"), e.TaskID, e.Attempt, oneLine(msg, 120))
		case e.Attempt > 0:
			return fmt.Sprintf("%s %s attempt %d failed: %s", color.YellowString("✗"), e.TaskID, e.Attempt, oneLine(msg, 120))
		}
		return fmt.Sprintf("%s %s failed: %s", color.RedString("✗"), e.TaskID, oneLine(msg, 120))
	case events.EventTaskRetrying:
		return fmt.Sprintf("%s %s retrying in %s (attempt %d)",
			color.YellowString("↻"), e.TaskID, e.Backoff, e.Attempt)
	case events.EventWorkerError:
		return fmt.Sprintf("%s worker %s: %s", color.RedString("!"), e.ExecutorType, oneLine(e.Error, 120))
	case events.EventProgress:
		if e.Progress == nil {
			return ""
		}
		p := e.Progress
		return color.HiBlackString("  %d/%d done (%.0f%%), %d running, %d failed, %d cancelled",
			p.Finished(), p.Total, p.Percentage, p.Running, p.Failed, p.Cancelled)
	default:
		return ""
	}
}

// printSummary writes the end-of-run summary.
func printSummary(w io.Writer, res *orchestrator.Result) {
	p := res.Progress
	verdict := string(res.Verdict())

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run %s %s in %s\n", res.RunID,
		color.New(verdictColor(verdict)).Sprint(verdict), res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Tasks:       %d total, %d completed, %d failed, %d cancelled\n",
		p.Total, p.Completed, p.Failed, p.Cancelled)
	fmt.Fprintf(w, "  Attempts:    %d\n", len(res.Reports))
	fmt.Fprintf(w, "  Concurrency: %d (graph width %d)\n", res.Concurrency, res.Width)
	if len(res.CriticalPath) > 0 {
		fmt.Fprintf(w, "  Critical:    %s (%s estimated)\n",
			strings.Join(res.CriticalPath, " → "), res.CriticalPathDuration)
	}

	if res.Graph == nil {
		return
	}
	for _, n := range res.Graph.Nodes {
		if n.Error == "" {
			continue
		}
		fmt.Fprintf(w, "  %s %s [%s]: %s\n", color.RedString("✗"), n.ID, n.Status, oneLine(n.Error, 160))
	}
}

// oneLine flattens s to its first line and caps its length.
func oneLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
