// Package executor holds what the concrete executor backends share: the
// task prompt and the parser for the agent's closing status block.
package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// SystemPrompt frames the agent as one worker of a larger plan.
const SystemPrompt = `You are one worker in a team of coding agents executing a planned graph of tasks.
Other workers handle the other tasks, some of them at the same time as you.
Do only the task you are given. Do not start work that belongs to another task.`

// maxSummary bounds the summary carried into later prompts and reports.
const maxSummary = 500

// BuildPrompt constructs the user prompt for a task.
func BuildPrompt(task *models.TaskNode, tc models.TaskContext) string {
	var sb strings.Builder

	if tc.UserGoal != "" {
		sb.WriteString("## Overall Goal\n\n")
		sb.WriteString(tc.UserGoal)
		sb.WriteString("\n\n")
	}

	if tc.RepoContext != "" {
		sb.WriteString("## Repository Context\n\n")
		sb.WriteString(tc.RepoContext)
		sb.WriteString("\n\n")
	}

	if done := dependencySummaries(task, tc.CompletedSummaries); len(done) > 0 {
		sb.WriteString("## Completed Prerequisites\n\n")
		for _, line := range done {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	if others := inFlight(task, tc.Graph); len(others) > 0 {
		sb.WriteString("## Running Alongside You\n\n")
		sb.WriteString("Avoid touching what these tasks own:\n")
		for _, line := range others {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Your Task\n\n")
	sb.WriteString("Task ID: ")
	sb.WriteString(task.ID)
	sb.WriteString("\n")
	sb.WriteString("Title: ")
	sb.WriteString(task.Name)
	sb.WriteString("\n")
	if task.Description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(task.Description)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Response Format\n\n")
	sb.WriteString("Finish your answer with exactly these lines:\n")
	sb.WriteString("STATUS: [SUCCESS/FAILED]\n")
	sb.WriteString("SUMMARY: [one or two sentences on what was done, or why it failed]\n")
	sb.WriteString("FILES: [comma-separated paths you changed, or none]\n")

	return sb.String()
}

// dependencySummaries lists the summaries of task's direct dependencies.
func dependencySummaries(task *models.TaskNode, summaries map[string]string) []string {
	var out []string
	for _, dep := range task.Dependencies {
		if s, ok := summaries[dep]; ok {
			out = append(out, fmt.Sprintf("- %s: %s\n", dep, s))
		}
	}
	return out
}

// inFlight lists other tasks that are running in the snapshot.
func inFlight(task *models.TaskNode, g *models.Graph) []string {
	if g == nil {
		return nil
	}
	var out []string
	for _, n := range g.Nodes {
		if n.ID != task.ID && n.Status == models.TaskStatusRunning {
			out = append(out, fmt.Sprintf("- %s: %s\n", n.ID, n.Name))
		}
	}
	sort.Strings(out)
	return out
}

// Outcome is the parsed closing block of an agent's answer.
type Outcome struct {
	Success bool
	Summary string
	Files   []string
}

// ParseOutcome reads the STATUS/SUMMARY/FILES lines from an agent's output.
// Output without a STATUS line counts as success with the last non-empty
// line as summary; the agent finished without saying otherwise.
func ParseOutcome(output string) Outcome {
	res := Outcome{Success: true}
	sawStatus := false
	last := ""

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "STATUS:"):
			status := strings.TrimSpace(strings.TrimPrefix(line, "STATUS:"))
			res.Success = strings.EqualFold(status, "SUCCESS")
			sawStatus = true
		case strings.HasPrefix(line, "SUMMARY:"):
			res.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "FILES:"):
			res.Files = parseFiles(strings.TrimPrefix(line, "FILES:"))
		default:
			last = line
		}
	}

	if res.Summary == "" && !sawStatus {
		res.Summary = last
	}
	res.Summary = truncate(res.Summary, maxSummary)
	return res
}

func parseFiles(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil
	}
	var files []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Report fills a work report from an agent's raw output.
func Report(task *models.TaskNode, typ models.ExecutorType, output string) *models.WorkReport {
	o := ParseOutcome(output)
	r := &models.WorkReport{
		TaskID:       task.ID,
		ExecutorType: typ,
		Success:      o.Success,
		Summary:      o.Summary,
		FilesChanged: o.Files,
		Output:       output,
	}
	if !o.Success {
		r.Error = o.Summary
		if r.Error == "" {
			r.Error = "agent reported failure"
		}
	}
	return r
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
