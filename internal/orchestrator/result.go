package orchestrator

import (
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// Verdict summarizes how a run ended.
type Verdict string

const (
	// VerdictCompleted means every task completed.
	VerdictCompleted Verdict = "completed"
	// VerdictFailed means at least one task failed.
	VerdictFailed Verdict = "failed"
	// VerdictIncomplete means nothing failed but some tasks never completed,
	// usually because the run was cancelled.
	VerdictIncomplete Verdict = "incomplete"
)

// Result is what Run returns once the loop stops.
type Result struct {
	// RunID identifies the run.
	RunID string
	// Reports holds one entry per attempt that ran on a worker, in settle order.
	Reports []models.WorkReport
	// Graph is a snapshot with terminal statuses.
	Graph *models.Graph
	// Progress is the final tally.
	Progress models.Progress
	// PoolStatus is the pool snapshot taken when the loop stopped.
	PoolStatus models.PoolStatus
	// CriticalPath is the estimated-duration critical path.
	CriticalPath []string
	// CriticalPathDuration is the summed estimate along CriticalPath.
	CriticalPathDuration time.Duration
	// Width is the graph's maximum parallelism.
	Width int
	// Concurrency is the number of tasks the loop allowed in flight.
	Concurrency int
	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Verdict returns the overall outcome.
func (r *Result) Verdict() Verdict {
	p := r.Progress
	switch {
	case p.Failed > 0:
		return VerdictFailed
	case p.Completed == p.Total && p.Cancelled == 0:
		return VerdictCompleted
	default:
		return VerdictIncomplete
	}
}

// Succeeded returns true if the verdict is completed.
func (r *Result) Succeeded() bool {
	return r.Verdict() == VerdictCompleted
}

// ReportsFor returns every report for a task, in attempt order.
func (r *Result) ReportsFor(taskID string) []models.WorkReport {
	var out []models.WorkReport
	for _, rep := range r.Reports {
		if rep.TaskID == taskID {
			out = append(out, rep)
		}
	}
	return out
}
