package models

import "time"

// TaskStatus represents the current state of a task node.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting on dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates every dependency completed and the task can be dispatched.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates the task is being executed by a worker.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed after exhausting its retries.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task will never run, usually because a dependency failed.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transition is possible from this status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskNode is a single unit of work in a dependency graph.
type TaskNode struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// Name is the short, human-readable name of the task.
	Name string `json:"name" yaml:"name"`
	// Description provides the instructions handed to the executor.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// ExecutorPreference selects the backend that should run the task.
	ExecutorPreference ExecutorPreference `json:"executor_preference" yaml:"executor_preference"`
	// Priority orders ready tasks; higher is more urgent.
	Priority int `json:"priority" yaml:"priority"`
	// EstimatedDuration is the planner's estimate, used for timeouts and critical path.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status" yaml:"status,omitempty"`
	// AssignedWorkerID is the ID of the worker running (or that last ran) the task.
	AssignedWorkerID string `json:"assigned_worker_id,omitempty" yaml:"-"`
	// StartedAt is when the task was last marked running.
	StartedAt *time.Time `json:"started_at,omitempty" yaml:"-"`
	// CompletedAt is when the task reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"-"`
	// Error contains the error message if the task failed or was cancelled.
	Error string `json:"error,omitempty" yaml:"-"`
}

// Clone returns a deep copy of the node.
func (n *TaskNode) Clone() *TaskNode {
	if n == nil {
		return nil
	}
	c := *n
	if n.Dependencies != nil {
		c.Dependencies = append([]string(nil), n.Dependencies...)
	}
	if n.StartedAt != nil {
		t := *n.StartedAt
		c.StartedAt = &t
	}
	if n.CompletedAt != nil {
		t := *n.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Edge is an explicit dependency edge: To depends on From.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Graph is the structural description of a run's tasks.
// Nodes keep the planner's insertion order, which breaks priority ties.
type Graph struct {
	ID        string      `json:"id" yaml:"id"`
	RunID     string      `json:"run_id" yaml:"run_id"`
	Nodes     []*TaskNode `json:"nodes" yaml:"nodes"`
	Edges     []Edge      `json:"edges,omitempty" yaml:"edges,omitempty"`
	CreatedAt time.Time   `json:"created_at" yaml:"-"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"-"`
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	c := *g
	c.Nodes = make([]*TaskNode, len(g.Nodes))
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Clone()
	}
	c.Edges = append([]Edge(nil), g.Edges...)
	return &c
}

// DeriveEdges rebuilds Edges from the node dependency lists.
func (g *Graph) DeriveEdges() {
	g.Edges = g.Edges[:0]
	for _, n := range g.Nodes {
		for _, dep := range n.Dependencies {
			g.Edges = append(g.Edges, Edge{From: dep, To: n.ID})
		}
	}
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *TaskNode {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Progress is a point-in-time tally of task statuses.
// Cancelled tasks are tallied separately from failed ones.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	Cancelled  int     `json:"cancelled"`
	Running    int     `json:"running"`
	Ready      int     `json:"ready"`
	Pending    int     `json:"pending"`
	Percentage float64 `json:"percentage"`
}

// Finished returns the number of tasks in a terminal status.
func (p Progress) Finished() int {
	return p.Completed + p.Failed + p.Cancelled
}

// WorkReport describes the outcome of one task attempt that actually ran on a worker.
type WorkReport struct {
	TaskID       string        `json:"task_id"`
	WorkerID     string        `json:"worker_id"`
	ExecutorType ExecutorType  `json:"executor_type"`
	Success      bool          `json:"success"`
	Summary      string        `json:"summary,omitempty"`
	FilesChanged []string      `json:"files_changed,omitempty"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	Attempt      int           `json:"attempt"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// TaskContext is handed to an executor alongside the task it runs.
type TaskContext struct {
	// UserGoal is the natural-language goal the graph was planned from.
	UserGoal string
	// RepoContext is optional free-form context about the target repository.
	RepoContext string
	// Graph is a snapshot of the graph at dispatch time.
	Graph *Graph
	// CompletedSummaries maps completed task IDs to their report summaries.
	CompletedSummaries map[string]string
}
