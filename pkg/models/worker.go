package models

import "time"

// WorkerStatus represents the current state of a worker handle.
type WorkerStatus string

const (
	// WorkerStatusIdle indicates the worker can accept a task.
	WorkerStatusIdle WorkerStatus = "idle"
	// WorkerStatusRunning indicates the worker is executing exactly one task.
	WorkerStatusRunning WorkerStatus = "running"
	// WorkerStatusCompleted indicates the worker was shut down cleanly.
	WorkerStatusCompleted WorkerStatus = "completed"
	// WorkerStatusError indicates the worker's executor could not be disposed cleanly.
	WorkerStatusError WorkerStatus = "error"
)

// Valid returns true if the status is a known value.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusIdle, WorkerStatusRunning, WorkerStatusCompleted, WorkerStatusError:
		return true
	default:
		return false
	}
}

// Worker is a reusable handle bound to one executor backend.
// CurrentTaskID is set iff Status is WorkerStatusRunning.
type Worker struct {
	// ID is the unique identifier for this worker.
	ID string `json:"id"`
	// ExecutorType is the backend this worker runs tasks on.
	ExecutorType ExecutorType `json:"executor_type"`
	// Status is the current state of the worker.
	Status WorkerStatus `json:"status"`
	// CurrentTaskID is the task being executed, if any.
	CurrentTaskID string `json:"current_task_id,omitempty"`
	// CompletedTasks counts successful executions.
	CompletedTasks int `json:"completed_tasks"`
	// FailedTasks counts failed executions.
	FailedTasks int `json:"failed_tasks"`
	// AvgDuration is the mean execution time across all executions.
	AvgDuration time.Duration `json:"avg_duration,omitempty"`
	// LastError is the most recent execution error.
	LastError string `json:"last_error,omitempty"`
	// CreatedAt is when the worker was created.
	CreatedAt time.Time `json:"created_at"`
}

// PoolStatus is a snapshot of a worker pool.
type PoolStatus struct {
	Total          int      `json:"total_workers"`
	Idle           int      `json:"idle"`
	Busy           int      `json:"busy"`
	Workers        []Worker `json:"workers"`
	TotalCompleted int      `json:"total_completed"`
	TotalFailed    int      `json:"total_failed"`
}
