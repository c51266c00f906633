// Package events defines the notifications emitted while a graph is dispatched.
//
// Components never share a global event channel. Each orchestrator and pool
// is handed a Sink at construction and emits into it.
package events

import (
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// EventType represents the type of dispatch event.
type EventType string

const (
	// EventWorkerCreated indicates a new worker was registered with the pool.
	EventWorkerCreated EventType = "worker:created"
	// EventWorkerIdle indicates a worker finished its task and is free.
	EventWorkerIdle EventType = "worker:idle"
	// EventWorkerBusy indicates a worker was claimed for a task.
	EventWorkerBusy EventType = "worker:busy"
	// EventWorkerError indicates a worker's executor failed or is unavailable.
	EventWorkerError EventType = "worker:error"
	// EventWorkerShutdown indicates a worker was disposed.
	EventWorkerShutdown EventType = "worker:shutdown"
	// EventTaskStarted indicates a task attempt began on a worker.
	EventTaskStarted EventType = "task:started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task:completed"
	// EventTaskFailed indicates a task attempt failed, or the task failed for good.
	EventTaskFailed EventType = "task:failed"
	// EventTaskRetrying indicates a failed attempt will be retried after a backoff.
	EventTaskRetrying EventType = "task:retrying"
	// EventProgress carries a progress snapshot.
	EventProgress EventType = "progress"
)

// Event represents a single notification.
// Only the fields relevant to the event type are set.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// RunID identifies the run the event belongs to.
	RunID string `json:"run_id,omitempty"`
	// TaskID is the ID of the related task, if applicable.
	TaskID string `json:"task_id,omitempty"`
	// WorkerID is the ID of the related worker, if applicable.
	WorkerID string `json:"worker_id,omitempty"`
	// ExecutorType is the backend of the related worker, if applicable.
	ExecutorType models.ExecutorType `json:"executor_type,omitempty"`
	// Attempt is the 1-based attempt number for task events.
	Attempt int `json:"attempt,omitempty"`
	// Backoff is the delay before the next attempt (task:retrying).
	Backoff time.Duration `json:"backoff,omitempty"`
	// Report is the work report for task:completed and task:failed.
	Report *models.WorkReport `json:"report,omitempty"`
	// Progress is the snapshot carried by progress events.
	Progress *models.Progress `json:"progress,omitempty"`
	// Message provides additional context about the event.
	Message string `json:"message,omitempty"`
	// Error contains error details for failure events.
	Error string `json:"error,omitempty"`
	// Final marks the task:failed emitted once a task has no attempts left.
	// Per-attempt failures leave it false.
	Final bool `json:"final,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives events. Implementations must be safe for concurrent use
// and must not block for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) {
	f(e)
}

type nop struct{}

func (nop) Emit(Event) {}

// Nop returns a sink that discards every event.
func Nop() Sink {
	return nop{}
}

type multi []Sink

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi returns a sink that forwards each event to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	if len(m) == 0 {
		return Nop()
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

// Stamp fills in Timestamp if it is unset.
func Stamp(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return e
}
