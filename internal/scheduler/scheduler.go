// Package scheduler tracks per-task status over a validated dependency graph.
//
// The Scheduler answers "what is ready now", advances tasks through the
// pending -> ready -> running -> {completed | failed} state machine, and
// cascades cancellation to every transitive dependent of a failed task.
// It never decides whether to retry; that belongs to the dispatch loop.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/swarm/internal/graph"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// ErrUnknownTask is returned when an operation names a task not in the graph.
var ErrUnknownTask = errors.New("unknown task")

// ErrInvalidTransition is returned when a status change is not allowed from the
// task's current status. The task is left untouched.
var ErrInvalidTransition = errors.New("invalid status transition")

// Scheduler wraps a dependency graph with mutable per-task status.
// It owns the graph's nodes once constructed and mutates them in place.
type Scheduler struct {
	// graph is the validated dependency index.
	graph *graph.DependencyGraph
	// source is the graph whose nodes are mutated.
	source *models.Graph
	// now is the clock, replaceable in tests.
	now func() time.Time
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
	// mu protects node status fields.
	mu sync.RWMutex
}

// New wraps a validated graph. Every task starts pending, except tasks with no
// dependencies, which start ready. Runtime fields left over from a previous
// run are cleared.
func New(g *graph.DependencyGraph) *Scheduler {
	s := &Scheduler{
		graph:    g,
		source:   g.Source(),
		now:      time.Now,
		debugLog: func(format string, args ...interface{}) {},
	}

	for _, id := range g.IDs() {
		n := g.Node(id)
		n.AssignedWorkerID = ""
		n.StartedAt = nil
		n.CompletedAt = nil
		n.Error = ""
		if len(g.Dependencies(id)) == 0 {
			n.Status = models.TaskStatusReady
		} else {
			n.Status = models.TaskStatusPending
		}
	}

	return s
}

// SetDebugLog sets the debug logging function.
func (s *Scheduler) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// SetClock replaces the time source used for StartedAt/CompletedAt.
func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ReadyTasks returns copies of all ready tasks sorted by priority descending.
// Equal priorities keep graph insertion order. This is the only dispatch-order
// contract.
func (s *Scheduler) ReadyTasks() []*models.TaskNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ready []*models.TaskNode
	for _, id := range s.graph.IDs() {
		n := s.graph.Node(id)
		if n.Status == models.TaskStatusReady {
			ready = append(ready, n.Clone())
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Priority > ready[j].Priority
	})

	return ready
}

// MarkRunning moves a task from ready to running and records its start time.
func (s *Scheduler) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.transition(id, models.TaskStatusRunning, models.TaskStatusReady)
	if err != nil {
		return err
	}
	now := s.now()
	n.StartedAt = &now
	n.Error = ""
	s.debugLog("[scheduler] task %s running", id)
	return nil
}

// AssignWorker records which worker is executing a running task.
func (s *Scheduler) AssignWorker(id, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.graph.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	n.AssignedWorkerID = workerID
	return nil
}

// MarkCompleted moves a task from running to completed, then promotes every
// pending task whose dependencies are now all completed.
// Returns the IDs of tasks that became ready.
func (s *Scheduler) MarkCompleted(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.transition(id, models.TaskStatusCompleted, models.TaskStatusRunning)
	if err != nil {
		return nil, err
	}
	now := s.now()
	n.CompletedAt = &now
	n.Error = ""

	promoted := s.promoteReadyLocked()
	s.debugLog("[scheduler] task %s completed, %d newly ready: %v", id, len(promoted), promoted)
	return promoted, nil
}

// MarkFailed moves a task from running to failed and cancels every transitive
// dependent that has not started. Returns the IDs of the cancelled dependents.
func (s *Scheduler) MarkFailed(id string, reason string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.transition(id, models.TaskStatusFailed, models.TaskStatusRunning)
	if err != nil {
		return nil, err
	}
	now := s.now()
	n.CompletedAt = &now
	n.Error = reason

	cancelled := s.cascadeLocked(id, fmt.Sprintf("dependency %s failed", id))
	s.debugLog("[scheduler] task %s failed (%s), cascaded to %v", id, reason, cancelled)
	return cancelled, nil
}

// MarkCancelled cancels a task that has not finished, along with every
// transitive dependent that has not started. Running tasks may only be
// cancelled when the whole run is being cancelled.
// Returns the IDs of the cancelled dependents.
func (s *Scheduler) MarkCancelled(id string, reason string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.transition(id, models.TaskStatusCancelled,
		models.TaskStatusPending, models.TaskStatusReady, models.TaskStatusRunning)
	if err != nil {
		return nil, err
	}
	now := s.now()
	n.CompletedAt = &now
	n.Error = reason

	return s.cascadeLocked(id, fmt.Sprintf("dependency %s cancelled", id)), nil
}

// CancelRemaining cancels every pending or ready task. Running tasks are left
// alone. Returns how many tasks were cancelled.
func (s *Scheduler) CancelRemaining(reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := s.now()
	for _, id := range s.graph.IDs() {
		n := s.graph.Node(id)
		if n.Status == models.TaskStatusPending || n.Status == models.TaskStatusReady {
			n.Status = models.TaskStatusCancelled
			t := now
			n.CompletedAt = &t
			n.Error = reason
			count++
		}
	}
	return count
}

// IsComplete returns true when no task is pending, ready or running.
func (s *Scheduler) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.graph.IDs() {
		if !s.graph.Node(id).Status.Terminal() {
			return false
		}
	}
	return true
}

// HasRunningTasks returns true if any task is running.
func (s *Scheduler) HasRunningTasks() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.graph.IDs() {
		if s.graph.Node(id).Status == models.TaskStatusRunning {
			return true
		}
	}
	return false
}

// Progress tallies current task statuses.
// Percentage is the share of completed tasks; an empty graph is 100% done.
func (s *Scheduler) Progress() models.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := models.Progress{Total: s.graph.Size()}
	for _, id := range s.graph.IDs() {
		switch s.graph.Node(id).Status {
		case models.TaskStatusPending:
			p.Pending++
		case models.TaskStatusReady:
			p.Ready++
		case models.TaskStatusRunning:
			p.Running++
		case models.TaskStatusCompleted:
			p.Completed++
		case models.TaskStatusFailed:
			p.Failed++
		case models.TaskStatusCancelled:
			p.Cancelled++
		}
	}

	if p.Total == 0 {
		p.Percentage = 100
	} else {
		p.Percentage = float64(p.Completed) * 100 / float64(p.Total)
	}
	return p
}

// Status returns a task's current status.
func (s *Scheduler) Status(id string) (models.TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.graph.Node(id)
	if n == nil {
		return "", false
	}
	return n.Status, true
}

// Task returns a copy of a task, or nil if it does not exist.
func (s *Scheduler) Task(id string) *models.TaskNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Node(id).Clone()
}

// Snapshot returns a deep copy of the graph with current statuses.
func (s *Scheduler) Snapshot() *models.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.source.Clone()
	snap.UpdatedAt = s.now()
	return snap
}

// CriticalPath returns the duration-weighted longest path through the graph.
func (s *Scheduler) CriticalPath() ([]string, time.Duration) {
	return s.graph.CriticalPath()
}

// Graph returns the dependency index the scheduler wraps.
func (s *Scheduler) Graph() *graph.DependencyGraph {
	return s.graph
}

// transition changes a task's status if it is currently one of from.
// Caller must hold s.mu.
func (s *Scheduler) transition(id string, to models.TaskStatus, from ...models.TaskStatus) (*models.TaskNode, error) {
	n := s.graph.Node(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	for _, f := range from {
		if n.Status == f {
			n.Status = to
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: task %s is %s, cannot become %s", ErrInvalidTransition, id, n.Status, to)
}

// promoteReadyLocked scans every pending task and marks it ready when all of its
// dependencies are completed. A failed or cancelled dependency never unblocks.
// Caller must hold s.mu.
func (s *Scheduler) promoteReadyLocked() []string {
	var promoted []string
	for _, id := range s.graph.IDs() {
		n := s.graph.Node(id)
		if n.Status != models.TaskStatusPending {
			continue
		}
		ready := true
		for _, dep := range s.graph.Dependencies(id) {
			if s.graph.Node(dep).Status != models.TaskStatusCompleted {
				ready = false
				break
			}
		}
		if ready {
			n.Status = models.TaskStatusReady
			promoted = append(promoted, id)
		}
	}
	return promoted
}

// cascadeLocked cancels every transitive dependent of id that is pending or
// ready, using an explicit stack instead of recursion.
// Caller must hold s.mu.
func (s *Scheduler) cascadeLocked(id string, reason string) []string {
	var cancelled []string
	visited := map[string]bool{id: true}
	stack := append([]string(nil), s.graph.Dependents(id)...)
	now := s.now()

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		n := s.graph.Node(cur)
		if n.Status == models.TaskStatusPending || n.Status == models.TaskStatusReady {
			n.Status = models.TaskStatusCancelled
			t := now
			n.CompletedAt = &t
			n.Error = reason
			cancelled = append(cancelled, cur)
		}
		stack = append(stack, s.graph.Dependents(cur)...)
	}

	return cancelled
}
