// Package pool manages reusable worker handles bound to executor backends.
//
// Workers are created on demand up to a per-type ceiling. When every worker of
// a type is busy, callers join that type's FIFO wait queue and are handed the
// next released worker directly.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// Default configuration values.
const (
	DefaultMaxWorkersPerType = 4
	DefaultTaskTimeout       = 15 * time.Minute
	DefaultWaitTimeout       = 5 * time.Minute
)

// ExecutionResult is what an executor reports for one task.
type ExecutionResult struct {
	Success bool
	Report  *models.WorkReport
	Error   string
}

// Executor is the capability a backend provides. Implementations must honour
// ctx cancellation. An Executor that also implements io.Closer is closed when
// its worker is disposed.
type Executor interface {
	IsAvailable() bool
	Run(ctx context.Context, task *models.TaskNode, tc models.TaskContext) (*ExecutionResult, error)
}

// Factory builds the executor for a new worker of the given type.
type Factory func(models.ExecutorType) (Executor, error)

// Config holds configuration for a Pool. The ceiling and timeouts are the
// initial Limits; SetLimits replaces them.
type Config struct {
	// Mode selects which backends tasks resolve to.
	Mode models.PoolMode
	// MaxWorkersPerType caps how many workers of one type may exist.
	MaxWorkersPerType int
	// DefaultTaskTimeout applies when neither an override nor an estimate is set.
	DefaultTaskTimeout time.Duration
	// WaitTimeout bounds how long a dispatch waits for an idle worker.
	WaitTimeout time.Duration
	// Events receives pool events. Nil discards them.
	Events events.Sink
}

// Limits bound a pool for one run. Zero fields leave the current value.
type Limits struct {
	// MaxWorkersPerType caps how many workers of one type may exist.
	MaxWorkersPerType int
	// DefaultTaskTimeout applies when neither an override nor an estimate is set.
	DefaultTaskTimeout time.Duration
	// WaitTimeout bounds how long a dispatch waits for an idle worker.
	WaitTimeout time.Duration
}

// RunContext is the per-run information handed to executors.
type RunContext struct {
	// RunID is stamped on every event the pool emits.
	RunID       string
	UserGoal    string
	RepoContext string
	// Snapshot returns the current graph. May be nil.
	Snapshot func() *models.Graph
}

// Worker is a claimed handle returned by GetOrCreateWorker and
// WaitForIdleWorker. It must be given back with Release.
type Worker struct {
	info     models.Worker
	executor Executor
	total    time.Duration
	runs     int
}

// ID returns the worker's identifier.
func (w *Worker) ID() string { return w.info.ID }

// Type returns the worker's executor type.
func (w *Worker) Type() models.ExecutorType { return w.info.ExecutorType }

// Pool hands out workers and runs tasks on them.
type Pool struct {
	cfg     Config
	factory Factory

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	events         events.Sink
	pending        []events.Event
	limits         Limits
	workers        map[models.ExecutorType][]*Worker
	waiters        map[models.ExecutorType][]waiter
	runCtx         RunContext
	summaries      map[string]string
	totalCompleted int
	totalFailed    int
	closed         bool
}

// waiter is a queued claim. taskID becomes the worker's current task on hand-off.
type waiter struct {
	ch     chan *Worker
	taskID string
}

// New creates a pool. Zero config values fall back to the package defaults.
func New(cfg Config, factory Factory) *Pool {
	if cfg.Mode == "" {
		cfg.Mode = models.PoolModeHybrid
	}
	if cfg.MaxWorkersPerType <= 0 {
		cfg.MaxWorkersPerType = DefaultMaxWorkersPerType
	}
	if cfg.DefaultTaskTimeout <= 0 {
		cfg.DefaultTaskTimeout = DefaultTaskTimeout
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	sink := cfg.Events
	if sink == nil {
		sink = events.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:     cfg,
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
		events:  sink,
		limits: Limits{
			MaxWorkersPerType:  cfg.MaxWorkersPerType,
			DefaultTaskTimeout: cfg.DefaultTaskTimeout,
			WaitTimeout:        cfg.WaitTimeout,
		},
		workers:   make(map[models.ExecutorType][]*Worker),
		waiters:   make(map[models.ExecutorType][]waiter),
		summaries: make(map[string]string),
	}
}

// Mode returns the pool's executor mode.
func (p *Pool) Mode() models.PoolMode {
	return p.cfg.Mode
}

// SetLimits replaces the pool's ceiling and timeouts, overriding Config.
// Zero or negative fields keep their current value. Existing workers above
// a lowered ceiling are kept.
func (p *Pool) SetLimits(l Limits) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l.MaxWorkersPerType > 0 {
		p.limits.MaxWorkersPerType = l.MaxWorkersPerType
	}
	if l.DefaultTaskTimeout > 0 {
		p.limits.DefaultTaskTimeout = l.DefaultTaskTimeout
	}
	if l.WaitTimeout > 0 {
		p.limits.WaitTimeout = l.WaitTimeout
	}
}

// Limits returns the limits currently in force.
func (p *Pool) Limits() Limits {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits
}

// SetRunContext sets the goal and repository context passed to every execution.
func (p *Pool) SetRunContext(rc RunContext) {
	p.mu.Lock()
	p.runCtx = rc
	p.mu.Unlock()
}

// GetOrCreateWorker claims an idle worker of the given type for taskID,
// creating one if none is idle and the type is below its ceiling. Returns nil
// when every worker is busy and the ceiling is reached.
func (p *Pool) GetOrCreateWorker(typ models.ExecutorType, taskID string) (*Worker, error) {
	p.mu.Lock()
	defer p.unlock()
	if p.closed || p.ctx.Err() != nil {
		return nil, ErrPoolCancelled
	}
	return p.claimLocked(typ, taskID)
}

// WaitForIdleWorker claims a worker of the given type for taskID, waiting in
// FIFO order when none is free. Returns ErrNoWorkerAvailable after the wait
// timeout and ErrPoolCancelled once the pool is cancelled.
func (p *Pool) WaitForIdleWorker(ctx context.Context, typ models.ExecutorType, taskID string) (*Worker, error) {
	p.mu.Lock()
	if p.closed || p.ctx.Err() != nil {
		p.unlock()
		return nil, ErrPoolCancelled
	}
	w, err := p.claimLocked(typ, taskID)
	if err != nil || w != nil {
		p.unlock()
		return w, err
	}
	ch := make(chan *Worker, 1)
	p.waiters[typ] = append(p.waiters[typ], waiter{ch: ch, taskID: taskID})
	waitTimeout := p.limits.WaitTimeout
	p.unlock()

	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()

	var waitErr error
	select {
	case w := <-ch:
		if w == nil {
			return nil, ErrPoolCancelled
		}
		if p.ctx.Err() != nil {
			p.Release(w)
			return nil, ErrPoolCancelled
		}
		return w, nil
	case <-timer.C:
		waitErr = fmt.Errorf("%w: %s after %v", ErrNoWorkerAvailable, typ, waitTimeout)
	case <-p.ctx.Done():
		waitErr = ErrPoolCancelled
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	// A worker may have been handed over between the wakeup and taking the
	// lock. It is already in the channel; give it back.
	if !p.removeWaiter(typ, ch) {
		if w := <-ch; w != nil {
			p.Release(w)
		}
	}
	return nil, waitErr
}

// Release returns a claimed worker. The oldest waiter for its type receives
// it directly; otherwise it becomes idle.
func (p *Pool) Release(w *Worker) {
	p.mu.Lock()
	defer p.unlock()

	if p.closed {
		w.info.CurrentTaskID = ""
		return
	}

	typ := w.info.ExecutorType
	if q := p.waiters[typ]; len(q) > 0 {
		next := q[0]
		p.waiters[typ] = q[1:]
		w.info.CurrentTaskID = next.taskID
		next.ch <- w
		p.queueLocked(events.Event{Type: events.EventWorkerBusy, TaskID: next.taskID, WorkerID: w.info.ID, ExecutorType: typ})
		return
	}

	w.info.Status = models.WorkerStatusIdle
	w.info.CurrentTaskID = ""
	p.queueLocked(events.Event{Type: events.EventWorkerIdle, WorkerID: w.info.ID, ExecutorType: typ})
}

// ExecuteTask runs attempt number attempt (1-based) of node on a worker of
// the resolved type. A zero timeout uses the node's estimate, then the
// configured default. The report is non-nil whenever the attempt actually ran
// on a worker. Events carry a copy of the report, so the caller owns the
// returned one.
func (p *Pool) ExecuteTask(ctx context.Context, node *models.TaskNode, attempt int, timeout time.Duration) (*models.WorkReport, error) {
	typ := models.ResolveExecutor(node.ExecutorPreference, p.cfg.Mode)

	w, err := p.WaitForIdleWorker(ctx, typ, node.ID)
	if err != nil {
		p.emit(events.Event{Type: events.EventTaskFailed, TaskID: node.ID, ExecutorType: typ, Attempt: attempt, Error: err.Error()})
		return nil, err
	}

	if !w.executor.IsAvailable() {
		p.emit(events.Event{Type: events.EventWorkerError, WorkerID: w.ID(), ExecutorType: typ, Error: ErrExecutorUnavailable.Error()})
		p.Release(w)
		err := fmt.Errorf("%w: %s", ErrExecutorUnavailable, typ)
		p.emit(events.Event{Type: events.EventTaskFailed, TaskID: node.ID, WorkerID: w.ID(), ExecutorType: typ, Attempt: attempt, Error: err.Error()})
		return nil, err
	}

	p.mu.Lock()
	tc, snapshot := p.taskContextLocked()
	timeout = p.effectiveTimeout(node, timeout, p.limits.DefaultTaskTimeout)
	p.mu.Unlock()
	if snapshot != nil {
		tc.Graph = snapshot()
	}

	p.emit(events.Event{Type: events.EventTaskStarted, TaskID: node.ID, WorkerID: w.ID(), ExecutorType: typ, Attempt: attempt})

	report, err := p.run(ctx, w, node.Clone(), attempt, tc, timeout)

	p.record(w, node.ID, report, err)

	sent := *report
	if err != nil {
		p.emit(events.Event{Type: events.EventTaskFailed, TaskID: node.ID, WorkerID: w.ID(), ExecutorType: typ, Attempt: attempt, Report: &sent, Error: err.Error()})
	} else {
		p.emit(events.Event{Type: events.EventTaskCompleted, TaskID: node.ID, WorkerID: w.ID(), ExecutorType: typ, Attempt: attempt, Report: &sent})
	}
	return report, err
}

// run invokes the executor under a race between completion, the timeout and
// cancellation. The worker is released only once the executor returns, so a
// timed-out executor still occupies its worker until it unwinds.
func (p *Pool) run(ctx context.Context, w *Worker, node *models.TaskNode, attempt int, tc models.TaskContext, timeout time.Duration) (*models.WorkReport, error) {
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	type outcome struct {
		res *ExecutionResult
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer p.Release(w)
		res, err := w.executor.Run(execCtx, node, tc)
		done <- outcome{res, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	report := &models.WorkReport{
		TaskID:       node.ID,
		WorkerID:     w.ID(),
		ExecutorType: w.Type(),
		Attempt:      attempt,
		StartedAt:    start,
	}

	var err error
	select {
	case out := <-done:
		err = p.interpret(w, node, out.res, out.err, report)
	case <-timer.C:
		cancel()
		err = fmt.Errorf("%w after %v", ErrTaskTimeout, timeout)
	case <-execCtx.Done():
		if p.ctx.Err() != nil {
			err = ErrPoolCancelled
		} else {
			err = ctx.Err()
		}
	}

	report.Duration = time.Since(start)
	report.Success = err == nil
	if err != nil {
		report.Error = err.Error()
	}
	return report, err
}

// interpret folds an executor's result into report and returns the attempt error.
func (p *Pool) interpret(w *Worker, node *models.TaskNode, res *ExecutionResult, runErr error, report *models.WorkReport) error {
	if res != nil && res.Report != nil {
		report.Summary = res.Report.Summary
		report.FilesChanged = append([]string(nil), res.Report.FilesChanged...)
		report.Output = res.Report.Output
	}

	switch {
	case runErr != nil:
		if errors.Is(runErr, context.Canceled) && p.ctx.Err() != nil {
			return ErrPoolCancelled
		}
		return &ExecutorError{ExecutorType: w.Type(), WorkerID: w.ID(), TaskID: node.ID, Err: runErr}
	case res == nil:
		return &ExecutorError{ExecutorType: w.Type(), WorkerID: w.ID(), TaskID: node.ID, Err: errors.New("executor returned no result")}
	case !res.Success:
		msg := res.Error
		if msg == "" {
			msg = "executor reported failure"
		}
		return &ExecutorError{ExecutorType: w.Type(), WorkerID: w.ID(), TaskID: node.ID, Err: errors.New(msg)}
	}
	return nil
}

// record updates worker and pool counters after an attempt.
func (p *Pool) record(w *Worker, taskID string, report *models.WorkReport, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.runs++
	w.total += report.Duration
	w.info.AvgDuration = w.total / time.Duration(w.runs)

	if err != nil {
		w.info.FailedTasks++
		w.info.LastError = err.Error()
		p.totalFailed++
		return
	}
	w.info.CompletedTasks++
	p.totalCompleted++
	p.summaries[taskID] = report.Summary
}

// effectiveTimeout picks the explicit override, then the node's estimate,
// then def.
func (p *Pool) effectiveTimeout(node *models.TaskNode, override, def time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if node.EstimatedDuration > 0 {
		return node.EstimatedDuration
	}
	return def
}

// Status returns a snapshot of the pool.
func (p *Pool) Status() models.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := models.PoolStatus{
		TotalCompleted: p.totalCompleted,
		TotalFailed:    p.totalFailed,
	}
	for _, typ := range models.ExecutorTypes {
		for _, w := range p.workers[typ] {
			st.Total++
			if w.info.Status == models.WorkerStatusRunning {
				st.Busy++
			} else {
				st.Idle++
			}
			st.Workers = append(st.Workers, w.info)
		}
	}
	return st
}

// Cancel fires the pool-wide cancellation signal. Pending waits return
// ErrPoolCancelled and in-flight executions have their context cancelled.
func (p *Pool) Cancel() {
	p.cancel()
}

// Cancelled reports whether Cancel has been called.
func (p *Pool) Cancelled() bool {
	return p.ctx.Err() != nil
}

// Shutdown cancels the pool, resolves every waiter with no worker and
// disposes all workers. Disposal is best effort; individual errors are
// joined into the returned error. The pool cannot be used afterwards.
func (p *Pool) Shutdown() error {
	p.cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for typ, q := range p.waiters {
		for _, wt := range q {
			wt.ch <- nil
		}
		delete(p.waiters, typ)
	}
	var all []*Worker
	for _, typ := range models.ExecutorTypes {
		all = append(all, p.workers[typ]...)
	}
	p.workers = make(map[models.ExecutorType][]*Worker)
	sink := p.events
	runID := p.runCtx.RunID
	p.events = events.Nop()
	p.mu.Unlock()

	var errs []error
	for _, w := range all {
		w.info.Status = models.WorkerStatusCompleted
		if c, ok := w.executor.(io.Closer); ok {
			if err := c.Close(); err != nil {
				w.info.Status = models.WorkerStatusError
				w.info.LastError = err.Error()
				errs = append(errs, fmt.Errorf("close worker %s: %w", w.ID(), err))
				log.Printf("[pool] WARNING: failed to close worker %s: %v", w.ID(), err)
			}
		}
		sink.Emit(events.Stamp(events.Event{Type: events.EventWorkerShutdown, RunID: runID, WorkerID: w.ID(), ExecutorType: w.Type()}))
	}
	return errors.Join(errs...)
}

// claimLocked returns an idle worker, or a newly created one, marked running
// taskID. Caller must hold p.mu.
func (p *Pool) claimLocked(typ models.ExecutorType, taskID string) (*Worker, error) {
	for _, w := range p.workers[typ] {
		if w.info.Status == models.WorkerStatusIdle {
			w.info.Status = models.WorkerStatusRunning
			w.info.CurrentTaskID = taskID
			p.queueLocked(events.Event{Type: events.EventWorkerBusy, TaskID: taskID, WorkerID: w.info.ID, ExecutorType: typ})
			return w, nil
		}
	}

	if len(p.workers[typ]) >= p.limits.MaxWorkersPerType {
		return nil, nil
	}
	if p.factory == nil {
		return nil, fmt.Errorf("%w: no factory for %s", ErrExecutorUnavailable, typ)
	}

	exec, err := p.factory(typ)
	if err != nil {
		p.queueLocked(events.Event{Type: events.EventWorkerError, ExecutorType: typ, Error: err.Error()})
		return nil, fmt.Errorf("%w: %s: %v", ErrExecutorUnavailable, typ, err)
	}

	w := &Worker{
		info: models.Worker{
			ID:            "worker-" + uuid.New().String()[:8],
			ExecutorType:  typ,
			Status:        models.WorkerStatusRunning,
			CurrentTaskID: taskID,
			CreatedAt:     time.Now(),
		},
		executor: exec,
	}
	p.workers[typ] = append(p.workers[typ], w)
	p.queueLocked(events.Event{Type: events.EventWorkerCreated, WorkerID: w.info.ID, ExecutorType: typ})
	p.queueLocked(events.Event{Type: events.EventWorkerBusy, TaskID: taskID, WorkerID: w.info.ID, ExecutorType: typ})
	return w, nil
}

// removeWaiter drops ch from typ's queue. Returns false if it was already
// handed a worker or resolved by Shutdown.
func (p *Pool) removeWaiter(typ models.ExecutorType, ch chan *Worker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	q := p.waiters[typ]
	for i, wt := range q {
		if wt.ch == ch {
			p.waiters[typ] = append(q[:i:i], q[i+1:]...)
			return true
		}
	}
	return false
}

// taskContextLocked builds the context handed to an executor, minus the graph
// snapshot, which the caller takes outside the lock.
// Caller must hold p.mu.
func (p *Pool) taskContextLocked() (models.TaskContext, func() *models.Graph) {
	tc := models.TaskContext{
		UserGoal:           p.runCtx.UserGoal,
		RepoContext:        p.runCtx.RepoContext,
		CompletedSummaries: make(map[string]string, len(p.summaries)),
	}
	for id, s := range p.summaries {
		tc.CompletedSummaries[id] = s
	}
	return tc, p.runCtx.Snapshot
}

func (p *Pool) emit(e events.Event) {
	p.mu.Lock()
	sink := p.events
	if e.RunID == "" {
		e.RunID = p.runCtx.RunID
	}
	p.mu.Unlock()
	sink.Emit(events.Stamp(e))
}

// queueLocked stamps e and holds it until the lock is released through
// unlock. Caller must hold p.mu.
func (p *Pool) queueLocked(e events.Event) {
	if e.RunID == "" {
		e.RunID = p.runCtx.RunID
	}
	p.pending = append(p.pending, events.Stamp(e))
}

// unlock releases p.mu, then emits the events queued while it was held.
// Sinks never run under the pool lock.
func (p *Pool) unlock() {
	pending, sink := p.pending, p.events
	p.pending = nil
	p.mu.Unlock()
	for _, e := range pending {
		sink.Emit(e)
	}
}
