package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/internal/graph"
	"github.com/ShayCichocki/swarm/internal/pool"
	"github.com/ShayCichocki/swarm/internal/scheduler"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// Run validates g and dispatches it until every task is terminal, the graph
// is stuck, or ctx is cancelled. The graph's nodes are mutated in place.
//
// A graph that fails validation is rejected before anything runs. On
// cancellation Run returns the partial result together with ctx's error.
func (o *Orchestrator) Run(ctx context.Context, g *models.Graph) (*Result, error) {
	start := time.Now()

	dg, err := graph.Build(g)
	if err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	dg.SetDebugLog(o.logger.Log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := o.begin(cancel); err != nil {
		return nil, err
	}
	defer o.end()

	runID := o.runID
	if runID == "" {
		runID = g.RunID
	}
	if runID == "" {
		runID = uuid.New().String()
	}
	g.RunID = runID

	sched := scheduler.New(dg)
	sched.SetDebugLog(o.logger.Log)

	width := dg.Width()
	concurrency := width
	if concurrency > o.policy.Pool.MaxWorkers {
		concurrency = o.policy.Pool.MaxWorkers
	}
	if concurrency < 1 {
		concurrency = 1
	}
	// The policy is the only source of the pool's limits for a run, so the
	// reported concurrency is the ceiling the pool enforces.
	o.pool.SetLimits(pool.Limits{
		MaxWorkersPerType:  concurrency,
		DefaultTaskTimeout: o.policy.Pool.DefaultTaskTimeout,
		WaitTimeout:        o.policy.Pool.WaitTimeout,
	})
	o.pool.SetRunContext(pool.RunContext{
		RunID:       runID,
		UserGoal:    o.userGoal,
		RepoContext: o.repoContext,
		Snapshot:    sched.Snapshot,
	})

	// Cancelling the run fires the pool-wide signal so in-flight waits and
	// executions unwind.
	stopCancel := context.AfterFunc(runCtx, o.pool.Cancel)
	defer stopCancel()

	o.logger.Log("[run %s] starting: %d tasks, width %d, concurrency %d", runID, dg.Size(), width, concurrency)

	rs := &runState{id: runID, sched: sched}
	o.runLoop(runCtx, rs, concurrency)

	criticalPath, criticalDur := sched.CriticalPath()
	res := &Result{
		RunID:                runID,
		Reports:              rs.reportsSnapshot(),
		Graph:                sched.Snapshot(),
		Progress:             sched.Progress(),
		PoolStatus:           o.pool.Status(),
		CriticalPath:         criticalPath,
		CriticalPathDuration: criticalDur,
		Width:                width,
		Concurrency:          concurrency,
		Duration:             time.Since(start),
	}
	o.emitProgress(rs)
	o.logger.Log("[run %s] finished: verdict=%s progress=%+v", runID, res.Verdict(), res.Progress)

	if runCtx.Err() != nil {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// Stopped through Stop.
		return res, context.Canceled
	}
	return res, nil
}

// runState is the per-run state shared by the loop and its dispatches.
type runState struct {
	id    string
	sched *scheduler.Scheduler

	mu      sync.Mutex
	reports []models.WorkReport
}

func (rs *runState) addReport(r models.WorkReport) {
	rs.mu.Lock()
	rs.reports = append(rs.reports, r)
	rs.mu.Unlock()
}

func (rs *runState) reportsSnapshot() []models.WorkReport {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]models.WorkReport(nil), rs.reports...)
}

// runLoop dispatches ready tasks until the scheduler is complete, nothing more
// can run, or ctx is cancelled. It suspends once per iteration until at least
// one in-flight dispatch settles.
func (o *Orchestrator) runLoop(ctx context.Context, rs *runState, concurrency int) {
	settled := make(chan string, rs.sched.Graph().Size())
	inflight := 0

	for !rs.sched.IsComplete() {
		o.emitProgress(rs)

		if ctx.Err() != nil {
			break
		}

		ready := rs.sched.ReadyTasks()
		o.logger.Log("[runLoop] %d ready tasks, %d inflight", len(ready), inflight)

		if len(ready) == 0 && inflight == 0 {
			// Every remaining task is blocked on something that will never complete.
			log.Printf("[orchestrator] run %s stuck: no ready tasks and none running", rs.id)
			break
		}

		for _, task := range ready {
			if inflight >= concurrency {
				break
			}
			if err := rs.sched.MarkRunning(task.ID); err != nil {
				log.Printf("[orchestrator] WARNING: cannot dispatch task %s: %v", task.ID, err)
				continue
			}
			inflight++
			o.logger.Log("[runLoop] dispatching task %s (priority %d)", task.ID, task.Priority)
			go func(task *models.TaskNode) {
				o.executeTaskWithRetry(ctx, rs, task)
				settled <- task.ID
			}(task)
		}

		if inflight == 0 {
			continue
		}

		select {
		case id := <-settled:
			inflight--
			o.logger.Log("[runLoop] task %s settled", id)
		case <-ctx.Done():
		}
	}

	// Let in-flight dispatches unwind. They observe the cancelled pool promptly.
	for inflight > 0 {
		<-settled
		inflight--
	}

	if ctx.Err() != nil {
		if n := rs.sched.CancelRemaining("run cancelled"); n > 0 {
			o.logger.Log("[runLoop] cancelled %d remaining tasks", n)
		}
	}
}

// executeTaskWithRetry runs task up to MaxRetries times with linear backoff.
// It is the only place that decides retry versus give up.
func (o *Orchestrator) executeTaskWithRetry(ctx context.Context, rs *runState, task *models.TaskNode) {
	maxRetries := o.policy.Retry.MaxRetries
	var lastErr error
	attempts := 0
	workerID := ""

	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts = attempt
		report, err := o.pool.ExecuteTask(ctx, task, attempt, o.policy.Pool.TaskTimeout)
		if report != nil {
			workerID = report.WorkerID
			rs.addReport(*report)
			if aerr := rs.sched.AssignWorker(task.ID, report.WorkerID); aerr != nil {
				o.logger.Log("[retry] assign worker for %s: %v", task.ID, aerr)
			}
		}

		if err == nil {
			promoted, merr := rs.sched.MarkCompleted(task.ID)
			if merr != nil {
				log.Printf("[orchestrator] WARNING: failed to mark task %s completed: %v", task.ID, merr)
				return
			}
			o.logger.Log("[retry] task %s completed on attempt %d; newly ready: %v", task.ID, attempt, promoted)
			return
		}

		lastErr = err
		if pool.IsCancelled(err) || ctx.Err() != nil {
			o.cancelTask(rs, task.ID)
			return
		}
		if !pool.IsRetryable(err) {
			break
		}

		o.logger.Log("[retry] task %s attempt %d/%d failed: %v", task.ID, attempt, maxRetries, err)
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(attempt) * o.policy.Retry.BackoffUnit
		o.emit(events.Event{
			Type:    events.EventTaskRetrying,
			RunID:   rs.id,
			TaskID:  task.ID,
			Attempt: attempt,
			Backoff: backoff,
			Error:   err.Error(),
			Message: fmt.Sprintf("retrying in %v", backoff),
		})

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			o.cancelTask(rs, task.ID)
			return
		}
	}

	cancelled, err := rs.sched.MarkFailed(task.ID, lastErr.Error())
	if err != nil {
		log.Printf("[orchestrator] WARNING: failed to mark task %s failed: %v", task.ID, err)
		return
	}
	log.Printf("[orchestrator] task %s failed after %d attempt(s): %v", task.ID, attempts, lastErr)
	msg := fmt.Sprintf("failed after %d attempt(s)", attempts)
	if len(cancelled) > 0 {
		log.Printf("[orchestrator] cancelled %d dependents of %s: %v", len(cancelled), task.ID, cancelled)
		msg += fmt.Sprintf("; cancelled %d dependent(s)", len(cancelled))
	}
	o.emit(events.Event{
		Type:     events.EventTaskFailed,
		RunID:    rs.id,
		TaskID:   task.ID,
		WorkerID: workerID,
		Attempt:  attempts,
		Final:    true,
		Error:    lastErr.Error(),
		Message:  msg,
	})
}

// cancelTask ends a running task as cancelled during pool-wide cancellation.
func (o *Orchestrator) cancelTask(rs *runState, id string) {
	if _, err := rs.sched.MarkCancelled(id, "run cancelled"); err != nil {
		o.logger.Log("[retry] cancel task %s: %v", id, err)
	}
}

func (o *Orchestrator) emitProgress(rs *runState) {
	p := rs.sched.Progress()
	o.emit(events.Event{
		Type:     events.EventProgress,
		RunID:    rs.id,
		Progress: &p,
	})
}
