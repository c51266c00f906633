// Package orchestrator drives a validated task graph to completion.
//
// The dispatch loop asks the scheduler for ready tasks, runs each one on a
// worker from the pool, and feeds the outcome back into the scheduler:
//   - Concurrency is the graph's width capped by the policy's MaxWorkers.
//     It becomes the pool's per-type ceiling, and the policy's timeouts
//     replace the pool's own for the run.
//   - A failed attempt is retried with linear backoff (attempt × BackoffUnit)
//     until MaxRetries attempts have been made. The task then fails, every
//     transitive dependent is cancelled, and a task:failed event marked
//     Final is emitted.
//   - Cancelling the context, or calling Stop, cancels in-flight attempts
//     and ends every unfinished task as cancelled.
//
// Example usage:
//
//	p := pool.New(pool.Config{Mode: models.PoolModeHybrid}, factory)
//	o, err := orchestrator.New(orchestrator.RequiredConfig{Pool: p},
//		orchestrator.WithUserGoal("Add a health check"))
//	if err != nil {
//		return err
//	}
//	res, err := o.Run(ctx, g)
package orchestrator
