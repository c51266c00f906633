// Package policy defines configurable policy parameters for dispatch behavior.
// Backoff and timeout values live here so they can be tuned without touching
// the dispatch loop.
package policy

import (
	"errors"
	"time"
)

// Config contains all configurable policy parameters for the orchestrator.
type Config struct {
	// Retry policies
	Retry RetryPolicy

	// Pool sizing and timeout policies
	Pool PoolPolicy

	// Loop policies
	Loop LoopPolicy
}

// RetryPolicy controls how failed attempts are retried.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts per task, including the first.
	MaxRetries int

	// BackoffUnit is multiplied by the attempt number to get the delay
	// before the next attempt.
	BackoffUnit time.Duration
}

// PoolPolicy controls worker pool sizing and timeouts. Run pushes it into
// the pool through SetLimits, overriding the pool's own configuration.
type PoolPolicy struct {
	// MaxWorkers caps concurrency regardless of graph width.
	MaxWorkers int

	// TaskTimeout overrides every task's timeout when positive. Zero uses the
	// task's estimated duration, then DefaultTaskTimeout.
	TaskTimeout time.Duration

	// DefaultTaskTimeout applies to tasks with no estimate.
	DefaultTaskTimeout time.Duration

	// WaitTimeout bounds how long a dispatch waits for an idle worker.
	WaitTimeout time.Duration
}

// LoopPolicy controls run loop behavior.
type LoopPolicy struct {
	// EventBufferSize is the buffer size for event channels.
	EventBufferSize int
}

// Default returns the default policy configuration.
func Default() *Config {
	return &Config{
		Retry: RetryPolicy{
			MaxRetries:  3,
			BackoffUnit: time.Second,
		},
		Pool: PoolPolicy{
			MaxWorkers:         4,
			DefaultTaskTimeout: 15 * time.Minute,
			WaitTimeout:        5 * time.Minute,
		},
		Loop: LoopPolicy{
			EventBufferSize: 100,
		},
	}
}

// Validate checks that policy values are within acceptable ranges.
// Out-of-range values are reset to their defaults; a negative timeout is an error.
func (c *Config) Validate() error {
	d := Default()
	if c.Retry.MaxRetries < 1 {
		c.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if c.Retry.BackoffUnit < 0 {
		c.Retry.BackoffUnit = d.Retry.BackoffUnit
	}
	if c.Pool.MaxWorkers < 1 {
		c.Pool.MaxWorkers = d.Pool.MaxWorkers
	}
	if c.Pool.TaskTimeout < 0 {
		return errors.New("pool task timeout must not be negative")
	}
	if c.Pool.DefaultTaskTimeout <= 0 {
		c.Pool.DefaultTaskTimeout = d.Pool.DefaultTaskTimeout
	}
	if c.Pool.WaitTimeout <= 0 {
		c.Pool.WaitTimeout = d.Pool.WaitTimeout
	}
	if c.Loop.EventBufferSize < 1 {
		c.Loop.EventBufferSize = d.Loop.EventBufferSize
	}
	return nil
}
