package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	// ErrNoWorkerAvailable is returned when no worker freed up before the wait timeout.
	ErrNoWorkerAvailable = errors.New("no worker available")
	// ErrExecutorUnavailable is returned when a backend cannot accept work.
	ErrExecutorUnavailable = errors.New("executor unavailable")
	// ErrTaskTimeout is returned when an execution exceeds its effective timeout.
	ErrTaskTimeout = errors.New("task timed out")
	// ErrPoolCancelled is returned once the pool-wide cancellation signal has fired.
	ErrPoolCancelled = errors.New("pool cancelled")
)

// ExecutorError wraps a failure reported by an executor backend.
type ExecutorError struct {
	ExecutorType models.ExecutorType
	WorkerID     string
	TaskID       string
	Err          error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("%s executor on worker %s failed task %s: %v", e.ExecutorType, e.WorkerID, e.TaskID, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is a cancellation, either pool-wide or
// from the caller's context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrPoolCancelled) || errors.Is(err, context.Canceled)
}

// IsRetryable reports whether a failed attempt may be retried.
// Timeouts, executor failures and worker exhaustion are retryable; cancellation is not.
func IsRetryable(err error) bool {
	if err == nil || IsCancelled(err) {
		return false
	}
	return true
}
