package policy

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()

	if c.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", c.Retry.MaxRetries)
	}
	if c.Retry.BackoffUnit != time.Second {
		t.Errorf("BackoffUnit = %v, want 1s", c.Retry.BackoffUnit)
	}
	if c.Pool.TaskTimeout != 0 {
		t.Errorf("TaskTimeout = %v, want no override", c.Pool.TaskTimeout)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateResetsOutOfRange(t *testing.T) {
	c := &Config{
		Retry: RetryPolicy{MaxRetries: 0, BackoffUnit: -time.Second},
		Pool:  PoolPolicy{MaxWorkers: -1},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	d := Default()
	if c.Retry != d.Retry {
		t.Errorf("Retry = %+v, want %+v", c.Retry, d.Retry)
	}
	if c.Pool.MaxWorkers != d.Pool.MaxWorkers || c.Pool.WaitTimeout != d.Pool.WaitTimeout {
		t.Errorf("Pool = %+v, want defaults", c.Pool)
	}
	if c.Loop.EventBufferSize != d.Loop.EventBufferSize {
		t.Errorf("EventBufferSize = %d, want %d", c.Loop.EventBufferSize, d.Loop.EventBufferSize)
	}
}

func TestValidateKeepsZeroBackoff(t *testing.T) {
	c := Default()
	c.Retry.BackoffUnit = 0

	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Retry.BackoffUnit != 0 {
		t.Errorf("zero backoff should be allowed, got %v", c.Retry.BackoffUnit)
	}
}

func TestValidateRejectsNegativeTaskTimeout(t *testing.T) {
	c := Default()
	c.Pool.TaskTimeout = -time.Second

	if err := c.Validate(); err == nil {
		t.Error("expected error for negative task timeout")
	}
}
