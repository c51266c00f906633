package models

import "testing"

func TestResolveExecutor(t *testing.T) {
	tests := []struct {
		pref ExecutorPreference
		mode PoolMode
		want ExecutorType
	}{
		{PreferAny, PoolModeClaude, ExecutorClaude},
		{PreferCodex, PoolModeClaude, ExecutorClaude},
		{PreferClaude, PoolModeCodex, ExecutorCodex},
		{PreferAny, PoolModeCodex, ExecutorCodex},
		{PreferClaude, PoolModeHybrid, ExecutorClaude},
		{PreferCodex, PoolModeHybrid, ExecutorCodex},
		{PreferAny, PoolModeHybrid, ExecutorClaude},
		{"", PoolModeHybrid, ExecutorClaude},
	}

	for _, tt := range tests {
		t.Run(string(tt.pref)+"/"+string(tt.mode), func(t *testing.T) {
			if got := ResolveExecutor(tt.pref, tt.mode); got != tt.want {
				t.Errorf("ResolveExecutor(%q, %q) = %q, want %q", tt.pref, tt.mode, got, tt.want)
			}
		})
	}
}

func TestExecutorType_Valid(t *testing.T) {
	for _, et := range ExecutorTypes {
		if !et.Valid() {
			t.Errorf("%q should be valid", et)
		}
	}
	if ExecutorType("any").Valid() {
		t.Error(`"any" is a preference, not an executor type`)
	}
}

func TestExecutorPreference_Valid(t *testing.T) {
	for _, p := range []ExecutorPreference{PreferClaude, PreferCodex, PreferAny, ""} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if ExecutorPreference("gpt").Valid() {
		t.Error(`"gpt" should be invalid`)
	}
}

func TestPoolMode_Valid(t *testing.T) {
	if !PoolModeHybrid.Valid() {
		t.Error("hybrid should be valid")
	}
	if PoolMode("").Valid() {
		t.Error("empty mode should be invalid")
	}
}

func TestWorkerStatus_Valid(t *testing.T) {
	for _, s := range []WorkerStatus{WorkerStatusIdle, WorkerStatusRunning, WorkerStatusCompleted, WorkerStatusError} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if WorkerStatus("busy").Valid() {
		t.Error(`"busy" should be invalid`)
	}
}
