package events

import (
	"sync"
	"testing"
	"time"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter(10)

	e.Emit(Event{Type: EventTaskStarted, TaskID: "a"})
	e.Emit(Event{Type: EventTaskCompleted, TaskID: "a"})
	e.Close()

	var got []EventType
	for ev := range e.Events() {
		if ev.Timestamp.IsZero() {
			t.Error("event timestamp not set")
		}
		got = append(got, ev.Type)
	}

	if len(got) != 2 || got[0] != EventTaskStarted || got[1] != EventTaskCompleted {
		t.Errorf("got %v, want [task:started task:completed]", got)
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	e := NewEmitter(1)

	e.Emit(Event{Type: EventProgress})
	start := time.Now()
	e.Emit(Event{Type: EventProgress})

	if e.DroppedCount() != 1 {
		t.Errorf("DroppedCount() = %d, want 1", e.DroppedCount())
	}
	if elapsed := time.Since(start); elapsed < sendTimeout {
		t.Errorf("Emit dropped after %v, expected to wait at least %v", elapsed, sendTimeout)
	}
}

func TestEmitterCloseIsIdempotent(t *testing.T) {
	e := NewEmitter(1)
	e.Close()
	e.Close()

	// Emitting after close must not panic.
	e.Emit(Event{Type: EventProgress})
}

func TestEmitterPreservesTimestamp(t *testing.T) {
	e := NewEmitter(1)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e.Emit(Event{Type: EventProgress, Timestamp: ts})

	if got := (<-e.Events()).Timestamp; !got.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got, ts)
	}
}

func TestMulti(t *testing.T) {
	var mu sync.Mutex
	var a, b []EventType
	sinkA := SinkFunc(func(e Event) { mu.Lock(); a = append(a, e.Type); mu.Unlock() })
	sinkB := SinkFunc(func(e Event) { mu.Lock(); b = append(b, e.Type); mu.Unlock() })

	m := Multi(sinkA, nil, sinkB)
	m.Emit(Event{Type: EventWorkerCreated})

	if len(a) != 1 || len(b) != 1 {
		t.Errorf("fan-out failed: a=%v b=%v", a, b)
	}
}

func TestMultiDegenerateCases(t *testing.T) {
	if _, ok := Multi().(nop); !ok {
		t.Error("Multi() with no sinks should be Nop")
	}
	if _, ok := Multi(nil, nil).(nop); !ok {
		t.Error("Multi() with only nil sinks should be Nop")
	}

	called := false
	single := SinkFunc(func(Event) { called = true })
	Multi(single).Emit(Event{})
	if !called {
		t.Error("single sink was not called")
	}
}
