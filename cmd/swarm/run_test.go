package main

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/internal/journal"
)

func TestOpenJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".swarm", "journal.db")

	db := openJournal(path, &journal.Run{ID: "run-1", GraphID: "g", Total: 3})
	if db == nil {
		t.Fatal("expected journal to open")
	}
	r, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if r.Status != journal.RunStatusRunning || r.Total != 3 {
		t.Errorf("unexpected run %+v", r)
	}
	db.Close()

	// A duplicate run ID cannot be started, so the journal is skipped.
	if dup := openJournal(path, &journal.Run{ID: "run-1", GraphID: "g"}); dup != nil {
		dup.Close()
		t.Error("expected nil journal when the run cannot be recorded")
	}
}

func TestConsumeEventsDrainsUntilClose(t *testing.T) {
	em := events.NewEmitter(4)

	var mu sync.Mutex
	var got []string
	done := consumeEvents(em, events.SinkFunc(func(e events.Event) {
		mu.Lock()
		got = append(got, e.TaskID)
		mu.Unlock()
	}))

	for _, id := range []string{"a", "b", "c"} {
		em.Emit(events.Event{Type: events.EventTaskStarted, TaskID: id})
	}
	em.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("expected events in order, got %v", got)
	}
}
