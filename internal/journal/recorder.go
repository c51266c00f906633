package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ShayCichocki/swarm/internal/events"
)

// Recorder is an events.Sink that appends events to the journal. Progress
// events update the run row instead of being stored.
//
// Writes are synchronous. Put an events.Emitter in front of it when events
// come from hot paths.
type Recorder struct {
	db *DB
}

// NewRecorder creates a recorder writing to db.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db}
}

// Emit stores e. Failures are logged, never returned.
func (r *Recorder) Emit(e events.Event) {
	if err := r.record(e); err != nil {
		log.Printf("[journal] WARNING: failed to record %s event: %v", e.Type, err)
	}
}

func (r *Recorder) record(e events.Event) error {
	if e.RunID == "" {
		return nil
	}
	e = events.Stamp(e)

	if e.Type == events.EventProgress {
		if e.Progress == nil {
			return nil
		}
		return r.db.UpdateProgress(e.RunID, *e.Progress)
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = r.db.exec(`
		INSERT INTO events (run_id, type, task_id, worker_id, attempt, message, error, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, string(e.Type), e.TaskID, e.WorkerID, e.Attempt, e.Message, e.Error, string(payload), formatTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns a run's stored events in the order they were recorded.
// A non-empty taskID limits the result to that task.
func (db *DB) Events(runID, taskID string) ([]events.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var (
		rows *sql.Rows
		err  error
	)
	if taskID == "" {
		rows, err = db.conn.Query(`SELECT payload FROM events WHERE run_id = ? ORDER BY id`, runID)
	} else {
		rows, err = db.conn.Query(`SELECT payload FROM events WHERE run_id = ? AND task_id = ? ORDER BY id`, runID, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e events.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Verify Recorder implements events.Sink at compile time.
var _ events.Sink = (*Recorder)(nil)
