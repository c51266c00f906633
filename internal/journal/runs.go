package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// RunStatusRunning marks a run that has not finished (or whose process died).
const RunStatusRunning = "running"

// Run is one journaled dispatch run.
type Run struct {
	ID         string
	GraphID    string
	GraphPath  string
	Goal       string
	Status     string
	PID        int
	Total      int
	Completed  int
	Failed     int
	Cancelled  int
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

// StartRun records a new run with status running.
func (db *DB) StartRun(r *Run) error {
	if r.Status == "" {
		r.Status = RunStatusRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.PID == 0 {
		r.PID = os.Getpid()
	}
	_, err := db.exec(`
		INSERT INTO runs (id, graph_id, graph_path, goal, status, pid, total, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.GraphID, r.GraphPath, r.Goal, r.Status, r.PID, r.Total, formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateProgress stores the latest progress tally of a run.
func (db *DB) UpdateProgress(runID string, p models.Progress) error {
	_, err := db.exec(`
		UPDATE runs SET total = ?, completed = ?, failed = ?, cancelled = ? WHERE id = ?
	`, p.Total, p.Completed, p.Failed, p.Cancelled, runID)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return nil
}

// FinishRun stores the final status and tally of a run.
func (db *DB) FinishRun(runID, status string, p models.Progress, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := db.exec(`
		UPDATE runs
		SET status = ?, total = ?, completed = ?, failed = ?, cancelled = ?, finished_at = ?, error = ?
		WHERE id = ?
	`, status, p.Total, p.Completed, p.Failed, p.Cancelled, formatTime(time.Now()), errText, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns a single run.
func (db *DB) GetRun(id string) (*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT id, graph_id, graph_path, goal, status, pid, total, completed, failed, cancelled, started_at, finished_at, error
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT id, graph_id, graph_path, goal, status, pid, total, completed, failed, cancelled, started_at, finished_at, error
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// PurgeOldRuns deletes runs (and their events) started before olderThan ago.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                       Run
		graphPath, goal, errTxt sql.NullString
		startedAt               string
		finishedAt              sql.NullString
	)
	err := s.Scan(&r.ID, &r.GraphID, &graphPath, &goal, &r.Status, &r.PID,
		&r.Total, &r.Completed, &r.Failed, &r.Cancelled, &startedAt, &finishedAt, &errTxt)
	if err != nil {
		return nil, err
	}
	r.GraphPath = graphPath.String
	r.Goal = goal.String
	r.Error = errTxt.String
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}
