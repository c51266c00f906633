package journal

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// RunStatusInterrupted marks a run whose process exited before finishing it.
const RunStatusInterrupted = "interrupted"

// RecoverInterrupted marks every running run whose process is gone as
// interrupted and returns their IDs.
func (db *DB) RecoverInterrupted() ([]string, error) {
	type candidate struct {
		id  string
		pid int
	}

	db.mu.RLock()
	rows, err := db.conn.Query(`SELECT id, pid FROM runs WHERE status = ?`, RunStatusRunning)
	if err != nil {
		db.mu.RUnlock()
		return nil, fmt.Errorf("list running runs: %w", err)
	}
	var running []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.pid); err != nil {
			rows.Close()
			db.mu.RUnlock()
			return nil, fmt.Errorf("scan running run: %w", err)
		}
		running = append(running, c)
	}
	err = rows.Err()
	rows.Close()
	db.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("list running runs: %w", err)
	}

	var recovered []string
	for _, c := range running {
		if isProcessAlive(c.pid) {
			continue
		}
		_, err := db.exec(`
			UPDATE runs SET status = ?, finished_at = ?, error = ?
			WHERE id = ? AND status = ?
		`, RunStatusInterrupted, formatTime(time.Now()),
			fmt.Sprintf("process %d exited before the run finished", c.pid),
			c.id, RunStatusRunning)
		if err != nil {
			return recovered, fmt.Errorf("mark run %s interrupted: %w", c.id, err)
		}
		recovered = append(recovered, c.id)
	}
	return recovered, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 only checks that the process exists.
	return process.Signal(syscall.Signal(0)) == nil
}
