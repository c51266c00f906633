package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger writes timestamped trace lines for a run. A nil or zero
// DebugLogger discards everything, so callers never need to check.
type DebugLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
}

// NewDebugLogger appends to the file at logPath, creating parent
// directories as needed. An empty path yields a logger that discards.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &DebugLogger{w: f, closer: f}
	l.Log("=== swarm debug log started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// NewDebugLoggerForRepo logs to .swarm/logs/swarm-debug.log under repoPath.
// It falls back to discarding if the file cannot be opened.
func NewDebugLoggerForRepo(repoPath string) *DebugLogger {
	l, err := NewDebugLogger(filepath.Join(repoPath, ".swarm", "logs", "swarm-debug.log"))
	if err != nil {
		return &DebugLogger{}
	}
	return l
}

// NewWriterLogger logs to w. The logger does not close w.
func NewWriterLogger(w io.Writer) *DebugLogger {
	return &DebugLogger{w: w}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes one line prefixed with the wall-clock time.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}

	now := time.Now
	if l.now != nil {
		now = l.now
	}
	fmt.Fprintf(l.w, "[%s] %s\n", now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	if f, ok := l.w.(*os.File); ok {
		f.Sync()
	}
}

// Close closes the log file if the logger owns one.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}

	err := l.closer.Close()
	l.w, l.closer = nil, nil
	return err
}
