// Package signals lets another process stop a run by dropping a file into
// .swarm/signals. Creating or writing the kill file fires the kill callback
// once.
package signals

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// KillFile is the signal file name that stops a run.
const KillFile = "kill"

// pollInterval is used when no filesystem watcher can be created.
const pollInterval = 500 * time.Millisecond

// Dir returns the signals directory for a repository.
func Dir(repoPath string) string {
	return filepath.Join(repoPath, ".swarm", "signals")
}

// Watcher watches the signals directory for the kill file.
type Watcher struct {
	dir    string
	onKill func()

	mu     sync.Mutex
	killed bool
	once   sync.Once

	watcher *fsnotify.Watcher
	done    chan struct{}
	exited  chan struct{}
	closed  sync.Once
}

// Watch starts watching repoPath's signals directory. onKill runs at most
// once, from the watcher goroutine. A kill file left over from an earlier
// run must be removed with Clear before calling Watch.
func Watch(repoPath string, onKill func()) (*Watcher, error) {
	dir := Dir(repoPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:    dir,
		onKill: onKill,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(dir); err != nil {
			watcher.Close()
		} else {
			w.watcher = watcher
		}
	}
	if w.watcher == nil {
		log.Printf("[signals] WARNING: file watcher unavailable, polling %s: %v", dir, err)
		go w.poll()
	} else {
		go w.watch()
	}

	// The file may have appeared before the watch was registered.
	if w.exists() {
		w.fire()
	}
	return w, nil
}

func (w *Watcher) watch() {
	defer close(w.exited)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == KillFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.fire()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[signals] watcher error: %v", err)
		}
	}
}

func (w *Watcher) poll() {
	defer close(w.exited)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if w.exists() {
				w.fire()
			}
		}
	}
}

func (w *Watcher) fire() {
	w.once.Do(func() {
		w.mu.Lock()
		w.killed = true
		w.mu.Unlock()
		log.Printf("[signals] kill signal received")
		if w.onKill != nil {
			w.onKill()
		}
	})
}

func (w *Watcher) exists() bool {
	_, err := os.Stat(filepath.Join(w.dir, KillFile))
	return err == nil
}

// Killed reports whether the kill signal fired. It also checks the file
// directly in case the watcher missed the event.
func (w *Watcher) Killed() bool {
	if w.exists() {
		w.fire()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.killed
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		<-w.exited
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}

// SendKill creates the kill file for repoPath.
func SendKill(repoPath string) error {
	dir := Dir(repoPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, KillFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes a leftover kill file for repoPath.
func Clear(repoPath string) error {
	err := os.Remove(filepath.Join(Dir(repoPath), KillFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
