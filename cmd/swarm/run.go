package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/internal/exec"
	"github.com/ShayCichocki/swarm/internal/graphfile"
	"github.com/ShayCichocki/swarm/internal/journal"
	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/internal/pool"
	"github.com/ShayCichocki/swarm/internal/signals"
	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	runGoal        string
	runRepo        string
	runRepoContext string
	runMode        string
	runMaxWorkers  int
	runNoJournal   bool
	runID          string
	runDebug       bool
	runQuiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Dispatch a task graph across the worker pool",
	Long: `Run loads a task graph and dispatches it until every task is finished.

Tasks start as soon as their dependencies complete, up to the graph's width
or --max-workers, whichever is smaller. Failed attempts are retried with
linear backoff; a task that exhausts its attempts fails, and everything that
depends on it is cancelled.

Press Ctrl+C or run 'swarm stop' from the same directory to cancel a run.
In-flight attempts are cancelled and unfinished tasks end as cancelled.

Examples:
  swarm run plan.yaml
  swarm run plan.hcl --goal "Add rate limiting" --mode codex
  swarm run plan.yaml --max-workers 2 --repo-context ARCHITECTURE.md`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runGoal, "goal", "", "Override the graph file's goal")
	runCmd.Flags().StringVar(&runRepo, "repo", "", "Repository the agents work in (default: current directory)")
	runCmd.Flags().StringVar(&runRepoContext, "repo-context", "", "File whose contents are handed to every task as repository context")
	runCmd.Flags().StringVar(&runMode, "mode", "", "Pool mode: claude, codex or hybrid (default from config)")
	runCmd.Flags().IntVar(&runMaxWorkers, "max-workers", 0, "Maximum concurrent tasks (default from config)")
	runCmd.Flags().BoolVar(&runNoJournal, "no-journal", false, "Do not record the run in the journal")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Use this run ID instead of a generated one")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Write a debug log to .swarm/logs")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only print the summary")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	repoPath, err := resolveRepo(runRepo)
	if err != nil {
		return err
	}

	opts := graphfile.Options{Goal: runGoal}
	doc, err := graphfile.Load(args[0], opts)
	if err != nil {
		return err
	}

	var repoContext string
	if runRepoContext != "" {
		data, err := os.ReadFile(runRepoContext)
		if err != nil {
			return fmt.Errorf("read repo context: %w", err)
		}
		repoContext = string(data)
	}

	runner := exec.NewRunner()
	mode := cfg.PoolMode()
	for _, problem := range checkBackends(cfg, mode, runner) {
		printStatus("⚠", problem, color.FgYellow)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\nReceived interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// A stale kill file from an earlier stop would end this run at once.
	if err := signals.Clear(repoPath); err != nil {
		log.Printf("[run] WARNING: failed to clear kill signal: %v", err)
	}
	watcher, err := signals.Watch(repoPath, func() {
		fmt.Println("\nReceived stop signal, shutting down...")
		cancel()
	})
	if err != nil {
		log.Printf("[run] WARNING: stop signal watcher unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	id := runID
	if id == "" {
		id = uuid.New().String()
	}

	var db *journal.DB
	if cfg.Journal.Enabled && !runNoJournal {
		db = openJournal(resolveUnder(repoPath, cfg.Journal.Path), &journal.Run{
			ID:        id,
			GraphID:   doc.Graph.ID,
			GraphPath: doc.Path,
			Goal:      doc.Goal,
			Total:     len(doc.Graph.Nodes),
		})
		if db != nil {
			defer db.Close()
		}
	}

	var logger *orchestrator.DebugLogger
	if runDebug || cfg.Debug.Enabled {
		if cfg.Debug.LogPath != "" {
			logger, err = orchestrator.NewDebugLogger(resolveUnder(repoPath, cfg.Debug.LogPath))
			if err != nil {
				log.Printf("[run] WARNING: debug log unavailable: %v", err)
			}
		} else {
			logger = orchestrator.NewDebugLoggerForRepo(repoPath)
		}
		defer logger.Close()
	}

	p := cfg.Policy()
	emitter := events.NewEmitter(p.Loop.EventBufferSize)
	var sinks []events.Sink
	if !runQuiet {
		sinks = append(sinks, events.SinkFunc(printEvent))
	}
	if db != nil {
		sinks = append(sinks, journal.NewRecorder(db))
	}
	consumed := consumeEvents(emitter, events.Multi(sinks...))

	// Worker ceiling and timeouts come from the policy when the run starts.
	workers := pool.New(pool.Config{
		Mode:   mode,
		Events: emitter,
	}, newExecutorFactory(ctx, cfg, repoPath, runner))

	orch, err := orchestrator.New(
		orchestrator.RequiredConfig{Pool: workers},
		orchestrator.WithPolicy(p),
		orchestrator.WithLogger(logger),
		orchestrator.WithEvents(emitter),
		orchestrator.WithRunID(id),
		orchestrator.WithUserGoal(doc.Goal),
		orchestrator.WithRepoContext(repoContext),
	)
	if err != nil {
		workers.Shutdown()
		emitter.Close()
		<-consumed
		return err
	}

	if !runQuiet {
		fmt.Printf("Run %s: %d tasks from %s (mode %s)\n", id, len(doc.Graph.Nodes), doc.Path, mode)
	}

	res, runErr := orch.Run(ctx, doc.Graph)

	if err := workers.Shutdown(); err != nil {
		log.Printf("[run] WARNING: pool shutdown: %v", err)
	}
	emitter.Close()
	<-consumed

	status := "error"
	var progress models.Progress
	if res != nil {
		status = string(res.Verdict())
		progress = res.Progress
	}
	if db != nil {
		if err := db.FinishRun(id, status, progress, runErr); err != nil {
			log.Printf("[run] WARNING: failed to finish journal run: %v", err)
		}
	}

	if res == nil {
		return runErr
	}
	printSummary(os.Stdout, res)

	switch {
	case errors.Is(runErr, context.Canceled):
		return fmt.Errorf("run %s cancelled", id)
	case runErr != nil:
		return runErr
	case !res.Succeeded():
		return fmt.Errorf("run %s %s", id, res.Verdict())
	}
	return nil
}

// applyRunFlags layers the run flags over the loaded configuration.
func applyRunFlags(cfg *config.Config) error {
	if runMode != "" {
		cfg.Pool.Mode = runMode
	}
	if runMaxWorkers != 0 {
		cfg.Pool.MaxWorkers = runMaxWorkers
	}
	return cfg.Validate()
}

// resolveRepo returns the absolute repository path, defaulting to the working directory.
func resolveRepo(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("repo path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repo path %s is not a directory", abs)
	}
	return abs, nil
}

// resolveUnder makes a relative path relative to root.
func resolveUnder(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// openJournal opens the journal and records r as started. A journal that
// cannot be opened or written is logged and skipped; the run goes on.
func openJournal(path string, r *journal.Run) *journal.DB {
	db, err := journal.Open(path)
	if err != nil {
		log.Printf("[run] WARNING: journal unavailable: %v", err)
		return nil
	}
	if ids, err := db.RecoverInterrupted(); err != nil {
		log.Printf("[run] WARNING: failed to recover interrupted runs: %v", err)
	} else if len(ids) > 0 {
		log.Printf("[run] marked %d interrupted run(s) in the journal", len(ids))
	}
	if err := db.StartRun(r); err != nil {
		log.Printf("[run] WARNING: failed to journal run: %v", err)
		db.Close()
		return nil
	}
	return db
}

// consumeEvents drains the emitter into sink until the emitter is closed.
// The returned channel is closed once the last event has been handled.
func consumeEvents(em *events.Emitter, sink events.Sink) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range em.Events() {
			sink.Emit(e)
		}
	}()
	return done
}

func printEvent(e events.Event) {
	if line := formatEvent(e); line != "" {
		fmt.Println(line)
	}
}
