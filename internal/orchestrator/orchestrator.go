package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/internal/orchestrator/policy"
	"github.com/ShayCichocki/swarm/internal/pool"
)

// ErrAlreadyRunning is returned when Run is called while another run is active.
var ErrAlreadyRunning = errors.New("orchestrator is already running")

// Orchestrator drives one graph at a time through a scheduler and a worker pool.
type Orchestrator struct {
	pool        *pool.Pool
	policy      *policy.Config
	logger      *DebugLogger
	events      events.Sink
	runID       string
	userGoal    string
	repoContext string

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
}

// New creates an Orchestrator with required config and optional settings.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Pool == nil {
		return nil, errors.New("orchestrator requires a worker pool")
	}

	o := &orchestratorOptions{}
	for _, opt := range opts {
		opt(o)
	}

	p := o.policyConfig
	if p == nil {
		p = policy.Default()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = NopLogger()
	}
	sink := o.events
	if sink == nil {
		sink = events.Nop()
	}

	return &Orchestrator{
		pool:        req.Pool,
		policy:      p,
		logger:      logger,
		events:      sink,
		runID:       o.runID,
		userGoal:    o.userGoal,
		repoContext: o.repoContext,
	}, nil
}

// Policy returns the validated policy in use.
func (o *Orchestrator) Policy() *policy.Config {
	return o.policy
}

// Stop cancels the active run. Running attempts are cancelled, and tasks that
// have not finished end as cancelled. Calling Stop before Run makes Run
// return immediately.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = true
	if o.cancel != nil {
		o.cancel()
	}
}

// begin marks a run as active and records its cancel function.
func (o *Orchestrator) begin(cancel context.CancelFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrAlreadyRunning
	}
	o.running = true
	o.cancel = cancel
	if o.stopped {
		cancel()
	}
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.cancel = nil
}

func (o *Orchestrator) emit(e events.Event) {
	o.events.Emit(events.Stamp(e))
}
