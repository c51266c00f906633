package orchestrator

import (
	"github.com/ShayCichocki/swarm/internal/events"
	"github.com/ShayCichocki/swarm/internal/orchestrator/policy"
	"github.com/ShayCichocki/swarm/internal/pool"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Pool runs task attempts on workers.
	Pool *pool.Pool
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	policyConfig *policy.Config
	logger       *DebugLogger
	events       events.Sink
	runID        string
	userGoal     string
	repoContext  string
}

// WithPolicy sets the policy configuration.
func WithPolicy(p *policy.Config) Option {
	return func(o *orchestratorOptions) { o.policyConfig = p }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithEvents sets the sink that receives progress and retry events.
func WithEvents(s events.Sink) Option {
	return func(o *orchestratorOptions) { o.events = s }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(o *orchestratorOptions) { o.runID = id }
}

// WithUserGoal sets the goal handed to executors in every task context.
func WithUserGoal(goal string) Option {
	return func(o *orchestratorOptions) { o.userGoal = goal }
}

// WithRepoContext sets free-form repository context handed to executors.
func WithRepoContext(rc string) Option {
	return func(o *orchestratorOptions) { o.repoContext = rc }
}
