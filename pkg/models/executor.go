package models

// ExecutorType identifies a concrete executor backend.
type ExecutorType string

const (
	// ExecutorClaude runs tasks through the Anthropic Messages API.
	ExecutorClaude ExecutorType = "claude"
	// ExecutorCodex runs tasks through the codex command-line agent.
	ExecutorCodex ExecutorType = "codex"
)

// ExecutorTypes lists every concrete backend in a stable order.
var ExecutorTypes = []ExecutorType{ExecutorClaude, ExecutorCodex}

// Valid returns true if the executor type is a known backend.
func (t ExecutorType) Valid() bool {
	switch t {
	case ExecutorClaude, ExecutorCodex:
		return true
	default:
		return false
	}
}

// ExecutorPreference is a task's requested backend.
type ExecutorPreference string

const (
	// PreferClaude requests the claude backend.
	PreferClaude ExecutorPreference = "claude"
	// PreferCodex requests the codex backend.
	PreferCodex ExecutorPreference = "codex"
	// PreferAny lets the pool mode decide.
	PreferAny ExecutorPreference = "any"
)

// Valid returns true if the preference is a known value.
// The empty preference is treated as PreferAny.
func (p ExecutorPreference) Valid() bool {
	switch p {
	case PreferClaude, PreferCodex, PreferAny, "":
		return true
	default:
		return false
	}
}

// PoolMode selects which backends a worker pool may use.
type PoolMode string

const (
	// PoolModeClaude routes every task to the claude backend.
	PoolModeClaude PoolMode = "claude"
	// PoolModeCodex routes every task to the codex backend.
	PoolModeCodex PoolMode = "codex"
	// PoolModeHybrid honours concrete preferences and sends "any" to claude.
	PoolModeHybrid PoolMode = "hybrid"
)

// Valid returns true if the mode is a known value.
func (m PoolMode) Valid() bool {
	switch m {
	case PoolModeClaude, PoolModeCodex, PoolModeHybrid:
		return true
	default:
		return false
	}
}

// ResolveExecutor maps a task preference and pool mode to the backend that runs it.
func ResolveExecutor(pref ExecutorPreference, mode PoolMode) ExecutorType {
	switch mode {
	case PoolModeClaude:
		return ExecutorClaude
	case PoolModeCodex:
		return ExecutorCodex
	}
	switch pref {
	case PreferCodex:
		return ExecutorCodex
	default:
		return ExecutorClaude
	}
}
