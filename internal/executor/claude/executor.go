package claude

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ShayCichocki/swarm/internal/executor"
	"github.com/ShayCichocki/swarm/internal/pool"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// ErrNoCredentials is returned by Run when neither an API key nor Bedrock is configured.
var ErrNoCredentials = errors.New("claude backend has no credentials")

// messenger is the slice of the SDK's message service the executor uses.
type messenger interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Executor runs each task as a single Messages API call.
type Executor struct {
	messages  messenger
	model     anthropic.Model
	maxTokens int64
	tracker   *TokenTracker
}

// New creates a claude executor. Missing credentials are not an error; the
// executor reports itself unavailable instead.
func New(ctx context.Context, cfg Config) (*Executor, error) {
	client, model, ok, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		model:     model,
		maxTokens: cfg.MaxTokens,
		tracker:   &TokenTracker{},
	}
	if e.maxTokens <= 0 {
		e.maxTokens = DefaultMaxTokens
	}
	if ok {
		e.messages = &client.Messages
	}
	return e, nil
}

// IsAvailable reports whether the executor has credentials.
func (e *Executor) IsAvailable() bool {
	return e.messages != nil
}

// Model returns the configured model name.
func (e *Executor) Model() anthropic.Model {
	return e.model
}

// Tracker returns the token tracker for this executor.
func (e *Executor) Tracker() *TokenTracker {
	return e.tracker
}

// Run sends the task prompt and parses the closing status block of the answer.
func (e *Executor) Run(ctx context.Context, task *models.TaskNode, tc models.TaskContext) (*pool.ExecutionResult, error) {
	if e.messages == nil {
		return nil, ErrNoCredentials
	}

	resp, err := e.messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: executor.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(executor.BuildPrompt(task, tc))),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("claude messages call for task %s: %w", task.ID, err)
	}

	e.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	report := executor.Report(task, models.ExecutorClaude, text)
	if resp.StopReason == anthropic.StopReasonMaxTokens && report.Success {
		report.Success = false
		report.Error = fmt.Sprintf("response truncated at %d tokens", e.maxTokens)
	}

	return &pool.ExecutionResult{
		Success: report.Success,
		Report:  report,
		Error:   report.Error,
	}, nil
}

// Verify Executor implements pool.Executor at compile time.
var _ pool.Executor = (*Executor)(nil)
