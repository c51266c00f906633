// Package claude runs tasks through the Anthropic Messages API, directly or
// through AWS Bedrock.
package claude

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultMaxTokens caps a single task response.
const DefaultMaxTokens = 8192

// Config contains configuration for the claude backend.
type Config struct {
	// Model is the Claude model to use. Empty selects Sonnet 4.5.
	Model anthropic.Model
	// MaxTokens caps the response length.
	MaxTokens int64
	// APIKey is the Anthropic API key. Ignored when UseBedrock is set.
	APIKey string
	// UseBedrock routes requests through AWS Bedrock.
	UseBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// RequestOptions are appended to the client options.
	RequestOptions []option.RequestOption
}

// newClient builds the SDK client. ok is false when there are no credentials.
func newClient(ctx context.Context, cfg Config) (client anthropic.Client, model anthropic.Model, ok bool, err error) {
	var opts []option.RequestOption

	model = cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}

	if cfg.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return client, model, false, fmt.Errorf("load AWS config: %w", err)
		}
		opts = append(opts, bedrock.WithConfig(awsCfg))
		model = translateModelForBedrock(model)
	} else {
		if cfg.APIKey == "" {
			return client, model, false, nil
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	// Retries belong to the dispatch loop; the SDK would otherwise retry too.
	opts = append(opts, option.WithMaxRetries(0))
	opts = append(opts, cfg.RequestOptions...)
	return anthropic.NewClient(opts...), model, true, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profiles: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	// Already a Bedrock ID or a custom model.
	return model
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
