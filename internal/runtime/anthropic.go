package runtime

import (
	"context"
	"fmt"
	"os"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sprintgym/internal/logging"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// anthropicRuntime executes tasks against the Anthropic Messages API using
// the official SDK.
type anthropicRuntime struct {
	client    sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

func newAnthropicRuntime(cfg Config, _ []Tool) (Runtime, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic runtime requires an API key (config or ANTHROPIC_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &anthropicRuntime{
		client:    sdk.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		timeout:   cfg.Timeout(),
	}, nil
}

// ExecuteTask implements Runtime via a single non-streaming Messages call.
func (a *anthropicRuntime) ExecuteTask(ctx context.Context, systemPrompt, userMessage string, maxTurns int) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userMessage)),
		},
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		logging.RuntimeError("[anthropic] messages.new failed: %v", err)
		return &Result{Success: false, Error: err.Error()}, nil
	}

	var content string
	var toolCalls []ToolCall
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			toolCalls = append(toolCalls, ToolCall{
				Tool: block.Name,
				Args: map[string]interface{}{"input": string(block.Input)},
			})
		}
	}

	logging.RuntimeDebug("[anthropic] model=%s tokens=%d+%d elapsed=%s",
		a.model, msg.Usage.InputTokens, msg.Usage.OutputTokens, time.Since(start))

	return &Result{
		Success:   true,
		Content:   content,
		Turns:     1,
		ToolCalls: toolCalls,
		Metadata: map[string]interface{}{
			"model":         a.model,
			"input_tokens":  msg.Usage.InputTokens,
			"output_tokens": msg.Usage.OutputTokens,
			"stop_reason":   string(msg.StopReason),
		},
	}, nil
}
