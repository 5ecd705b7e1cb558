package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sprintgym/internal/logging"
)

// vllmRuntime speaks the OpenAI-compatible chat completions API that a local
// vLLM server exposes. No API key is required by default.
type vllmRuntime struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

const defaultVLLMEndpoint = "http://localhost:8000/v1"

func newVLLMRuntime(cfg Config, _ []Tool) (Runtime, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultVLLMEndpoint
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("local_vllm runtime requires a model name")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &vllmRuntime{
		endpoint:   endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ExecuteTask implements Runtime over the /chat/completions endpoint.
func (v *vllmRuntime) ExecuteTask(ctx context.Context, systemPrompt, userMessage string, maxTurns int) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.httpClient.Timeout)
		defer cancel()
	}

	start := time.Now()
	reqBody := chatRequest{
		Model:       v.model,
		MaxTokens:   v.maxTokens,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vllm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build vllm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		logging.RuntimeError("[vllm] request failed: %v", err)
		return &Result{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read response: %v", err)}, nil
	}

	if resp.StatusCode != http.StatusOK {
		logging.RuntimeError("[vllm] status %d: %s", resp.StatusCode, truncateBody(body))
		return &Result{Success: false, Error: fmt.Sprintf("vllm returned %d: %s", resp.StatusCode, truncateBody(body))}, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid vllm response: %v", err)}, nil
	}
	if parsed.Error != nil {
		return &Result{Success: false, Error: parsed.Error.Message}, nil
	}
	if len(parsed.Choices) == 0 {
		return &Result{Success: false, Error: "vllm returned no choices"}, nil
	}

	logging.RuntimeDebug("[vllm] model=%s tokens=%d+%d elapsed=%s",
		v.model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, time.Since(start))

	return &Result{
		Success: true,
		Content: parsed.Choices[0].Message.Content,
		Turns:   1,
		Metadata: map[string]interface{}{
			"model":             v.model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"finish_reason":     parsed.Choices[0].FinishReason,
		},
	}, nil
}

func truncateBody(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
