package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"sprintgym/internal/logging"
)

const (
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// geminiRuntime executes tasks against the Generative Language API's
// generateContent endpoint.
type geminiRuntime struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

func newGeminiRuntime(cfg Config, _ []Tool) (Runtime, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini runtime requires an API key (config or GEMINI_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &geminiRuntime{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExecuteTask implements Runtime via a single generateContent call.
func (g *geminiRuntime) ExecuteTask(ctx context.Context, systemPrompt, userMessage string, maxTurns int) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.httpClient.Timeout)
		defer cancel()
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userMessage}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.1,
			MaxOutputTokens: g.maxTokens,
		},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		logging.RuntimeError("[gemini] request failed: %v", err)
		return &Result{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read response: %v", err)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		logging.RuntimeError("[gemini] status %d: %s", resp.StatusCode, truncateBody(body))
		return &Result{Success: false, Error: fmt.Sprintf("gemini returned %d: %s", resp.StatusCode, truncateBody(body))}, nil
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid gemini response: %v", err)}, nil
	}
	if parsed.Error != nil {
		return &Result{Success: false, Error: parsed.Error.Message}, nil
	}
	if len(parsed.Candidates) == 0 {
		return &Result{Success: false, Error: "gemini returned no candidates"}, nil
	}

	var content string
	for _, part := range parsed.Candidates[0].Content.Parts {
		content += part.Text
	}

	logging.RuntimeDebug("[gemini] model=%s tokens=%d+%d elapsed=%s",
		g.model, parsed.UsageMetadata.PromptTokenCount, parsed.UsageMetadata.CandidatesTokenCount, time.Since(start))

	return &Result{
		Success: true,
		Content: content,
		Turns:   1,
		Metadata: map[string]interface{}{
			"model":             g.model,
			"prompt_tokens":     parsed.UsageMetadata.PromptTokenCount,
			"completion_tokens": parsed.UsageMetadata.CandidatesTokenCount,
			"finish_reason":     parsed.Candidates[0].FinishReason,
		},
	}, nil
}
