// Package runtime defines the pluggable LLM execution backend contract and
// the process-wide registry that maps runtime type names to factories.
// Backends: local_vllm (OpenAI-compatible HTTP), anthropic (official SDK),
// gemini (Generative Language HTTP API), and a deterministic mock for tests
// and offline episodes.
package runtime

import (
	"context"
	"time"
)

// Result is the structured output of one runtime task execution. A failed
// task is a Result with Success=false, not an orchestration error.
type Result struct {
	Success      bool                   `json:"success"`
	Content      string                 `json:"content"`
	Turns        int                    `json:"turns"`
	ToolCalls    []ToolCall             `json:"tool_calls,omitempty"`
	FilesChanged []string               `json:"files_changed,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall records one tool invocation made by the runtime.
type ToolCall struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Output string                 `json:"output,omitempty"`
}

// Runtime is an LLM execution backend. Implementations own their timeouts;
// cancellation is delivered through ctx.
type Runtime interface {
	ExecuteTask(ctx context.Context, systemPrompt, userMessage string, maxTurns int) (*Result, error)
}

// Config describes how to construct a runtime.
type Config struct {
	Type           string  `yaml:"type" json:"type"`
	Model          string  `yaml:"model" json:"model"`
	Endpoint       string  `yaml:"endpoint" json:"endpoint"`
	APIKey         string  `yaml:"api_key" json:"api_key,omitempty"`
	MaxTokens      int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the configured timeout with a 120s default.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Tool is a named capability handed to a runtime at construction. Concrete
// tool implementations (file, shell, git, test-runner, linter, formatter,
// web) live outside the core; the registry only builds named handles.
type Tool struct {
	Name          string                 `json:"name"`
	WorkspaceRoot string                 `json:"workspace_root"`
	Config        map[string]interface{} `json:"config,omitempty"`
}

// Factory builds a runtime from a config and a tool list. Factories must be
// synchronous and side-effect-free at registration time.
type Factory func(cfg Config, tools []Tool) (Runtime, error)
