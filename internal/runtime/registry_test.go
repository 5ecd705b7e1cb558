package runtime

import (
	"context"
	"strings"
	"testing"
)

func TestDefaultRegisteredTypes(t *testing.T) {
	types := RegisteredTypes()

	for _, want := range []string{"local_vllm", "anthropic", "gemini", "mock"} {
		found := false
		for _, typ := range types {
			if typ == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("default runtime type %q not registered (have %v)", want, types)
		}
	}
}

func TestCreateUnknownTypeEnumeratesAvailable(t *testing.T) {
	_, err := Create("no_such_backend", Config{}, nil, "", nil)
	if err == nil {
		t.Fatal("expected error for unknown runtime type")
	}
	if !strings.Contains(err.Error(), "local_vllm") || !strings.Contains(err.Error(), "anthropic") {
		t.Errorf("error should enumerate available types: %v", err)
	}
}

func TestRegisterOverwriteAllowed(t *testing.T) {
	stub := func(cfg Config, tools []Tool) (Runtime, error) {
		return NewMockRuntime(), nil
	}
	Register("custom_backend", stub)
	Register("custom_backend", stub) // overwrite is documented behavior

	rt, err := Create("custom_backend", Config{}, nil, "", nil)
	if err != nil {
		t.Fatalf("Create after Register: %v", err)
	}
	if rt == nil {
		t.Fatal("nil runtime from registered factory")
	}
}

func TestMockRuntimeDeterministic(t *testing.T) {
	m := NewMockRuntime()
	ctx := context.Background()

	a, err := m.ExecuteTask(ctx, "sys", "implement the login feature", 5)
	if err != nil {
		t.Fatalf("ExecuteTask: %v", err)
	}
	b, _ := m.ExecuteTask(ctx, "sys", "implement the login feature", 5)

	if a.Content != b.Content {
		t.Errorf("mock runtime not deterministic: %q vs %q", a.Content, b.Content)
	}
	if !a.Success || a.Turns != 1 {
		t.Errorf("unexpected mock result: %+v", a)
	}
	if len(a.FilesChanged) == 0 {
		t.Error("coding task should report files changed")
	}
}

func TestMockRuntimeCancellation(t *testing.T) {
	m := NewMockRuntime()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.ExecuteTask(ctx, "", "plan the sprint", 1)
	if err != nil {
		t.Fatalf("ExecuteTask: %v", err)
	}
	if res.Success {
		t.Error("cancelled task should not succeed")
	}
}

func TestResolveRuntimeConfig(t *testing.T) {
	global := map[string]Config{
		"mock":       {Model: "mock-small"},
		"local_vllm": {Model: "qwen", Endpoint: "http://gpu:8000/v1"},
	}

	cfg, err := ResolveRuntimeConfig(AgentRuntimeRef{Runtime: "local_vllm"}, global, "")
	if err != nil {
		t.Fatalf("ResolveRuntimeConfig: %v", err)
	}
	if cfg.Type != "local_vllm" || cfg.Model != "qwen" {
		t.Errorf("unexpected resolved config: %+v", cfg)
	}

	// Per-agent model override wins.
	cfg, err = ResolveRuntimeConfig(AgentRuntimeRef{Runtime: "mock", Model: "mock-large"}, global, "")
	if err != nil {
		t.Fatalf("ResolveRuntimeConfig with model override: %v", err)
	}
	if cfg.Model != "mock-large" {
		t.Errorf("model override not applied: %+v", cfg)
	}

	// Explicit override argument wins over agent config.
	cfg, err = ResolveRuntimeConfig(AgentRuntimeRef{Runtime: "local_vllm"}, global, "mock")
	if err != nil {
		t.Fatalf("ResolveRuntimeConfig with override: %v", err)
	}
	if cfg.Type != "mock" {
		t.Errorf("override not applied: %+v", cfg)
	}
}

func TestResolveRuntimeConfigUnregisteredType(t *testing.T) {
	_, err := ResolveRuntimeConfig(AgentRuntimeRef{Runtime: "hosted_magic"}, nil, "")
	if err == nil {
		t.Fatal("expected error for unregistered runtime type")
	}
	if !strings.Contains(err.Error(), "available") {
		t.Errorf("error should enumerate available types: %v", err)
	}
}
