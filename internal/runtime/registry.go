package runtime

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"sprintgym/internal/logging"
)

// RuntimeTypeEnv overrides the resolved runtime type for every agent when
// set. Used to force an entire team onto one backend (e.g. mock in CI).
const RuntimeTypeEnv = "SPRINTGYM_RUNTIME"

var (
	regMu     sync.Mutex
	factories map[string]Factory
)

// ensureDefaults lazily seeds the registry with the built-in backends.
// Callers must hold regMu.
func ensureDefaults() {
	if factories != nil {
		return
	}
	factories = map[string]Factory{
		"local_vllm": newVLLMRuntime,
		"anthropic":  newAnthropicRuntime,
		"gemini":     newGeminiRuntime,
		"mock":       newMockRuntime,
	}
}

// Register adds or overwrites a runtime factory. Overwriting is explicitly
// allowed so embedders can replace the default backends.
func Register(name string, factory Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	ensureDefaults()
	if _, exists := factories[name]; exists {
		logging.Runtime("runtime factory %q overwritten", name)
	}
	factories[name] = factory
}

func lookup(name string) (Factory, bool) {
	regMu.Lock()
	defer regMu.Unlock()
	ensureDefaults()
	f, ok := factories[name]
	return f, ok
}

// RegisteredTypes returns the sorted list of registered runtime type names.
func RegisteredTypes() []string {
	regMu.Lock()
	defer regMu.Unlock()
	ensureDefaults()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds the named runtime, constructing its tool handles first.
// Unknown names return an error enumerating the registered types.
func Create(name string, cfg Config, toolNames []string, workspaceRoot string, toolConfig map[string]interface{}) (Runtime, error) {
	factory, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown runtime type %q; available: %s",
			name, strings.Join(RegisteredTypes(), ", "))
	}

	tools := BuildTools(toolNames, workspaceRoot, toolConfig)
	rt, err := factory(cfg, tools)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime %q: %w", name, err)
	}
	logging.Runtime("created runtime %q model=%s tools=%d", name, cfg.Model, len(tools))
	return rt, nil
}

// BuildTools constructs named tool handles rooted at the workspace. The
// handles carry configuration through to the runtime; execution is owned by
// the backend.
func BuildTools(names []string, workspaceRoot string, config map[string]interface{}) []Tool {
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, Tool{
			Name:          name,
			WorkspaceRoot: workspaceRoot,
			Config:        config,
		})
	}
	return tools
}

// AgentRuntimeRef is the slice of an agent config the resolver needs.
type AgentRuntimeRef struct {
	Runtime string `yaml:"runtime" json:"runtime"`
	Model   string `yaml:"model" json:"model,omitempty"`
}

// ResolveRuntimeConfig resolves the runtime type for an agent and merges the
// named global runtime config with any per-agent model override. Resolution
// order: explicit override argument, then SPRINTGYM_RUNTIME, then the agent
// config. A resolved type absent from the registry is an error.
func ResolveRuntimeConfig(agent AgentRuntimeRef, global map[string]Config, override string) (Config, error) {
	typ := override
	if typ == "" {
		typ = os.Getenv(RuntimeTypeEnv)
	}
	if typ == "" {
		typ = agent.Runtime
	}
	if typ == "" {
		return Config{}, fmt.Errorf("no runtime type configured for agent")
	}

	if _, registered := lookup(typ); !registered {
		return Config{}, fmt.Errorf("runtime type %q is not registered; available: %s",
			typ, strings.Join(RegisteredTypes(), ", "))
	}

	cfg, ok := global[typ]
	if !ok {
		cfg = Config{}
	}
	cfg.Type = typ
	if agent.Model != "" {
		cfg.Model = agent.Model
	}
	return cfg, nil
}
