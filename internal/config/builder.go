package config

import (
	"fmt"

	"sprintgym/internal/runtime"
)

// Builder assembles an ExperimentConfig fluently. Zero-value fields get
// documented defaults at Build(); the builder itself never touches disk.
type Builder struct {
	cfg ExperimentConfig
	err error

	// set when the caller passes zero to WithSprintDuration, meaning
	// unlimited rather than default.
	zeroDurationSet bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) WithExperimentName(name string) *Builder {
	b.cfg.ExperimentName = name
	return b
}

// WithSprintDuration sets the wall-clock sprint budget. Zero means
// unlimited (the development phase runs a fixed number of simulated days
// instead).
func (b *Builder) WithSprintDuration(minutes int) *Builder {
	b.cfg.SprintDurationMinutes = minutes
	if minutes == 0 {
		b.zeroDurationSet = true
	}
	return b
}

func (b *Builder) WithDatabaseURL(url string) *Builder {
	b.cfg.DatabaseURL = url
	return b
}

func (b *Builder) WithTeamConfigDir(dir string) *Builder {
	b.cfg.TeamConfigDir = dir
	return b
}

func (b *Builder) WithRuntimeEndpoint(endpoint string) *Builder {
	b.cfg.RuntimeEndpoint = endpoint
	return b
}

// WithAgent registers one agent slot. Calling it twice for the same slot
// overwrites the earlier entry.
func (b *Builder) WithAgent(slot string, agent AgentConfig) *Builder {
	if slot == "" {
		b.fail("agent slot name must not be empty")
		return b
	}
	if b.cfg.AgentConfigs == nil {
		b.cfg.AgentConfigs = make(map[string]AgentConfig)
	}
	b.cfg.AgentConfigs[slot] = agent
	return b
}

// WithRuntime registers a named runtime configuration that agents can
// reference by name.
func (b *Builder) WithRuntime(name string, rc runtime.Config) *Builder {
	if name == "" {
		b.fail("runtime name must not be empty")
		return b
	}
	if b.cfg.RuntimeConfigs == nil {
		b.cfg.RuntimeConfigs = make(map[string]runtime.Config)
	}
	b.cfg.RuntimeConfigs[name] = rc
	return b
}

func (b *Builder) WithTracing(enabled bool) *Builder {
	b.cfg.TracingEnabled = enabled
	return b
}

func (b *Builder) WithDisturbances(d DisturbanceConfig) *Builder {
	b.cfg.Disturbances = d
	return b
}

func (b *Builder) WithAttrition(a AttritionConfig) *Builder {
	b.cfg.Attrition = a
	return b
}

func (b *Builder) WithOnboarding(o OnboardingConfig) *Builder {
	b.cfg.Onboarding = o
	return b
}

func (b *Builder) WithProfileSwap(p ProfileSwapConfig) *Builder {
	b.cfg.ProfileSwap = p
	return b
}

func (b *Builder) WithWorkspace(root, mode string) *Builder {
	b.cfg.WorkspaceRoot = root
	b.cfg.WorkspaceMode = mode
	return b
}

func (b *Builder) WithNumSimulatedDays(days int) *Builder {
	b.cfg.NumSimulatedDays = days
	return b
}

func (b *Builder) WithCoordination(c CoordinationConfig) *Builder {
	b.cfg.Coordination = c
	return b
}

func (b *Builder) WithMessaging(m MessagingConfig) *Builder {
	b.cfg.Messaging = m
	return b
}

func (b *Builder) WithWIPLimit(column string, limit int) *Builder {
	if b.cfg.WIPLimits == nil {
		b.cfg.WIPLimits = make(map[string]int)
	}
	b.cfg.WIPLimits[column] = limit
	return b
}

func (b *Builder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

// Build applies defaults and returns the finished config.
//
// Defaults: experiment_name "experiment", sprint duration 60 minutes,
// database_url "mock://", workspace_root ".gym/workspaces", workspace_mode
// "isolated", num_simulated_days 5, onboarding ramp 2 sprints when enabled,
// profile-swap mode "off", coordination mode "sequential" with 1 parallel
// session, messaging backend "memory".
func (b *Builder) Build() (*ExperimentConfig, error) {
	if b.err != nil {
		return nil, b.err
	}

	cfg := b.cfg

	if cfg.ExperimentName == "" {
		cfg.ExperimentName = "experiment"
	}
	if cfg.SprintDurationMinutes < 0 {
		return nil, fmt.Errorf("sprint duration must not be negative: %d", cfg.SprintDurationMinutes)
	}
	if cfg.SprintDurationMinutes == 0 && !b.explicitZeroDuration() {
		cfg.SprintDurationMinutes = 60
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "mock://"
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = ".gym/workspaces"
	}
	if cfg.WorkspaceMode == "" {
		cfg.WorkspaceMode = "isolated"
	}
	if cfg.NumSimulatedDays <= 0 {
		cfg.NumSimulatedDays = 5
	}
	if cfg.Onboarding.Enabled && cfg.Onboarding.RampSprints <= 0 {
		cfg.Onboarding.RampSprints = 2
	}
	if cfg.ProfileSwap.Mode == "" {
		cfg.ProfileSwap.Mode = "off"
	}
	if cfg.Coordination.Mode == "" {
		cfg.Coordination.Mode = "sequential"
	}
	if cfg.Coordination.MaxParallelSessions <= 0 {
		cfg.Coordination.MaxParallelSessions = 1
	}
	if cfg.Messaging.Backend == "" {
		cfg.Messaging.Backend = "memory"
	}
	if cfg.Attrition.Enabled && (cfg.Attrition.Probability < 0 || cfg.Attrition.Probability > 1) {
		return nil, fmt.Errorf("attrition probability out of range: %v", cfg.Attrition.Probability)
	}
	for slot, agent := range cfg.AgentConfigs {
		if agent.Role == "" {
			return nil, fmt.Errorf("agent %s has no role", slot)
		}
	}

	return &cfg, nil
}

// explicitZeroDuration reports whether the caller asked for unlimited
// duration by passing zero to WithSprintDuration.
func (b *Builder) explicitZeroDuration() bool {
	return b.zeroDurationSet
}
