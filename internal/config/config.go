// Package config holds the experiment configuration consumed by the sprint
// fixture and the episode harness, plus a fluent builder that assembles it
// in memory. The builder never reads disk; file loading belongs to the CLI.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"sprintgym/internal/runtime"
)

// AgentConfig describes one agent slot.
type AgentConfig struct {
	Role              string   `yaml:"role" json:"role"`
	Seniority         string   `yaml:"seniority" json:"seniority"`
	Runtime           string   `yaml:"runtime" json:"runtime"`
	Model             string   `yaml:"model,omitempty" json:"model,omitempty"`
	Specializations   []string `yaml:"specializations,omitempty" json:"specializations,omitempty"`
	TrainingCandidate bool     `yaml:"training_candidate,omitempty" json:"training_candidate,omitempty"`
}

// DisturbanceConfig configures the disturbance engine.
type DisturbanceConfig struct {
	Enabled        bool               `yaml:"enabled" json:"enabled"`
	Frequencies    map[string]float64 `yaml:"frequencies,omitempty" json:"frequencies,omitempty"`
	BlastRadiusMin int                `yaml:"blast_radius_min" json:"blast_radius_min"`
	BlastRadiusMax int                `yaml:"blast_radius_max" json:"blast_radius_max"`
}

// AttritionConfig configures random agent departures.
type AttritionConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Probability float64 `yaml:"probability" json:"probability"`
}

// OnboardingConfig configures backfill ramp-up.
type OnboardingConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	RampSprints int  `yaml:"ramp_sprints" json:"ramp_sprints"`
}

// ProfileSwapConfig configures mid-sprint role swaps.
type ProfileSwapConfig struct {
	Mode               string   `yaml:"mode" json:"mode"`
	Scenarios          []string `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	ProficiencyPenalty float64  `yaml:"proficiency_penalty" json:"proficiency_penalty"`
}

// CoordinationConfig configures cross-agent coordination.
type CoordinationConfig struct {
	Mode                string `yaml:"mode" json:"mode"`
	MaxParallelSessions int    `yaml:"max_parallel_sessions" json:"max_parallel_sessions"`
}

// MessagingConfig configures the team messaging backend.
type MessagingConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// ExperimentConfig is the normalized configuration for one experiment or
// episode. Mutable only through the action executor (sprint params).
type ExperimentConfig struct {
	ExperimentName        string                    `yaml:"experiment_name" json:"experiment_name"`
	SprintDurationMinutes int                       `yaml:"sprint_duration_minutes" json:"sprint_duration_minutes"`
	DatabaseURL           string                    `yaml:"database_url" json:"database_url"`
	TeamConfigDir         string                    `yaml:"team_config_dir,omitempty" json:"team_config_dir,omitempty"`
	RuntimeEndpoint       string                    `yaml:"runtime_endpoint,omitempty" json:"runtime_endpoint,omitempty"`
	AgentConfigs          map[string]AgentConfig    `yaml:"agent_configs,omitempty" json:"agent_configs,omitempty"`
	RuntimeConfigs        map[string]runtime.Config `yaml:"runtime_configs,omitempty" json:"runtime_configs,omitempty"`
	TracingEnabled        bool                      `yaml:"tracing_enabled" json:"tracing_enabled"`
	Disturbances          DisturbanceConfig         `yaml:"disturbances" json:"disturbances"`
	Attrition             AttritionConfig           `yaml:"attrition" json:"attrition"`
	Onboarding            OnboardingConfig          `yaml:"onboarding" json:"onboarding"`
	ProfileSwap           ProfileSwapConfig         `yaml:"profile_swap" json:"profile_swap"`
	WorkspaceRoot         string                    `yaml:"workspace_root" json:"workspace_root"`
	WorkspaceMode         string                    `yaml:"workspace_mode" json:"workspace_mode"`
	NumSimulatedDays      int                       `yaml:"num_simulated_days" json:"num_simulated_days"`
	Coordination          CoordinationConfig        `yaml:"coordination" json:"coordination"`
	Messaging             MessagingConfig           `yaml:"messaging" json:"messaging"`
	WIPLimits             map[string]int            `yaml:"wip_limits,omitempty" json:"wip_limits,omitempty"`
}

// Hash returns the 16-char lowercase hex prefix of SHA-256 over the
// JSON-serialized config with sorted keys. Used as a checkpoint
// compatibility tag.
func (c *ExperimentConfig) Hash() (string, error) {
	// Round-trip through a map so keys marshal in sorted order.
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to serialize config: %w", err)
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return "", fmt.Errorf("failed to normalize config: %w", err)
	}
	sorted, err := json.Marshal(asMap)
	if err != nil {
		return "", fmt.Errorf("failed to re-serialize config: %w", err)
	}
	sum := sha256.Sum256(sorted)
	return hex.EncodeToString(sum[:])[:16], nil
}
