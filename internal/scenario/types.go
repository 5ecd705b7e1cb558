// Package scenario defines the episode-type catalog and deterministic
// scenario generation. A ScenarioConfig is the immutable input to an
// episode: stories, phases, disturbance overrides, and the behavior codes
// the episode is expected to exhibit.
package scenario

// Phase names, ordered as ceremonies run within a sprint.
const (
	PhasePlanning     = "planning"
	PhaseDevelopment  = "development"
	PhaseQAReview     = "qa_review"
	PhaseRetro        = "retro"
	PhaseMetaLearning = "meta_learning"
)

// Story is one backlog item.
type Story struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description" yaml:"description"`
	StoryPoints        int      `json:"story_points" yaml:"story_points"`
	AcceptanceCriteria []string `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Priority           int      `json:"priority,omitempty" yaml:"priority,omitempty"`
	Tags               []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Domain             string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	TeamTypeHint       string   `json:"team_type_hint,omitempty" yaml:"team_type_hint,omitempty"`
}

// DisturbanceOverrides enables scenario-specific disturbances.
type DisturbanceOverrides struct {
	Enabled     bool               `json:"enabled"`
	Frequencies map[string]float64 `json:"frequencies,omitempty"`
}

// AgentOverride adjusts one agent slot for the scenario.
type AgentOverride struct {
	TrainingCandidate bool   `json:"training_candidate,omitempty"`
	Seniority         string `json:"seniority,omitempty"`
	Runtime           string `json:"runtime,omitempty"`
	Model             string `json:"model,omitempty"`
}

// Config is a generated scenario. Immutable after generation.
type Config struct {
	EpisodeType       string                   `json:"episode_type"`
	Stage             int                      `json:"stage"`
	Difficulty        float64                  `json:"difficulty"`
	TargetSlot        string                   `json:"target_slot"`
	Stories           []Story                  `json:"stories"`
	Disturbances      DisturbanceOverrides     `json:"disturbance_overrides"`
	AgentOverrides    map[string]AgentOverride `json:"agent_overrides,omitempty"`
	ExpectedBehaviors []string                 `json:"expected_behaviors"`
	DurationMinutes   int                      `json:"duration_minutes"`
	Phases            []string                 `json:"phases"`
	Seed              int64                    `json:"seed"`
}

// TypeDef is one frozen episode-type definition.
type TypeDef struct {
	Stage           int      `json:"stage"`
	Phases          []string `json:"phases"`
	TargetBehaviors []string `json:"target_behaviors"`
	DurationMinutes int      `json:"duration_minutes"`
	Description     string   `json:"description"`
}

// EpisodeTypes is the frozen catalog of 13 episode types. Each type name is
// also a behavioral-taxonomy category.
var EpisodeTypes = map[string]TypeDef{
	"implementation": {
		Stage:           1,
		Phases:          []string{PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-01", "B-02", "B-03"},
		DurationMinutes: 30,
		Description:     "Implement planned stories against their acceptance criteria.",
	},
	"testing": {
		Stage:           1,
		Phases:          []string{PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-04", "B-05", "B-06", "B-07"},
		DurationMinutes: 30,
		Description:     "Test-first development with edge-case coverage.",
	},
	"refactoring": {
		Stage:           1,
		Phases:          []string{PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-08", "B-09"},
		DurationMinutes: 30,
		Description:     "Behavior-preserving restructuring in small commits.",
	},
	"code_review": {
		Stage:           1,
		Phases:          []string{PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-10", "B-11"},
		DurationMinutes: 25,
		Description:     "Review peer changes with concrete, line-level feedback.",
	},
	"recovery": {
		Stage:           2,
		Phases:          []string{PhaseDevelopment, PhaseQAReview, PhaseRetro},
		TargetBehaviors: []string{"B-12", "B-13", "B-14"},
		DurationMinutes: 45,
		Description:     "Recover from a mid-sprint failure: reproduce, fix, regress.",
	},
	"triage": {
		Stage:           2,
		Phases:          []string{PhasePlanning, PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-15", "B-16"},
		DurationMinutes: 40,
		Description:     "Triage competing incidents by severity and root cause.",
	},
	"elicitation": {
		Stage:           2,
		Phases:          []string{PhasePlanning, PhaseDevelopment},
		TargetBehaviors: []string{"B-17", "B-18"},
		DurationMinutes: 35,
		Description:     "Work from underspecified stories; ask before assuming.",
	},
	"scope_change": {
		Stage:           3,
		Phases:          []string{PhasePlanning, PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-19", "B-20"},
		DurationMinutes: 50,
		Description:     "Absorb a mid-sprint scope change without silent overcommit.",
	},
	"compensation": {
		Stage:           3,
		Phases:          []string{PhasePlanning, PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-21", "B-22"},
		DurationMinutes: 50,
		Description:     "Compensate for sudden capacity loss by rebalancing work.",
	},
	"pairing": {
		Stage:           3,
		Phases:          []string{PhaseDevelopment, PhaseQAReview},
		TargetBehaviors: []string{"B-23", "B-24"},
		DurationMinutes: 40,
		Description:     "Pair-program with explicit driver/navigator rotation.",
	},
	"onboarding": {
		Stage:           4,
		Phases:          []string{PhasePlanning, PhaseDevelopment, PhaseQAReview, PhaseRetro},
		TargetBehaviors: []string{"B-25", "B-26"},
		DurationMinutes: 60,
		Description:     "Integrate a backfilled agent while keeping velocity.",
	},
	"estimation": {
		Stage:           4,
		Phases:          []string{PhasePlanning},
		TargetBehaviors: []string{"B-27"},
		DurationMinutes: 20,
		Description:     "Size and split an incoming backlog.",
	},
	"meta_learning": {
		Stage:           4,
		Phases:          []string{PhasePlanning, PhaseDevelopment, PhaseQAReview, PhaseRetro, PhaseMetaLearning},
		TargetBehaviors: []string{"B-28", "B-29", "B-30"},
		DurationMinutes: 90,
		Description:     "Full-cycle sprint that must harvest and apply learnings.",
	},
}

// AllPhases lists the valid phase names in ceremony order.
var AllPhases = []string{PhasePlanning, PhaseDevelopment, PhaseQAReview, PhaseRetro, PhaseMetaLearning}
