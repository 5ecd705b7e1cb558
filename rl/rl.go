// Package rl is the stable public surface for reinforcement-learning
// integrations. It re-exports the episode harness, scenario catalog,
// observation, reward, scoring, action, checkpoint, config, and phase
// types from the internal packages. Nothing outside this package is part
// of the supported contract.
package rl

import (
	"sprintgym/internal/action"
	"sprintgym/internal/behavior"
	"sprintgym/internal/checkpoint"
	"sprintgym/internal/config"
	"sprintgym/internal/episode"
	"sprintgym/internal/observe"
	"sprintgym/internal/phase"
	"sprintgym/internal/reward"
	"sprintgym/internal/runtime"
	"sprintgym/internal/scenario"
)

// Episode harness.
type (
	EpisodeRunner = episode.Runner
	EpisodeParams = episode.Params
	EpisodeResult = episode.Result
)

// NewEpisodeRunner creates a runner rooted at workspace.
var NewEpisodeRunner = episode.NewRunner

// NewEpisodeRunnerWithWeights creates a runner with custom reward weights.
var NewEpisodeRunnerWithWeights = episode.NewRunnerWithWeights

// Scenario generation.
type (
	ScenarioCatalog = scenario.Catalog
	ScenarioConfig  = scenario.Config
	Story           = scenario.Story
	EpisodeTypeDef  = scenario.TypeDef
)

// EpisodeTypes is the frozen catalog of 13 episode-type definitions.
var EpisodeTypes = scenario.EpisodeTypes

// NewScenarioCatalog creates a catalog over the frozen episode-type set.
var NewScenarioCatalog = scenario.NewCatalog

// Observations.
type (
	ObservationExtractor = observe.Extractor
	Observation          = observe.Observation
	AgentObservation     = observe.AgentObservation
)

// NewObservationExtractor binds an extractor to a sprint fixture.
var NewObservationExtractor = observe.NewExtractor

// Rewards.
type (
	RewardCalculator = reward.Calculator
	RewardSignal     = reward.Signal
	RewardWeights    = reward.Weights
)

// DefaultRewardWeights returns the standard channel weighting.
var DefaultRewardWeights = reward.DefaultWeights

// NewRewardCalculator creates a calculator with explicit weights.
var NewRewardCalculator = reward.NewCalculator

// Behavioral scoring.
type (
	BehavioralScorer = behavior.Scorer
	BehavioralCode   = behavior.Code
	BehavioralScore  = behavior.ScoreResult
)

// BehavioralCodes is the closed catalog of 30 codes B-01 through B-30.
var BehavioralCodes = behavior.Codes

// NewBehavioralScorer creates the default heuristic scorer.
var NewBehavioralScorer = behavior.NewScorer

// Actions.
type (
	Action                = action.Action
	ActionExecutor        = action.Executor
	ActionResult          = action.Result
	InjectDisturbance     = action.InjectDisturbance
	SwapAgentRole         = action.SwapAgentRole
	ModifyBacklog         = action.ModifyBacklog
	ModifyTeamComposition = action.ModifyTeamComposition
	AdjustSprintParams    = action.AdjustSprintParams
)

// ActionSpaceSpec documents the action space for policy authors.
var ActionSpaceSpec = action.SpaceSpec

// NewActionExecutor binds an executor to a sprint fixture.
var NewActionExecutor = action.NewExecutor

// Checkpoints.
type (
	CheckpointManager = checkpoint.Manager
	Checkpoint        = checkpoint.Checkpoint
)

// NewCheckpointManager creates a manager rooted at dir.
var NewCheckpointManager = checkpoint.NewManager

// Configuration.
type (
	ExperimentConfigBuilder = config.Builder
	ExperimentConfig        = config.ExperimentConfig
)

// NewExperimentConfigBuilder returns an empty builder.
var NewExperimentConfigBuilder = config.NewBuilder

// Phases.
type (
	PhaseRunner = phase.Runner
	PhaseResult = phase.Result
)

// NewPhaseRunner binds a runner to a sprint fixture.
var NewPhaseRunner = phase.NewRunner

// Runtime plug-ins.
type (
	Runtime        = runtime.Runtime
	RuntimeConfig  = runtime.Config
	RuntimeTool    = runtime.Tool
	RuntimeFactory = runtime.Factory
)

// RegisterRuntime adds or overwrites a runtime factory in the process-wide
// registry.
var RegisterRuntime = runtime.Register

// RegisteredRuntimeTypes lists the registered runtime type names.
var RegisteredRuntimeTypes = runtime.RegisteredTypes
