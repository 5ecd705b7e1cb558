// Package reward computes the multi-channel scalar reward for an episode.
// Four channels (outcome, behavioral, efficiency, phase_completion), each in
// [0,1], are blended by injectable weights into a total in [0,1].
package reward

import (
	"math"

	"sprintgym/internal/logging"
)

// Weights blends the four channels. Weights should sum to 1.0.
type Weights struct {
	Outcome         float64 `json:"outcome"`
	Behavioral      float64 `json:"behavioral"`
	Efficiency      float64 `json:"efficiency"`
	PhaseCompletion float64 `json:"phase_completion"`
}

// DefaultWeights returns the standard channel blend.
func DefaultWeights() Weights {
	return Weights{
		Outcome:         0.40,
		Behavioral:      0.30,
		Efficiency:      0.15,
		PhaseCompletion: 0.15,
	}
}

// Signal is the computed reward. Components carries every intermediate ratio
// for debugging.
type Signal struct {
	Outcome         float64            `json:"outcome"`
	Behavioral      float64            `json:"behavioral"`
	Efficiency      float64            `json:"efficiency"`
	PhaseCompletion float64            `json:"phase_completion"`
	Total           float64            `json:"total"`
	Components      map[string]float64 `json:"components"`
}

// SprintOutcome is the sprint-result record the calculator consumes.
type SprintOutcome struct {
	Velocity          float64 `json:"velocity"`
	ExpectedVelocity  float64 `json:"expected_velocity"`
	FeaturesCompleted int     `json:"features_completed"`
	FeaturesPlanned   int     `json:"features_planned"`
	TestCoverage      float64 `json:"test_coverage"`
	PairingSessions   int     `json:"pairing_sessions"`
}

// PhaseOutcome is the per-phase slice the calculator consumes.
type PhaseOutcome struct {
	ArtifactCount   int     `json:"artifact_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	Errored         bool    `json:"errored"`
}

// Calculator blends channels with its configured weights.
type Calculator struct {
	weights Weights
}

// NewCalculator creates a calculator with custom weights.
func NewCalculator(w Weights) *Calculator { return &Calculator{weights: w} }

// NewDefaultCalculator creates a calculator with the default weights.
func NewDefaultCalculator() *Calculator { return &Calculator{weights: DefaultWeights()} }

// Weights returns the configured blend.
func (c *Calculator) Weights() Weights { return c.weights }

// Compute scores a full sprint. The behavioral channel is supplied by the
// caller (the built-in scorer or an external one). Phases may be nil, in
// which case phase completion is 1.0.
func (c *Calculator) Compute(res SprintOutcome, phases []PhaseOutcome, behavioral float64) Signal {
	expected := res.ExpectedVelocity
	if expected <= 0 {
		expected = float64(res.FeaturesPlanned) * 3
	}
	velocityRatio := math.Min(res.Velocity/math.Max(expected, 1), 1.0)
	completionRate := math.Min(float64(res.FeaturesCompleted)/math.Max(float64(res.FeaturesPlanned), 1), 1.0)
	coverage := clamp01(res.TestCoverage)

	outcome := 0.4*velocityRatio + 0.3*coverage + 0.3*completionRate

	maxSessions := math.Max(float64(res.FeaturesPlanned)*3, 1)
	sessionsRatio := float64(res.PairingSessions) / maxSessions
	efficiency := clamp01(1 - 0.5*sessionsRatio)

	phaseCompletion := 1.0
	if len(phases) > 0 {
		clean := 0
		for _, p := range phases {
			if !p.Errored {
				clean++
			}
		}
		phaseCompletion = float64(clean) / float64(len(phases))
	}

	behavioral = clamp01(behavioral)

	sig := Signal{
		Outcome:         clamp01(outcome),
		Behavioral:      behavioral,
		Efficiency:      efficiency,
		PhaseCompletion: phaseCompletion,
		Components: map[string]float64{
			"velocity_ratio":  velocityRatio,
			"completion_rate": completionRate,
			"coverage_score":  coverage,
			"sessions_ratio":  sessionsRatio,
		},
	}
	sig.Total = round4(c.weights.Outcome*sig.Outcome +
		c.weights.Behavioral*sig.Behavioral +
		c.weights.Efficiency*sig.Efficiency +
		c.weights.PhaseCompletion*sig.PhaseCompletion)

	logging.Reward("reward total=%.4f outcome=%.3f behavioral=%.3f efficiency=%.3f completion=%.3f",
		sig.Total, sig.Outcome, sig.Behavioral, sig.Efficiency, sig.PhaseCompletion)
	return sig
}

// ComputePhase scores a single phase: completion is binary on error, outcome
// saturates with artifact count, and efficiency decays linearly over a
// 600-second budget.
func (c *Calculator) ComputePhase(p PhaseOutcome) Signal {
	completion := 1.0
	if p.Errored {
		completion = 0.0
	}
	outcome := math.Min(float64(p.ArtifactCount)/3.0, 1.0)
	efficiency := math.Max(1-p.DurationSeconds/600.0, 0)

	sig := Signal{
		Outcome:         outcome,
		Efficiency:      efficiency,
		PhaseCompletion: completion,
		Components: map[string]float64{
			"artifact_count":   float64(p.ArtifactCount),
			"duration_seconds": p.DurationSeconds,
		},
	}
	sig.Total = round4(c.weights.Outcome*sig.Outcome +
		c.weights.Efficiency*sig.Efficiency +
		c.weights.PhaseCompletion*sig.PhaseCompletion)
	return sig
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
