package reward

import (
	"math"
	"testing"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	sum := w.Outcome + w.Behavioral + w.Efficiency + w.PhaseCompletion
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("default weights sum to %v, want 1.0", sum)
	}
}

func TestAllChannelsInRange(t *testing.T) {
	cases := []struct {
		name       string
		outcome    SprintOutcome
		behavioral float64
	}{
		{"zero sprint", SprintOutcome{}, 0},
		{"perfect sprint", SprintOutcome{Velocity: 9, FeaturesCompleted: 3, FeaturesPlanned: 3, TestCoverage: 1, PairingSessions: 2}, 1},
		{"over-delivery", SprintOutcome{Velocity: 100, FeaturesCompleted: 10, FeaturesPlanned: 2, TestCoverage: 2.5, PairingSessions: 50}, 1.5},
		{"negative coverage", SprintOutcome{Velocity: 3, FeaturesCompleted: 1, FeaturesPlanned: 2, TestCoverage: -0.3}, -1},
	}

	calc := NewDefaultCalculator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := calc.Compute(tc.outcome, nil, tc.behavioral)
			for name, v := range map[string]float64{
				"outcome":          sig.Outcome,
				"behavioral":       sig.Behavioral,
				"efficiency":       sig.Efficiency,
				"phase_completion": sig.PhaseCompletion,
				"total":            sig.Total,
			} {
				if v < 0 || v > 1 {
					t.Errorf("%s = %v out of [0,1]", name, v)
				}
			}
		})
	}
}

func TestPhaseCompletionFraction(t *testing.T) {
	calc := NewDefaultCalculator()
	phases := []PhaseOutcome{
		{ArtifactCount: 1},
		{ArtifactCount: 1, Errored: true},
		{ArtifactCount: 2},
		{ArtifactCount: 0, Errored: true},
	}
	sig := calc.Compute(SprintOutcome{FeaturesPlanned: 1}, phases, 0)
	if sig.PhaseCompletion != 0.5 {
		t.Errorf("phase completion = %v, want 0.5", sig.PhaseCompletion)
	}
}

func TestNoPhasesMeansFullCompletion(t *testing.T) {
	calc := NewDefaultCalculator()
	sig := calc.Compute(SprintOutcome{FeaturesPlanned: 1}, nil, 0)
	if sig.PhaseCompletion != 1.0 {
		t.Errorf("phase completion without phases = %v, want 1.0", sig.PhaseCompletion)
	}
}

func TestOutcomeMath(t *testing.T) {
	calc := NewDefaultCalculator()
	// velocity 6 of expected 6 (2 planned * 3), coverage 0.5, 1 of 2 complete.
	sig := calc.Compute(SprintOutcome{
		Velocity:          6,
		FeaturesCompleted: 1,
		FeaturesPlanned:   2,
		TestCoverage:      0.5,
	}, nil, 0)

	want := 0.4*1.0 + 0.3*0.5 + 0.3*0.5
	if math.Abs(sig.Outcome-want) > 1e-9 {
		t.Errorf("outcome = %v, want %v", sig.Outcome, want)
	}
	if sig.Components["velocity_ratio"] != 1.0 {
		t.Errorf("velocity_ratio component = %v", sig.Components["velocity_ratio"])
	}
}

func TestEfficiencyPenalizesPairingSessions(t *testing.T) {
	calc := NewDefaultCalculator()
	// 3 planned -> max_sessions 9; 9 sessions -> ratio 1 -> efficiency 0.5.
	sig := calc.Compute(SprintOutcome{FeaturesPlanned: 3, PairingSessions: 9}, nil, 0)
	if math.Abs(sig.Efficiency-0.5) > 1e-9 {
		t.Errorf("efficiency = %v, want 0.5", sig.Efficiency)
	}
}

func TestCustomWeights(t *testing.T) {
	calc := NewCalculator(Weights{Outcome: 1})
	sig := calc.Compute(SprintOutcome{Velocity: 3, FeaturesCompleted: 1, FeaturesPlanned: 1, TestCoverage: 1}, nil, 0)
	if math.Abs(sig.Total-sig.Outcome) > 1e-4 {
		t.Errorf("outcome-only weights: total %v != outcome %v", sig.Total, sig.Outcome)
	}
}

func TestTotalRoundedToFourDecimals(t *testing.T) {
	calc := NewDefaultCalculator()
	sig := calc.Compute(SprintOutcome{Velocity: 1, FeaturesCompleted: 1, FeaturesPlanned: 3, TestCoverage: 0.333333}, nil, 0.777777)
	scaled := sig.Total * 10000
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		t.Errorf("total %v not rounded to 4 decimals", sig.Total)
	}
}

func TestComputePhase(t *testing.T) {
	calc := NewDefaultCalculator()

	ok := calc.ComputePhase(PhaseOutcome{ArtifactCount: 3, DurationSeconds: 60})
	if ok.PhaseCompletion != 1.0 {
		t.Errorf("clean phase completion = %v", ok.PhaseCompletion)
	}
	if ok.Outcome != 1.0 {
		t.Errorf("3 artifacts should saturate outcome, got %v", ok.Outcome)
	}
	if math.Abs(ok.Efficiency-0.9) > 1e-9 {
		t.Errorf("efficiency = %v, want 0.9", ok.Efficiency)
	}

	bad := calc.ComputePhase(PhaseOutcome{Errored: true, DurationSeconds: 1200})
	if bad.PhaseCompletion != 0.0 {
		t.Errorf("errored phase completion = %v", bad.PhaseCompletion)
	}
	if bad.Efficiency != 0.0 {
		t.Errorf("over-budget efficiency = %v, want 0", bad.Efficiency)
	}
}
