package sprint

import (
	"fmt"
	"math/rand"

	"sprintgym/internal/logging"
)

// DisturbanceEngine injects mid-sprint events (incidents, flaky tests, sick
// days) into the world. Frequencies are per-type probabilities per apply
// call; blast radius bounds how many agents an event touches.
type DisturbanceEngine struct {
	Frequencies    map[string]float64
	BlastRadiusMin int
	BlastRadiusMax int

	rng    *rand.Rand
	active []string
}

// NewDisturbanceEngine builds an engine with the given per-type frequencies.
func NewDisturbanceEngine(frequencies map[string]float64, blastMin, blastMax int, seed int64) *DisturbanceEngine {
	if blastMin < 1 {
		blastMin = 1
	}
	if blastMax < blastMin {
		blastMax = blastMin
	}
	freqs := make(map[string]float64, len(frequencies))
	for k, v := range frequencies {
		freqs[k] = v
	}
	return &DisturbanceEngine{
		Frequencies:    freqs,
		BlastRadiusMin: blastMin,
		BlastRadiusMax: blastMax,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// Apply injects one disturbance of the given type at the given severity.
// Effects depend on the type: incidents pull cards back to in_progress,
// sick days drop conversation capacity, flaky tests mark review cards
// unapproved. The event is recorded as active for observation.
func (e *DisturbanceEngine) Apply(disturbanceType string, severity float64, agents []*Agent, kanban *Kanban, db Database) error {
	if disturbanceType == "" {
		return fmt.Errorf("disturbance type must not be empty")
	}
	if severity < 0 || severity > 1 {
		return fmt.Errorf("disturbance severity %v out of [0,1]", severity)
	}

	radius := e.BlastRadiusMin
	if span := e.BlastRadiusMax - e.BlastRadiusMin; span > 0 {
		radius += e.rng.Intn(span + 1)
	}
	if radius > len(agents) {
		radius = len(agents)
	}

	switch disturbanceType {
	case "prod_incident":
		// Pull up to radius done cards back into in_progress.
		done := kanban.CardsIn("done")
		for i := 0; i < radius && i < len(done); i++ {
			kanban.MoveCard(done[i].ID, "in_progress")
		}
	case "flaky_test":
		for _, card := range kanban.CardsIn("review") {
			kanban.SetApproved(card.ID, false)
		}
	case "sick_day":
		for i := 0; i < radius && i < len(agents); i++ {
			agents[i].AppendMessage("system", "out sick today, capacity reduced")
		}
	case "scope_change", "conflicting_priorities":
		// World effect handled through the backlog by the caller; record only.
	default:
		return fmt.Errorf("unknown disturbance type %q", disturbanceType)
	}

	e.active = append(e.active, disturbanceType)
	logging.Phase("disturbance %s applied: severity=%.2f radius=%d", disturbanceType, severity, radius)
	return nil
}

// ActiveDisturbances lists the types applied so far, in order.
func (e *DisturbanceEngine) ActiveDisturbances() []string {
	return append([]string(nil), e.active...)
}

// OnboardingTracker marks backfilled agents as onboarding for a ramp window.
type OnboardingTracker struct {
	RampSprints int
	started     map[string]int
}

// NewOnboardingTracker returns a tracker with the given ramp window.
func NewOnboardingTracker(rampSprints int) *OnboardingTracker {
	if rampSprints < 1 {
		rampSprints = 1
	}
	return &OnboardingTracker{RampSprints: rampSprints, started: make(map[string]int)}
}

// Start records that an agent began onboarding at the given sprint.
func (t *OnboardingTracker) Start(agentID string, sprintNum int) {
	t.started[agentID] = sprintNum
}

// IsOnboarding reports whether the agent is still inside its ramp window.
func (t *OnboardingTracker) IsOnboarding(agentID string, currentSprint int) bool {
	start, ok := t.started[agentID]
	if !ok {
		return false
	}
	return currentSprint-start < t.RampSprints
}
