// Package observe builds JSON-serializable world snapshots for RL policies.
// An Observation is created on demand and never mutated.
package observe

import (
	"bufio"
	"context"
	"os"

	"sprintgym/internal/logging"
	"sprintgym/internal/sprint"
	"sprintgym/internal/trace"
)

// AgentObservation is the per-agent slice of a snapshot.
type AgentObservation struct {
	ID                        string          `json:"id"`
	RoleID                    string          `json:"role_id"`
	Seniority                 string          `json:"seniority"`
	Specializations           []string        `json:"specializations"`
	Swapped                   bool            `json:"swapped"`
	Onboarding                bool            `json:"onboarding"`
	RecentDecisions           []trace.Summary `json:"recent_decisions"`
	ConversationHistoryLength int             `json:"conversation_history_length"`
}

// Observation is one world snapshot.
type Observation struct {
	Sprint             int                      `json:"sprint"`
	Phase              string                   `json:"phase"`
	KanbanSnapshot     map[string][]sprint.Card `json:"kanban_snapshot"`
	Agents             []AgentObservation       `json:"agents"`
	SprintMetrics      *sprint.SprintResult     `json:"sprint_metrics,omitempty"`
	ActiveDisturbances []string                 `json:"active_disturbances"`
	MetaLearningsCount int                      `json:"meta_learnings_count"`
	Departures         []string                 `json:"departures"`
	Backfills          []string                 `json:"backfills"`
	TeamComposition    map[string]int           `json:"team_composition"`
}

// Extractor builds observations from one fixture.
type Extractor struct {
	manager *sprint.Manager

	// MetaLearningsPath, when set, is a JSON-lines file tailed as a
	// fallback count when the database has no meta-learnings.
	MetaLearningsPath string
}

// NewExtractor binds an extractor to a fixture.
func NewExtractor(m *sprint.Manager) *Extractor {
	return &Extractor{manager: m}
}

// Extract builds a snapshot for (sprintNum, phase). maxRecentDecisions
// bounds the per-agent decision window; zero or negative means the default
// of 10.
func (e *Extractor) Extract(ctx context.Context, sprintNum int, phaseName string, maxRecentDecisions int) *Observation {
	if maxRecentDecisions <= 0 {
		maxRecentDecisions = 10
	}

	obs := &Observation{
		Sprint:             sprintNum,
		Phase:              phaseName,
		KanbanSnapshot:     e.manager.Kanban.Snapshot(),
		ActiveDisturbances: []string{},
		Departures:         []string{},
		Backfills:          []string{},
		TeamComposition:    make(map[string]int),
	}

	for _, a := range e.manager.Agents {
		ao := AgentObservation{
			ID:                        a.ID,
			RoleID:                    a.Role.ID,
			Seniority:                 a.Seniority,
			Specializations:           append([]string(nil), a.Specializations...),
			Swapped:                   a.Swapped,
			RecentDecisions:           []trace.Summary{},
			ConversationHistoryLength: len(a.ConversationHistory),
		}
		if e.manager.Onboarding != nil {
			ao.Onboarding = e.manager.Onboarding.IsOnboarding(a.ID, sprintNum)
		}
		if a.Tracer != nil {
			if recent := a.Tracer.RecentSummaries(maxRecentDecisions); len(recent) > 0 {
				ao.RecentDecisions = recent
			}
		}
		obs.Agents = append(obs.Agents, ao)

		obs.TeamComposition[a.Seniority]++
		obs.TeamComposition["role_"+a.Role.Archetype]++
	}

	for _, r := range e.manager.SprintResults() {
		if r.Sprint == sprintNum {
			metrics := r
			obs.SprintMetrics = &metrics
			obs.Departures = append(obs.Departures, r.Departures...)
			obs.Backfills = append(obs.Backfills, r.Backfills...)
			break
		}
	}

	if e.manager.Engine != nil {
		obs.ActiveDisturbances = e.manager.Engine.ActiveDisturbances()
	}

	obs.MetaLearningsCount = e.metaLearningsCount(ctx)

	logging.Observe("extracted observation: sprint=%d phase=%s agents=%d", sprintNum, phaseName, len(obs.Agents))
	return obs
}

// metaLearningsCount prefers the database; falls back to counting lines of
// the JSONL file best-effort.
func (e *Extractor) metaLearningsCount(ctx context.Context) int {
	if e.manager.DB != nil {
		if mls, err := e.manager.DB.MetaLearnings(ctx); err == nil {
			if len(mls) > 0 {
				return len(mls)
			}
		}
	}
	if e.MetaLearningsPath == "" {
		return 0
	}

	f, err := os.Open(e.MetaLearningsPath)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count
}
