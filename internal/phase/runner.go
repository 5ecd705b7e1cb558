// Package phase runs single sprint ceremonies against the sprint fixture
// and packages the outcome as a PhaseResult. Errors are captured into the
// result rather than returned so an episode can always produce a final
// observation.
package phase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sprintgym/internal/logging"
	"sprintgym/internal/scenario"
	"sprintgym/internal/sprint"
	"sprintgym/internal/trace"
)

// Result is the structured output of one phase.
type Result struct {
	Phase           string                   `json:"phase"`
	Sprint          int                      `json:"sprint"`
	DurationSeconds float64                  `json:"duration_seconds"`
	Decisions       []trace.Summary          `json:"decisions"`
	Artifacts       map[string]interface{}   `json:"artifacts,omitempty"`
	KanbanSnapshot  map[string][]sprint.Card `json:"kanban_snapshot"`
	Error           string                   `json:"error,omitempty"`
}

// Runner executes phases against one fixture.
type Runner struct {
	manager        *sprint.Manager
	tracingEnabled bool
}

// NewRunner binds a runner to a fixture. Tracing follows the experiment
// config.
func NewRunner(m *sprint.Manager) *Runner {
	return &Runner{manager: m, tracingEnabled: m.Config.TracingEnabled}
}

// validPhases in ceremony order, for error messages.
var validPhases = scenario.AllPhases

func isValidPhase(name string) bool {
	for _, p := range validPhases {
		if p == name {
			return true
		}
	}
	return false
}

// RunPhase runs one named phase. durationMinutes, when positive, overrides
// the configured budget; it applies to development only. Unknown phase
// names are a validation error; everything else is captured into
// Result.Error.
func (r *Runner) RunPhase(ctx context.Context, name string, sprintNum, durationMinutes int) (*Result, error) {
	if !isValidPhase(name) {
		sorted := append([]string(nil), validPhases...)
		sort.Strings(sorted)
		return nil, fmt.Errorf("unknown phase %q; valid phases: %s", name, strings.Join(sorted, ", "))
	}

	if r.tracingEnabled {
		r.manager.AttachTracers(sprintNum)
	}
	r.manager.SetAgentPhase(name)

	start := time.Now()
	artifacts, err := r.dispatch(ctx, name, sprintNum, durationMinutes)
	elapsed := time.Since(start).Seconds()

	res := &Result{
		Phase:           name,
		Sprint:          sprintNum,
		DurationSeconds: elapsed,
		Artifacts:       artifacts,
		KanbanSnapshot:  r.manager.Kanban.Snapshot(),
	}
	if err != nil {
		res.Error = err.Error()
	}

	for _, a := range r.manager.Agents {
		if a.Tracer == nil {
			continue
		}
		for _, d := range a.Tracer.DecisionsForPhase(name) {
			res.Decisions = append(res.Decisions, d.Summarize())
		}
	}

	logging.Phase("phase %s sprint=%d done: %.2fs decisions=%d error=%q",
		name, sprintNum, elapsed, len(res.Decisions), res.Error)
	return res, nil
}

// dispatch routes to the fixture's ceremony method.
func (r *Runner) dispatch(ctx context.Context, name string, sprintNum, durationMinutes int) (map[string]interface{}, error) {
	switch name {
	case scenario.PhasePlanning:
		return r.manager.RunPlanning(ctx)
	case scenario.PhaseDevelopment:
		return r.manager.RunDevelopment(ctx, sprintNum, durationMinutes)
	case scenario.PhaseQAReview:
		return r.manager.RunQAReview(ctx)
	case scenario.PhaseRetro:
		return r.manager.RunRetrospective(ctx)
	case scenario.PhaseMetaLearning:
		retro := lastRetroData(r.manager)
		return r.manager.ApplyMetaLearning(ctx, sprintNum, retro)
	default:
		return nil, fmt.Errorf("unhandled phase %q", name)
	}
}

// lastRetroData pulls the most recent sprint result's retro data, or a
// synthetic empty retro when no sprint has completed.
func lastRetroData(m *sprint.Manager) map[string]interface{} {
	results := m.SprintResults()
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].RetroData != nil {
			return results[i].RetroData
		}
	}
	return map[string]interface{}{
		"went_well":  []string{},
		"to_improve": []string{},
	}
}

// RunSequence runs phases in order, stopping at the first result whose
// error field is set. The failed result is included in the returned slice.
func (r *Runner) RunSequence(ctx context.Context, phases []string, sprintNum, durationMinutes int) ([]*Result, error) {
	var results []*Result
	for _, name := range phases {
		res, err := r.RunPhase(ctx, name, sprintNum, durationMinutes)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Error != "" {
			logging.Phase("sequence halted at %s: %s", name, res.Error)
			break
		}
	}
	return results, nil
}
