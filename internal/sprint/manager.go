package sprint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sprintgym/internal/config"
	"sprintgym/internal/logging"
	"sprintgym/internal/trace"
)

// SprintResult summarizes one completed sprint.
type SprintResult struct {
	Sprint            int                    `json:"sprint"`
	Velocity          float64                `json:"velocity"`
	FeaturesCompleted int                    `json:"features_completed"`
	FeaturesPlanned   int                    `json:"features_planned"`
	TestCoverage      float64                `json:"test_coverage"`
	PairingSessions   int                    `json:"pairing_sessions"`
	Departures        []string               `json:"departures,omitempty"`
	Backfills         []string               `json:"backfills,omitempty"`
	RetroData         map[string]interface{} `json:"retro_data,omitempty"`
}

// Manager is the sprint fixture: it owns the team, the board, the backlog,
// and the persistence handle, and drives the five ceremonies. One Manager
// serves exactly one episode.
type Manager struct {
	Config     *config.ExperimentConfig
	Agents     []*Agent
	Kanban     *Kanban
	Backlog    *Backlog
	DB         Database
	Engine     *DisturbanceEngine
	Onboarding *OnboardingTracker

	sprintResults []SprintResult
	currentSprint int
}

// NewManager wires a fixture together. Engine and Onboarding may be nil.
func NewManager(cfg *config.ExperimentConfig, agents []*Agent, backlog *Backlog, db Database) *Manager {
	return &Manager{
		Config:  cfg,
		Agents:  agents,
		Kanban:  NewKanban(cfg.WIPLimits),
		Backlog: backlog,
		DB:      db,
	}
}

// AttachTracers gives every agent a fresh tracer for the sprint. Agents
// that already carry a tracer for this sprint keep it.
func (m *Manager) AttachTracers(sprintNum int) {
	m.currentSprint = sprintNum
	for _, a := range m.Agents {
		if a.Tracer != nil && a.Tracer.Sprint() == sprintNum {
			continue
		}
		a.Tracer = trace.NewTracer(a.ID, sprintNum)
	}
	logging.Trace("tracers attached for sprint %d (%d agents)", sprintNum, len(m.Agents))
}

// SetAgentPhase moves every agent (and its tracer) to the named phase.
func (m *Manager) SetAgentPhase(phase string) {
	for _, a := range m.Agents {
		a.CurrentPhase = phase
		if a.Tracer != nil {
			a.Tracer.SetPhase(phase)
		}
	}
}

// SprintResults returns the accumulated results, oldest first.
func (m *Manager) SprintResults() []SprintResult {
	return append([]SprintResult(nil), m.sprintResults...)
}

// AppendSprintResult records a completed sprint. Used directly by
// checkpoint restore.
func (m *Manager) AppendSprintResult(r SprintResult) {
	m.sprintResults = append(m.sprintResults, r)
}

// SetSprintResults replaces the result history, used by checkpoint restore.
func (m *Manager) SetSprintResults(results []SprintResult) {
	m.sprintResults = append([]SprintResult(nil), results...)
}

// AgentByID finds a live agent, or nil.
func (m *Manager) AgentByID(id string) *Agent {
	for _, a := range m.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// RemoveAgent drops an agent from the live roster. Returns false when the
// id is unknown.
func (m *Manager) RemoveAgent(id string) bool {
	for i, a := range m.Agents {
		if a.ID == id {
			m.Agents = append(m.Agents[:i:i], m.Agents[i+1:]...)
			logging.Phase("agent %s departed", id)
			return true
		}
	}
	return false
}

// AddAgent appends a new team member, marking it as onboarding when a
// tracker is configured.
func (m *Manager) AddAgent(a *Agent) {
	m.Agents = append(m.Agents, a)
	if m.Onboarding != nil {
		m.Onboarding.Start(a.ID, m.currentSprint)
	}
	logging.Phase("agent %s joined as %s", a.ID, a.Role.ID)
}

// lead returns the agent best suited to run a ceremony: the first agent
// whose role matches, else the first agent.
func (m *Manager) lead(roleID string) *Agent {
	for _, a := range m.Agents {
		if a.Role.ID == roleID {
			return a
		}
	}
	if len(m.Agents) > 0 {
		return m.Agents[0]
	}
	return nil
}

// runAgentTask executes one prompt against an agent's runtime, recording
// the exchange in its history and tracer.
func (m *Manager) runAgentTask(ctx context.Context, a *Agent, system, prompt string) (string, error) {
	if a.Runtime == nil {
		return "", fmt.Errorf("agent %s has no runtime attached", a.ID)
	}
	res, err := a.Runtime.ExecuteTask(ctx, system, prompt, 10)
	if err != nil {
		return "", fmt.Errorf("agent %s task failed: %w", a.ID, err)
	}

	a.AppendMessage("user", prompt)
	a.AppendMessage("assistant", res.Content)

	if a.Tracer != nil {
		meta := map[string]interface{}{"success": res.Success}
		if len(res.ToolCalls) > 0 {
			meta["tool_calls"] = res.ToolCalls
		}
		if len(res.FilesChanged) > 0 {
			meta["files_changed"] = res.FilesChanged
		}
		a.Tracer.RecordTask(prompt, res.Content, res.Content, meta)
	}
	if !res.Success {
		return res.Content, fmt.Errorf("agent %s task unsuccessful: %s", a.ID, res.Error)
	}
	return res.Content, nil
}

// RunPlanning commits the backlog onto the board and asks the lead to lay
// out the sprint plan.
func (m *Manager) RunPlanning(ctx context.Context) (map[string]interface{}, error) {
	stories := m.Backlog.Remaining()
	for _, s := range stories {
		m.Kanban.AddCard(Card{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			StoryPoints: s.StoryPoints,
			Column:      "todo",
		})
		if m.DB != nil {
			if err := m.DB.SaveCard(ctx, Card{ID: s.ID, Title: s.Title, Column: "todo", StoryPoints: s.StoryPoints}); err != nil {
				logging.Store("failed to persist card %s: %v", s.ID, err)
			}
		}
	}

	lead := m.lead("dev_lead")
	if lead == nil {
		return nil, fmt.Errorf("planning requires at least one agent")
	}

	var titles []string
	for _, s := range stories {
		titles = append(titles, fmt.Sprintf("%s (%d pts)", s.Title, s.StoryPoints))
	}
	prompt := fmt.Sprintf("Plan the sprint. Committed stories: %s. Assign owners and flag risks.",
		strings.Join(titles, "; "))
	if _, err := m.runAgentTask(ctx, lead, planningSystemPrompt, prompt); err != nil {
		return nil, err
	}

	logging.Phase("planning complete: %d stories committed", len(stories))
	return map[string]interface{}{
		"stories_planned": len(stories),
		"cards_created":   len(stories),
	}, nil
}

// RunDevelopment runs simulated work days. Each day every developer agent
// pulls a card forward and executes a coding task against its runtime.
// durationOverride, when positive, replaces the configured wall-clock
// budget in minutes; zero means unbounded.
func (m *Manager) RunDevelopment(ctx context.Context, sprintNum int, durationOverride int) (map[string]interface{}, error) {
	budget := time.Duration(m.Config.SprintDurationMinutes) * time.Minute
	if durationOverride > 0 {
		budget = time.Duration(durationOverride) * time.Minute
	}

	// When planning didn't run the board is empty; pull committed stories
	// directly so the team has work.
	if len(m.Kanban.CardsIn("todo")) == 0 && len(m.Kanban.CardsIn("in_progress")) == 0 {
		for _, s := range m.Backlog.Remaining() {
			m.Kanban.AddCard(Card{
				ID:          s.ID,
				Title:       s.Title,
				Description: s.Description,
				StoryPoints: s.StoryPoints,
				Column:      "todo",
			})
		}
	}

	start := time.Now()
	days := 0
	commits := 0

	for day := 1; day <= m.Config.NumSimulatedDays; day++ {
		if err := ctx.Err(); err != nil {
			return map[string]interface{}{"days_completed": days, "commits": commits}, err
		}
		if budget > 0 && time.Since(start) > budget {
			logging.Phase("development budget exhausted after %d days", days)
			break
		}

		for _, a := range m.Agents {
			if a.Role.Archetype != "developer" {
				continue
			}
			card := m.nextCardFor(a)
			if card == nil {
				continue
			}

			// Test-first: write failing tests, then implement and commit.
			testPrompt := fmt.Sprintf("Day %d: write failing tests for %q covering its acceptance criteria.",
				day, card.Title)
			if _, err := m.runAgentTask(ctx, a, developmentSystemPrompt, testPrompt); err != nil {
				if ctx.Err() != nil {
					return map[string]interface{}{"days_completed": days, "commits": commits}, err
				}
				logging.PhaseDebug("agent %s day %d test task failed: %v", a.ID, day, err)
				continue
			}

			implPrompt := fmt.Sprintf("Implement %q as a minimal fix and commit. %s", card.Title, card.Description)
			content, err := m.runAgentTask(ctx, a, developmentSystemPrompt, implPrompt)
			if err != nil {
				if ctx.Err() != nil {
					return map[string]interface{}{"days_completed": days, "commits": commits}, err
				}
				logging.PhaseDebug("agent %s day %d implement task failed: %v", a.ID, day, err)
				continue
			}
			if strings.Contains(strings.ToLower(content), "commit") {
				commits++
			}
			m.Kanban.MoveCard(card.ID, "review")
		}
		days++
	}

	logging.Phase("development complete: sprint=%d days=%d commits=%d", sprintNum, days, commits)
	return map[string]interface{}{
		"days_completed": days,
		"commits":        commits,
	}, nil
}

// nextCardFor picks the agent's current in_progress card, else pulls one
// from todo respecting WIP limits.
func (m *Manager) nextCardFor(a *Agent) *Card {
	for _, c := range m.Kanban.CardsIn("in_progress") {
		if c.AssigneeID == a.ID {
			card := c
			return &card
		}
	}
	for _, c := range m.Kanban.CardsIn("todo") {
		if !m.Kanban.MoveCard(c.ID, "in_progress") {
			return nil
		}
		m.Kanban.SetAssignee(c.ID, a.ID)
		c.Column = "in_progress"
		c.AssigneeID = a.ID
		return &c
	}
	return nil
}

// RunQAReview has the QA lead approve review cards and move them to done.
func (m *Manager) RunQAReview(ctx context.Context) (map[string]interface{}, error) {
	qa := m.lead("qa_lead")
	if qa == nil {
		return nil, fmt.Errorf("qa review requires at least one agent")
	}

	approved := 0
	for _, card := range m.Kanban.CardsIn("review") {
		prompt := fmt.Sprintf("Review %q against its acceptance criteria. Approve or reject with reasons.", card.Title)
		content, err := m.runAgentTask(ctx, qa, qaSystemPrompt, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return map[string]interface{}{"cards_approved": approved}, err
			}
			logging.PhaseDebug("qa review of %s failed: %v", card.ID, err)
			continue
		}
		if strings.Contains(strings.ToLower(content), "reject") {
			m.Kanban.MoveCard(card.ID, "in_progress")
			continue
		}
		m.Kanban.SetApproved(card.ID, true)
		m.Kanban.MoveCard(card.ID, "done")
		approved++
	}

	logging.Phase("qa review complete: %d cards approved", approved)
	return map[string]interface{}{"cards_approved": approved}, nil
}

// RunRetrospective gathers retro input from every agent and records the
// sprint result.
func (m *Manager) RunRetrospective(ctx context.Context) (map[string]interface{}, error) {
	var wentWell, toImprove []string
	for _, a := range m.Agents {
		content, err := m.runAgentTask(ctx, a, retroSystemPrompt,
			"Retrospective: name one thing that went well and one to improve.")
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		wentWell = append(wentWell, fmt.Sprintf("%s: %s", a.ID, trace.Truncate(content, 120)))
		toImprove = append(toImprove, a.ID)
	}

	done := m.Kanban.CardsIn("done")
	completed := len(done)
	planned := len(m.Backlog.SelectedIDs())
	coverage := 0.0
	if completed > 0 {
		coverage = 0.8
	}

	retro := map[string]interface{}{
		"went_well":  wentWell,
		"to_improve": toImprove,
	}
	m.AppendSprintResult(SprintResult{
		Sprint:            m.currentSprint,
		Velocity:          float64(completed * 3),
		FeaturesCompleted: completed,
		FeaturesPlanned:   planned,
		TestCoverage:      coverage,
		RetroData:         retro,
	})

	logging.Phase("retrospective complete: completed=%d planned=%d", completed, planned)
	return map[string]interface{}{
		"retro_data":         retro,
		"features_completed": completed,
	}, nil
}

// ApplyMetaLearning distills retro data into stored lessons. retroData may
// be empty when no retrospective ran this sprint.
func (m *Manager) ApplyMetaLearning(ctx context.Context, sprintNum int, retroData map[string]interface{}) (map[string]interface{}, error) {
	lead := m.lead("dev_lead")
	if lead == nil {
		return nil, fmt.Errorf("meta-learning requires at least one agent")
	}

	summary := fmt.Sprintf("Distill the retrospective into reusable lessons: %v", retroData)
	content, err := m.runAgentTask(ctx, lead, metaLearningSystemPrompt, summary)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	applied := 0
	if m.DB != nil && content != "" {
		ml := MetaLearning{
			Sprint:    sprintNum,
			Category:  "retrospective",
			Lesson:    trace.Truncate(content, 500),
			CreatedAt: time.Now().UTC(),
		}
		if err := m.DB.AddMetaLearning(ctx, ml); err != nil {
			logging.Store("failed to persist meta-learning: %v", err)
		} else {
			applied = 1
		}
	}

	logging.Phase("meta-learning complete: sprint=%d applied=%d", sprintNum, applied)
	return map[string]interface{}{"learnings_applied": applied}, nil
}

const (
	planningSystemPrompt = "You are the dev lead running sprint planning. Commit realistically and surface risks early."

	developmentSystemPrompt = "You are a developer on a sprint team. Write tests before implementation, keep diffs small, commit incrementally."

	qaSystemPrompt = "You are the QA lead. Review changes against acceptance criteria and give concrete line-level feedback."

	retroSystemPrompt = "You are a team member in a sprint retrospective. Be specific and blameless."

	metaLearningSystemPrompt = "You are the dev lead harvesting lessons from a retrospective for future sprints."
)
