package action

import (
	"context"
	"testing"

	"sprintgym/internal/config"
	"sprintgym/internal/runtime"
	"sprintgym/internal/scenario"
	"sprintgym/internal/sprint"
)

func testFixture(t *testing.T) *sprint.Manager {
	t.Helper()
	cfg, err := config.NewBuilder().WithSprintDuration(0).WithNumSimulatedDays(1).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	agents := []*sprint.Agent{
		sprint.NewAgent("dev_lead", "Dana", sprint.Role{ID: "dev_lead", Archetype: "developer"}, "senior", nil),
		sprint.NewAgent("backend_dev", "Blake", sprint.Role{ID: "backend_dev", Archetype: "developer"}, "mid", nil),
	}
	for _, a := range agents {
		a.Runtime = runtime.NewMockRuntime()
	}

	backlog := sprint.NewBacklog([]scenario.Story{
		{ID: "ST-1", Title: "Login", Description: "login", StoryPoints: 3},
	})
	m := sprint.NewManager(cfg, agents, backlog, sprint.NewMockDB())
	if err := m.DB.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return m
}

func TestInjectDisturbanceWithoutEngineFails(t *testing.T) {
	e := NewExecutor(testFixture(t))
	res := e.Execute(InjectDisturbance{Type: "prod_incident", Severity: 0.5})
	if res.Success {
		t.Error("expected failure without an engine")
	}
	if res.Reason == "" {
		t.Error("failure should carry a reason")
	}
}

func TestInjectDisturbanceWithEngine(t *testing.T) {
	m := testFixture(t)
	m.Engine = sprint.NewDisturbanceEngine(map[string]float64{"sick_day": 1}, 1, 1, 3)
	e := NewExecutor(m)

	res := e.Execute(InjectDisturbance{Type: "sick_day", Severity: 0.4})
	if !res.Success {
		t.Fatalf("expected success: %+v", res)
	}
	if active := m.Engine.ActiveDisturbances(); len(active) != 1 {
		t.Errorf("active disturbances = %v", active)
	}

	// Engine errors are captured, not raised.
	res = e.Execute(InjectDisturbance{Type: "bogus", Severity: 0.4})
	if res.Success || res.Reason == "" {
		t.Errorf("expected captured failure: %+v", res)
	}
}

func TestSwapAgentRole(t *testing.T) {
	m := testFixture(t)
	e := NewExecutor(m)

	res := e.Execute(SwapAgentRole{AgentID: "backend_dev", TargetRoleID: "qa_lead", Proficiency: 0.7})
	if !res.Success {
		t.Fatalf("swap failed: %+v", res)
	}
	agent := m.AgentByID("backend_dev")
	if !agent.Swapped || agent.Role.ID != "qa_lead" {
		t.Errorf("swap not applied: %+v", agent)
	}

	res = e.Execute(SwapAgentRole{AgentID: "ghost", TargetRoleID: "qa_lead"})
	if res.Success {
		t.Error("swap of unknown agent should fail")
	}
}

func TestModifyBacklog(t *testing.T) {
	m := testFixture(t)
	e := NewExecutor(m)

	res := e.Execute(ModifyBacklog{Op: BacklogAdd, Story: scenario.Story{ID: "INJECTED-1", Title: "Injected", Description: "added mid-episode"}})
	if !res.Success {
		t.Fatalf("add failed: %+v", res)
	}
	found := false
	for _, s := range m.Backlog.Remaining() {
		if s.ID == "INJECTED-1" {
			found = true
		}
	}
	if !found {
		t.Error("injected story not in backlog")
	}

	res = e.Execute(ModifyBacklog{Op: BacklogRemove, StoryID: "ST-1"})
	if !res.Success {
		t.Fatalf("remove failed: %+v", res)
	}
	res = e.Execute(ModifyBacklog{Op: BacklogRemove, StoryID: "ST-1"})
	if res.Success {
		t.Error("removing an already-returned story should fail")
	}
	res = e.Execute(ModifyBacklog{Op: BacklogAdd})
	if res.Success {
		t.Error("add without a story id should fail")
	}
}

func TestModifyTeamComposition(t *testing.T) {
	m := testFixture(t)
	e := NewExecutor(m)

	res := e.Execute(ModifyTeamComposition{Op: TeamDepart, AgentID: "backend_dev"})
	if !res.Success {
		t.Fatalf("depart failed: %+v", res)
	}
	if m.AgentByID("backend_dev") != nil {
		t.Error("departed agent still on roster")
	}

	res = e.Execute(ModifyTeamComposition{Op: TeamBackfill, AgentID: "newbie"})
	if !res.Success {
		t.Fatalf("backfill failed: %+v", res)
	}
	newbie := m.AgentByID("newbie")
	if newbie == nil {
		t.Fatal("backfilled agent missing")
	}
	if newbie.Role.ID != "backend_dev" || newbie.Seniority != "junior" {
		t.Errorf("backfill defaults not applied: %+v", newbie)
	}
}

func TestAdjustSprintParams(t *testing.T) {
	m := testFixture(t)
	e := NewExecutor(m)

	minutes := 3
	res := e.Execute(AdjustSprintParams{
		DurationMinutes: &minutes,
		WIPLimits:       map[string]int{"in_progress": 2},
	})
	if !res.Success {
		t.Fatalf("adjust failed: %+v", res)
	}
	if m.Config.SprintDurationMinutes != 3 {
		t.Errorf("duration = %d", m.Config.SprintDurationMinutes)
	}
	if m.Kanban.WIPLimits["in_progress"] != 2 {
		t.Errorf("wip limits = %v", m.Kanban.WIPLimits)
	}
}

func TestExecuteBatchCollectsAllResults(t *testing.T) {
	m := testFixture(t)
	e := NewExecutor(m)

	results := e.ExecuteBatch([]Action{
		InjectDisturbance{Type: "prod_incident", Severity: 0.5}, // fails, no engine
		ModifyBacklog{Op: BacklogRemove, StoryID: "ST-1"},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Success {
		t.Error("first action should fail")
	}
	if !results[1].Success {
		t.Errorf("second action should succeed despite the first failing: %+v", results[1])
	}
}

type rogueAction struct{}

func (rogueAction) isAction()    {}
func (rogueAction) Kind() string { return "rogue" }

func TestUnknownVariantPanics(t *testing.T) {
	e := NewExecutor(testFixture(t))
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown action variant")
		}
	}()
	e.Execute(rogueAction{})
}

func TestSpaceSpecCoversAllVariants(t *testing.T) {
	for _, a := range []Action{
		InjectDisturbance{}, SwapAgentRole{}, ModifyBacklog{}, ModifyTeamComposition{}, AdjustSprintParams{},
	} {
		if _, ok := SpaceSpec[a.Kind()]; !ok {
			t.Errorf("SpaceSpec missing %s", a.Kind())
		}
	}
	if len(SpaceSpec) != 5 {
		t.Errorf("SpaceSpec has %d entries, want 5", len(SpaceSpec))
	}
}
