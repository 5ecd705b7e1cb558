package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sprintgym/internal/config"
	"sprintgym/internal/runtime"
	"sprintgym/internal/scenario"
	"sprintgym/internal/sprint"
)

func testFixture(t *testing.T) *sprint.Manager {
	t.Helper()
	cfg, err := config.NewBuilder().WithSprintDuration(0).WithNumSimulatedDays(1).WithTracing(true).Build()
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

func TestSaveWritesIndentedJSONAtExpectedPath(t *testing.T) {
	ctx := context.Background()
	fixture := testFixture(t)
	fixture.AttachTracers(1)
	fixture.SetAgentPhase("planning")
	if _, err := fixture.RunPlanning(ctx); err != nil {
		t.Fatalf("RunPlanning: %v", err)
	}

	m := NewManager(t.TempDir())
	path, err := m.Save(ctx, "ep-001", fixture, 1, "planning")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "s01-planning.json" {
		t.Errorf("unexpected filename %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		t.Fatalf("checkpoint not valid JSON: %v", err)
	}
	if cp.EpisodeID != "ep-001" || cp.Sprint != 1 || cp.Phase != "planning" {
		t.Errorf("header = %+v", cp)
	}
	if len(cp.ConfigHash) != 16 {
		t.Errorf("config hash %q not 16 chars", cp.ConfigHash)
	}
	if len(cp.AgentDecisions["dev_lead"]) == 0 {
		t.Error("checkpoint missing lead decisions")
	}
	if cp.Backlog.RemainingCount != 1 || len(cp.Backlog.SelectedIDs) != 1 {
		t.Errorf("backlog state = %+v", cp.Backlog)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fixture := testFixture(t)
	fixture.AttachTracers(1)
	fixture.SetAgentPhase("planning")
	fixture.RunPlanning(ctx)
	fixture.SetAgentPhase("development")
	fixture.RunDevelopment(ctx, 1, 0)
	fixture.AppendSprintResult(sprint.SprintResult{Sprint: 1, FeaturesCompleted: 1, FeaturesPlanned: 1})
	ml := sprint.MetaLearning{Sprint: 1, Category: "retrospective", Lesson: "demo early"}
	if err := fixture.DB.AddMetaLearning(ctx, ml); err != nil {
		t.Fatalf("AddMetaLearning: %v", err)
	}

	m := NewManager(t.TempDir())
	path, err := m.Save(ctx, "ep-rt", fixture, 1, "development")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Fresh fixture with the same roster and config, but a drifted backlog.
	fresh := testFixture(t)
	fresh.AttachTracers(1)
	fresh.Backlog.MarkReturned("ST-1")
	cp, err := m.Restore(ctx, path, fresh)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if diff := cmp.Diff(fixture.Kanban.Snapshot(), fresh.Kanban.Snapshot()); diff != "" {
		t.Errorf("kanban not restored (-saved +restored):\n%s", diff)
	}
	if len(fresh.SprintResults()) != 1 {
		t.Errorf("sprint results not restored: %d", len(fresh.SprintResults()))
	}
	lead := fresh.AgentByID("dev_lead")
	if len(lead.ConversationHistory) == 0 {
		t.Error("conversation history not restored")
	}
	if len(lead.Tracer.Decisions()) == 0 {
		t.Error("tracer decisions not restored")
	}
	if cp.Sprint != 1 || cp.Phase != "development" {
		t.Errorf("parsed checkpoint header = %+v", cp)
	}

	mls, err := fresh.DB.MetaLearnings(ctx)
	if err != nil {
		t.Fatalf("MetaLearnings: %v", err)
	}
	if len(mls) != 1 || mls[0].Lesson != ml.Lesson {
		t.Errorf("meta-learnings not restored: %+v", mls)
	}
	if !fresh.Backlog.SelectedIDs()["ST-1"] {
		t.Error("backlog selected ids not restored")
	}
	if remaining := fresh.Backlog.Remaining(); len(remaining) != 1 || remaining[0].ID != "ST-1" {
		t.Errorf("restored backlog remaining = %+v", remaining)
	}

	// Restoring again must not duplicate meta-learnings.
	if _, err := m.Restore(ctx, path, fresh); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	mls, err = fresh.DB.MetaLearnings(ctx)
	if err != nil {
		t.Fatalf("MetaLearnings: %v", err)
	}
	if len(mls) != 1 {
		t.Errorf("second restore duplicated meta-learnings: %d", len(mls))
	}
}

func TestRestoreConfigHashMismatchIsNotFatal(t *testing.T) {
	ctx := context.Background()
	fixture := testFixture(t)
	fixture.AttachTracers(1)

	m := NewManager(t.TempDir())
	path, err := m.Save(ctx, "ep-hash", fixture, 1, "planning")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fixture with a different config still restores.
	other := testFixture(t)
	other.Config.ExperimentName = "different"
	other.AttachTracers(1)
	if _, err := m.Restore(ctx, path, other); err != nil {
		t.Fatalf("Restore with mismatched config failed: %v", err)
	}
}

func TestRestoreSkipsUnknownAgents(t *testing.T) {
	ctx := context.Background()
	fixture := testFixture(t)
	fixture.AttachTracers(1)
	fixture.SetAgentPhase("planning")
	fixture.RunPlanning(ctx)

	m := NewManager(t.TempDir())
	path, _ := m.Save(ctx, "ep-skip", fixture, 1, "planning")

	smaller := testFixture(t)
	smaller.RemoveAgent("backend_dev")
	smaller.AttachTracers(1)
	if _, err := m.Restore(ctx, path, smaller); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if smaller.AgentByID("backend_dev") != nil {
		t.Error("restore resurrected a departed agent")
	}
}

func TestListCheckpointsLexicographicOrder(t *testing.T) {
	ctx := context.Background()
	fixture := testFixture(t)
	fixture.AttachTracers(1)

	m := NewManager(t.TempDir())
	for _, cp := range []struct {
		sprint int
		phase  string
	}{
		{1, "planning"},
		{1, "development"},
		{2, "planning"},
	} {
		if _, err := m.Save(ctx, "ep-001", fixture, cp.sprint, cp.phase); err != nil {
			t.Fatalf("Save s%02d-%s: %v", cp.sprint, cp.phase, err)
		}
	}

	names, err := m.ListCheckpoints("ep-001")
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	want := []string{"s01-development.json", "s01-planning.json", "s02-planning.json"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("checkpoint order (-want +got):\n%s", diff)
	}
}

func TestListCheckpointsUnknownEpisodeIsEmpty(t *testing.T) {
	m := NewManager(t.TempDir())
	names, err := m.ListCheckpoints("ep-missing")
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no checkpoints, got %v", names)
	}
}
