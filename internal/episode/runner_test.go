package episode

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"sprintgym/internal/action"
	"sprintgym/internal/scenario"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunImplementationEpisode(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.RunEpisode(context.Background(), Params{
		EpisodeType: "implementation",
		Difficulty:  0.5,
		Seed:        42,
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}

	if res.Scenario.EpisodeType != "implementation" || res.Scenario.Stage != 1 {
		t.Errorf("scenario = %+v", res.Scenario)
	}
	if len(res.PhaseResults) < 1 {
		t.Fatal("no phase results")
	}
	if res.PhaseResults[0].Phase != "development" {
		t.Errorf("first phase = %s, want development", res.PhaseResults[0].Phase)
	}
	if res.Reward.Total < 0 || res.Reward.Total > 1 {
		t.Errorf("reward total %v out of [0,1]", res.Reward.Total)
	}
	if res.SprintResult.Velocity != float64(res.SprintResult.FeaturesCompleted*3) {
		t.Errorf("velocity %v != 3x features %d", res.SprintResult.Velocity, res.SprintResult.FeaturesCompleted)
	}
	if !res.Terminated || res.Truncated {
		t.Errorf("terminated=%v truncated=%v", res.Terminated, res.Truncated)
	}
	if !strings.HasPrefix(res.EpisodeID, "ep-") || len(res.EpisodeID) != 11 {
		t.Errorf("episode id %q not ep- plus 8 hex", res.EpisodeID)
	}
}

func TestRunRecoveryEpisodeEnablesDisturbances(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.RunEpisode(context.Background(), Params{
		EpisodeType: "recovery",
		Difficulty:  0.6,
		Seed:        99,
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if res.Scenario.Stage != 2 {
		t.Errorf("stage = %d, want 2", res.Scenario.Stage)
	}
	hasDev := false
	for _, p := range res.Scenario.Phases {
		if p == "development" {
			hasDev = true
		}
	}
	if !hasDev {
		t.Errorf("phase list %v missing development", res.Scenario.Phases)
	}
	if !res.Scenario.Disturbances.Enabled {
		t.Error("disturbance overrides should be enabled at difficulty 0.6")
	}
}

func TestCheckpointEveryPhaseWritesFiles(t *testing.T) {
	workspace := t.TempDir()
	r := NewRunner(workspace)
	res, err := r.RunEpisode(context.Background(), Params{
		EpisodeType:          "elicitation",
		Difficulty:           0.3,
		Seed:                 7,
		CheckpointEveryPhase: true,
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(workspace, "checkpoints", "ep-*", "s01-*.json"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no checkpoint files written")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("checkpoint not valid JSON: %v", err)
	}
	for _, key := range []string{"episode_id", "sprint_num", "kanban_snapshot"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("checkpoint missing %q", key)
		}
	}
	if raw["episode_id"] != res.EpisodeID {
		t.Errorf("checkpoint episode id %v != %s", raw["episode_id"], res.EpisodeID)
	}
}

func TestPrePhaseActionsApplyBeforeDevelopment(t *testing.T) {
	r := NewRunner(t.TempDir())
	minutes := 3
	res, err := r.RunEpisode(context.Background(), Params{
		EpisodeType: "implementation",
		Difficulty:  0.3,
		Seed:        11,
		Actions: []action.Action{
			action.AdjustSprintParams{DurationMinutes: &minutes},
			action.ModifyBacklog{Op: action.BacklogAdd, Story: scenario.Story{
				ID: "INJECTED-1", Title: "Injected", Description: "added before any phase ran",
			}},
		},
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if !res.Terminated {
		t.Error("episode should terminate")
	}
	if len(res.ActionResults) != 2 {
		t.Fatalf("action results = %+v", res.ActionResults)
	}
	for i, ar := range res.ActionResults {
		if !ar.Success {
			t.Errorf("action %d failed: %+v", i, ar)
		}
	}

	// The injected story made it onto the board during planning-free
	// development: it shows up in the final kanban snapshot.
	found := false
	for _, cards := range res.Observation.KanbanSnapshot {
		for _, c := range cards {
			if c.ID == "INJECTED-1" {
				found = true
			}
		}
	}
	if !found {
		t.Error("injected story never reached the board")
	}
}

func TestTracesRecordedPerAgent(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.RunEpisode(context.Background(), Params{
		EpisodeType: "testing",
		Difficulty:  0.4,
		Seed:        5,
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if len(res.Traces) != 5 {
		t.Errorf("traces for %d agents, want 5", len(res.Traces))
	}
	dev := res.Traces["backend_dev"]
	if len(dev) == 0 {
		t.Fatal("backend_dev produced no decisions")
	}
	for _, d := range dev {
		if !strings.HasPrefix(d.ID, "backend_dev-s01-") {
			t.Errorf("decision id %q lacks agent/sprint prefix", d.ID)
		}
	}
	if res.BehavioralScore.Score < 0 || res.BehavioralScore.Score > 1 {
		t.Errorf("behavioral score %v out of [0,1]", res.BehavioralScore.Score)
	}
}

func TestEpisodeResultSerializable(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.RunEpisode(context.Background(), Params{
		EpisodeType: "implementation",
		Difficulty:  0.3,
		Seed:        1,
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if _, err := json.Marshal(res); err != nil {
		t.Errorf("episode result not serializable: %v", err)
	}
}

func TestUnknownEpisodeTypeFailsFast(t *testing.T) {
	r := NewRunner(t.TempDir())
	_, err := r.RunEpisode(context.Background(), Params{EpisodeType: "vacation"})
	if err == nil {
		t.Fatal("expected error for unknown episode type")
	}
	if !strings.Contains(err.Error(), "implementation") {
		t.Errorf("error should enumerate types: %v", err)
	}
}

func TestEpisodeIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := newEpisodeID()
		if seen[id] {
			t.Fatalf("duplicate episode id %s", id)
		}
		seen[id] = true
	}
}
