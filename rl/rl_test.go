package rl

import (
	"context"
	"testing"
)

// The public surface should be enough to run an episode end to end without
// touching internal packages.
func TestPublicSurfaceRunsAnEpisode(t *testing.T) {
	runner := NewEpisodeRunner(t.TempDir())
	res, err := runner.RunEpisode(context.Background(), EpisodeParams{
		EpisodeType: "implementation",
		Difficulty:  0.4,
		Seed:        21,
	})
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if res.Reward.Total < 0 || res.Reward.Total > 1 {
		t.Errorf("reward total %v out of [0,1]", res.Reward.Total)
	}
}

func TestCatalogAndCodesExported(t *testing.T) {
	if len(EpisodeTypes) != 13 {
		t.Errorf("EpisodeTypes has %d entries, want 13", len(EpisodeTypes))
	}
	if len(BehavioralCodes) != 30 {
		t.Errorf("BehavioralCodes has %d entries, want 30", len(BehavioralCodes))
	}
	if len(ActionSpaceSpec) != 5 {
		t.Errorf("ActionSpaceSpec has %d entries, want 5", len(ActionSpaceSpec))
	}
}

func TestRegisterRuntimeVisibleInRegistry(t *testing.T) {
	RegisterRuntime("custom_backend", func(cfg RuntimeConfig, tools []RuntimeTool) (Runtime, error) {
		return nil, nil
	})
	found := false
	for _, name := range RegisteredRuntimeTypes() {
		if name == "custom_backend" {
			found = true
		}
	}
	if !found {
		t.Error("registered runtime type not listed")
	}
}
