// Package checkpoint serializes mid-episode state to disk and restores it
// into a live sprint fixture. Files live at
// {root}/{episode_id}/s{NN}-{phase}.json; the zero-padded sprint prefix
// makes lexicographic order chronological.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sprintgym/internal/logging"
	"sprintgym/internal/sprint"
	"sprintgym/internal/trace"
)

// AgentState is the serializable slice of one agent.
type AgentState struct {
	ID                  string            `json:"id"`
	RoleID              string            `json:"role_id"`
	Name                string            `json:"name"`
	Seniority           string            `json:"seniority"`
	ConversationHistory []sprint.Message  `json:"conversation_history"`
	Swapped             bool              `json:"swapped"`
	SwapState           *sprint.SwapState `json:"swap_state,omitempty"`
}

// BacklogState captures what the team had committed to.
type BacklogState struct {
	RemainingCount int      `json:"remaining_count"`
	SelectedIDs    []string `json:"selected_ids"`
}

// Checkpoint is one mid-episode snapshot.
type Checkpoint struct {
	EpisodeID      string                      `json:"episode_id"`
	Sprint         int                         `json:"sprint_num"`
	Phase          string                      `json:"phase"`
	Timestamp      time.Time                   `json:"timestamp"`
	KanbanSnapshot map[string][]sprint.Card    `json:"kanban_snapshot"`
	Agents         []AgentState                `json:"agents"`
	SprintResults  []sprint.SprintResult       `json:"sprint_results"`
	MetaLearnings  []sprint.MetaLearning       `json:"meta_learnings"`
	AgentDecisions map[string][]trace.Decision `json:"agent_decisions"`
	Backlog        BacklogState                `json:"backlog"`
	ConfigHash     string                      `json:"config_hash"`
}

// Manager owns a checkpoint root directory.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{root: dir}
}

// Save snapshots the fixture and writes it atomically. Parent directories
// are created on demand.
func (m *Manager) Save(ctx context.Context, episodeID string, fixture *sprint.Manager, sprintNum int, phaseName string) (string, error) {
	cp := Checkpoint{
		EpisodeID:      episodeID,
		Sprint:         sprintNum,
		Phase:          phaseName,
		Timestamp:      time.Now().UTC(),
		KanbanSnapshot: fixture.Kanban.Snapshot(),
		SprintResults:  fixture.SprintResults(),
		AgentDecisions: make(map[string][]trace.Decision),
	}

	for _, a := range fixture.Agents {
		cp.Agents = append(cp.Agents, AgentState{
			ID:                  a.ID,
			RoleID:              a.Role.ID,
			Name:                a.Name,
			Seniority:           a.Seniority,
			ConversationHistory: append([]sprint.Message(nil), a.ConversationHistory...),
			Swapped:             a.Swapped,
			SwapState:           a.SwapState,
		})
		if a.Tracer != nil {
			cp.AgentDecisions[a.ID] = a.Tracer.Decisions()
		}
	}

	if fixture.DB != nil {
		if mls, err := fixture.DB.MetaLearnings(ctx); err == nil {
			cp.MetaLearnings = mls
		} else {
			logging.CheckpointWarn("failed to read meta-learnings for checkpoint: %v", err)
		}
	}

	if fixture.Backlog != nil {
		selected := fixture.Backlog.SelectedIDs()
		ids := make([]string, 0, len(selected))
		for id := range selected {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		cp.Backlog = BacklogState{
			RemainingCount: len(fixture.Backlog.Remaining()),
			SelectedIDs:    ids,
		}
	}

	if fixture.Config != nil {
		hash, err := fixture.Config.Hash()
		if err != nil {
			return "", fmt.Errorf("failed to hash config: %w", err)
		}
		cp.ConfigHash = hash
	}

	dir := filepath.Join(m.root, episodeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("s%02d-%s.json", sprintNum, phaseName))
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize checkpoint: %w", err)
	}

	logging.Checkpoint("saved %s (sprint=%d phase=%s)", path, sprintNum, phaseName)
	return path, nil
}

// Restore reads a checkpoint file and applies it to the fixture
// best-effort. A config-hash mismatch is logged but does not fail the
// restore. Unknown agent ids are skipped. Meta-learnings already in the
// target database are not re-added, so restoring twice does not
// duplicate them.
func (m *Manager) Restore(ctx context.Context, path string, fixture *sprint.Manager) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint %s: %w", path, err)
	}

	if fixture.Config != nil && cp.ConfigHash != "" {
		if hash, err := fixture.Config.Hash(); err == nil && hash != cp.ConfigHash {
			logging.CheckpointWarn("config hash mismatch: checkpoint %s vs current %s", cp.ConfigHash, hash)
		}
	}

	fixture.Kanban.Restore(cp.KanbanSnapshot)

	if fixture.DB != nil {
		var cards []sprint.Card
		for _, col := range cp.KanbanSnapshot {
			cards = append(cards, col...)
		}
		if err := fixture.DB.ReplaceCards(ctx, cards); err != nil {
			logging.CheckpointWarn("failed to restore cards: %v", err)
		}
		existing := make(map[string]bool)
		if mls, err := fixture.DB.MetaLearnings(ctx); err == nil {
			for _, ml := range mls {
				existing[metaLearningKey(ml)] = true
			}
		}
		for _, ml := range cp.MetaLearnings {
			if existing[metaLearningKey(ml)] {
				continue
			}
			if err := fixture.DB.AddMetaLearning(ctx, ml); err != nil {
				logging.CheckpointWarn("failed to restore meta-learning: %v", err)
				break
			}
		}
	}

	for _, state := range cp.Agents {
		agent := fixture.AgentByID(state.ID)
		if agent == nil {
			logging.CheckpointWarn("checkpoint agent %s not on roster, skipped", state.ID)
			continue
		}
		agent.ConversationHistory = append([]sprint.Message(nil), state.ConversationHistory...)
		agent.Swapped = state.Swapped
		agent.SwapState = state.SwapState
	}

	fixture.SetSprintResults(cp.SprintResults)

	for agentID, decisions := range cp.AgentDecisions {
		agent := fixture.AgentByID(agentID)
		if agent == nil || agent.Tracer == nil {
			continue
		}
		agent.Tracer.Restore(decisions)
	}

	if fixture.Backlog != nil {
		selected := make(map[string]bool, len(cp.Backlog.SelectedIDs))
		for _, id := range cp.Backlog.SelectedIDs {
			selected[id] = true
		}
		fixture.Backlog.SetSelectedIDs(selected)
	}

	logging.Checkpoint("restored %s (sprint=%d phase=%s)", path, cp.Sprint, cp.Phase)
	return &cp, nil
}

// metaLearningKey identifies a meta-learning for restore dedup.
func metaLearningKey(ml sprint.MetaLearning) string {
	return fmt.Sprintf("%d|%s|%s", ml.Sprint, ml.Category, ml.Lesson)
}

// ListCheckpoints returns the episode's checkpoint filenames sorted
// lexicographically, which is chronological thanks to the zero-padded
// sprint prefix.
func (m *Manager) ListCheckpoints(episodeID string) ([]string, error) {
	dir := filepath.Join(m.root, episodeID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list checkpoints in %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
