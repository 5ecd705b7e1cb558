package sprint

import (
	"sprintgym/internal/logging"
	"sprintgym/internal/scenario"
)

// Backlog holds the stories available to the team for the episode. Selected
// ids track what planning committed to; returned ids track stories handed
// back mid-sprint (scope changes, descoping).
type Backlog struct {
	stories     []scenario.Story
	selectedIDs map[string]bool
	returnedIDs map[string]bool
}

// NewBacklog builds a backlog from scenario stories. All stories start
// selected; planning may descope.
func NewBacklog(stories []scenario.Story) *Backlog {
	b := &Backlog{
		stories:     append([]scenario.Story(nil), stories...),
		selectedIDs: make(map[string]bool, len(stories)),
		returnedIDs: make(map[string]bool),
	}
	for _, s := range stories {
		b.selectedIDs[s.ID] = true
	}
	return b
}

// AddStory appends a story and selects it.
func (b *Backlog) AddStory(s scenario.Story) {
	b.stories = append(b.stories, s)
	b.selectedIDs[s.ID] = true
	logging.Scenario("backlog: added story %s (%s)", s.ID, s.Title)
}

// MarkReturned flags a story as handed back. The story stays in the list
// but no longer counts as remaining. Returning a story twice fails.
func (b *Backlog) MarkReturned(storyID string) bool {
	if b.returnedIDs[storyID] {
		return false
	}
	for _, s := range b.stories {
		if s.ID == storyID {
			b.returnedIDs[storyID] = true
			delete(b.selectedIDs, storyID)
			logging.Scenario("backlog: story %s returned", storyID)
			return true
		}
	}
	return false
}

// Remaining returns the selected, non-returned stories.
func (b *Backlog) Remaining() []scenario.Story {
	var out []scenario.Story
	for _, s := range b.stories {
		if b.selectedIDs[s.ID] && !b.returnedIDs[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// SelectedIDs returns the set of committed story ids.
func (b *Backlog) SelectedIDs() map[string]bool {
	out := make(map[string]bool, len(b.selectedIDs))
	for id := range b.selectedIDs {
		out[id] = true
	}
	return out
}

// SetSelectedIDs replaces the committed set, used by checkpoint restore.
// Re-selecting a story clears its returned flag.
func (b *Backlog) SetSelectedIDs(ids map[string]bool) {
	b.selectedIDs = make(map[string]bool, len(ids))
	for id, v := range ids {
		if v {
			b.selectedIDs[id] = true
			delete(b.returnedIDs, id)
		}
	}
}

// Stories returns every story the backlog has seen, returned or not.
func (b *Backlog) Stories() []scenario.Story {
	return append([]scenario.Story(nil), b.stories...)
}
