package sprint

import "sprintgym/internal/logging"

// Kanban column names in flow order.
var KanbanColumns = []string{"backlog", "todo", "in_progress", "review", "done"}

// Card is one work item on the board.
type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StoryPoints int    `json:"story_points"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	Column      string `json:"column"`
	Approved    bool   `json:"approved,omitempty"`
}

// Kanban tracks cards by column with optional per-column WIP limits.
type Kanban struct {
	columns   map[string][]Card
	WIPLimits map[string]int
}

// NewKanban returns an empty board with the standard columns.
func NewKanban(wipLimits map[string]int) *Kanban {
	cols := make(map[string][]Card, len(KanbanColumns))
	for _, c := range KanbanColumns {
		cols[c] = nil
	}
	limits := make(map[string]int, len(wipLimits))
	for k, v := range wipLimits {
		limits[k] = v
	}
	return &Kanban{columns: cols, WIPLimits: limits}
}

// AddCard places a card in its column, creating the column if needed.
func (k *Kanban) AddCard(card Card) {
	if card.Column == "" {
		card.Column = "backlog"
	}
	k.columns[card.Column] = append(k.columns[card.Column], card)
}

// MoveCard moves the card with the given id to the target column. Returns
// false if the card is not on the board or the target's WIP limit is hit.
func (k *Kanban) MoveCard(cardID, toColumn string) bool {
	if limit, ok := k.WIPLimits[toColumn]; ok && len(k.columns[toColumn]) >= limit {
		logging.Phase("kanban: WIP limit %d blocks move of %s to %s", limit, cardID, toColumn)
		return false
	}
	for col, cards := range k.columns {
		for i, c := range cards {
			if c.ID == cardID {
				k.columns[col] = append(cards[:i:i], cards[i+1:]...)
				c.Column = toColumn
				k.columns[toColumn] = append(k.columns[toColumn], c)
				return true
			}
		}
	}
	return false
}

// CardsIn returns the cards currently in a column.
func (k *Kanban) CardsIn(column string) []Card {
	return append([]Card(nil), k.columns[column]...)
}

// AllCards returns every card on the board in column order.
func (k *Kanban) AllCards() []Card {
	var out []Card
	for _, col := range KanbanColumns {
		out = append(out, k.columns[col]...)
	}
	return out
}

// SetAssignee records who owns a card.
func (k *Kanban) SetAssignee(cardID, agentID string) bool {
	for col, cards := range k.columns {
		for i := range cards {
			if cards[i].ID == cardID {
				k.columns[col][i].AssigneeID = agentID
				return true
			}
		}
	}
	return false
}

// SetApproved flips the approval flag on a card wherever it sits.
func (k *Kanban) SetApproved(cardID string, approved bool) bool {
	for col, cards := range k.columns {
		for i := range cards {
			if cards[i].ID == cardID {
				k.columns[col][i].Approved = approved
				return true
			}
		}
	}
	return false
}

// Snapshot returns a deep copy of the board as column -> cards.
func (k *Kanban) Snapshot() map[string][]Card {
	snap := make(map[string][]Card, len(k.columns))
	for col, cards := range k.columns {
		snap[col] = append([]Card(nil), cards...)
	}
	return snap
}

// Restore replaces the board's contents from a snapshot.
func (k *Kanban) Restore(snapshot map[string][]Card) {
	cols := make(map[string][]Card, len(snapshot))
	for _, c := range KanbanColumns {
		cols[c] = nil
	}
	for col, cards := range snapshot {
		cols[col] = append([]Card(nil), cards...)
	}
	k.columns = cols
}
