// Package sprint implements the multi-agent sprint fixture: agents, kanban
// board, backlog, disturbance engine, persistence, and the manager that
// drives the five sprint ceremonies. The episode harness composes these
// through the Manager; nothing here knows about rewards or scoring.
package sprint

import (
	"fmt"

	"sprintgym/internal/logging"
	"sprintgym/internal/runtime"
	"sprintgym/internal/trace"
)

// Role identifies what an agent does on the team.
type Role struct {
	ID        string `json:"id"`
	Archetype string `json:"archetype"`
}

// SwapState records a mid-sprint role change so observers and checkpoints
// can see where the agent came from.
type SwapState struct {
	FromRoleID  string  `json:"from_role_id"`
	ToRoleID    string  `json:"to_role_id"`
	Domain      string  `json:"domain"`
	Proficiency float64 `json:"proficiency"`
	Sprint      int     `json:"sprint"`
}

// Message is one entry in an agent's conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Agent is one team member. Agents are owned by exactly one Manager and are
// never shared between episodes.
type Agent struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Role                Role       `json:"role"`
	Seniority           string     `json:"seniority"`
	Specializations     []string   `json:"specializations"`
	Swapped             bool       `json:"swapped"`
	SwapState           *SwapState `json:"swap_state,omitempty"`
	ConversationHistory []Message  `json:"conversation_history"`

	CurrentPhase string          `json:"-"`
	Tracer       *trace.Tracer   `json:"-"`
	Runtime      runtime.Runtime `json:"-"`
}

// NewAgent builds an agent with an empty history and no tracer attached.
func NewAgent(id, name string, role Role, seniority string, specializations []string) *Agent {
	return &Agent{
		ID:              id,
		Name:            name,
		Role:            role,
		Seniority:       seniority,
		Specializations: append([]string(nil), specializations...),
	}
}

// SwapTo moves the agent into a new role mid-sprint, recording the prior
// role in SwapState. Proficiency below 1.0 models ramp-up in the new role.
func (a *Agent) SwapTo(targetRoleID, domain string, proficiency float64, sprintNum int) error {
	if targetRoleID == "" {
		return fmt.Errorf("agent %s: target role must not be empty", a.ID)
	}
	a.SwapState = &SwapState{
		FromRoleID:  a.Role.ID,
		ToRoleID:    targetRoleID,
		Domain:      domain,
		Proficiency: proficiency,
		Sprint:      sprintNum,
	}
	a.Role = Role{ID: targetRoleID, Archetype: a.Role.Archetype}
	a.Swapped = true
	logging.Phase("agent %s swapped to role %s (proficiency %.2f)", a.ID, targetRoleID, proficiency)
	return nil
}

// AppendMessage adds one turn to the conversation history.
func (a *Agent) AppendMessage(role, content string) {
	a.ConversationHistory = append(a.ConversationHistory, Message{Role: role, Content: content})
}
