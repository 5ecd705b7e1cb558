// Package action defines the closed action space an RL policy can take
// against the sprint world, and the executor that applies actions to a
// sprint manager.
package action

import (
	"fmt"

	"sprintgym/internal/logging"
	"sprintgym/internal/scenario"
	"sprintgym/internal/sprint"
)

// Action is the closed sum over the five action variants. Only types in
// this package implement it.
type Action interface {
	isAction()
	Kind() string
}

// InjectDisturbance triggers one disturbance through the engine.
type InjectDisturbance struct {
	Type     string  `json:"type"`
	Severity float64 `json:"severity"`
}

// SwapAgentRole moves an agent into a different role mid-sprint.
type SwapAgentRole struct {
	AgentID      string  `json:"agent_id"`
	TargetRoleID string  `json:"target_role_id"`
	Proficiency  float64 `json:"proficiency"`
}

// BacklogOp selects the backlog mutation.
type BacklogOp string

const (
	BacklogAdd    BacklogOp = "add"
	BacklogRemove BacklogOp = "remove"
)

// ModifyBacklog adds a story or marks one returned.
type ModifyBacklog struct {
	Op      BacklogOp      `json:"op"`
	Story   scenario.Story `json:"story,omitempty"`
	StoryID string         `json:"story_id,omitempty"`
}

// TeamOp selects the roster mutation.
type TeamOp string

const (
	TeamDepart   TeamOp = "depart"
	TeamBackfill TeamOp = "backfill"
)

// BackfillConfig describes the replacement agent; zero fields get defaults.
type BackfillConfig struct {
	Name            string   `json:"name,omitempty"`
	RoleID          string   `json:"role_id,omitempty"`
	Archetype       string   `json:"archetype,omitempty"`
	Seniority       string   `json:"seniority,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
}

// ModifyTeamComposition removes an agent or backfills a new one.
type ModifyTeamComposition struct {
	Op       TeamOp          `json:"op"`
	AgentID  string          `json:"agent_id"`
	Backfill *BackfillConfig `json:"backfill_config,omitempty"`
}

// AdjustSprintParams mutates sprint duration and/or WIP limits in place.
// Nil fields leave the current value untouched.
type AdjustSprintParams struct {
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	WIPLimits       map[string]int `json:"wip_limits,omitempty"`
}

func (InjectDisturbance) isAction()     {}
func (SwapAgentRole) isAction()         {}
func (ModifyBacklog) isAction()         {}
func (ModifyTeamComposition) isAction() {}
func (AdjustSprintParams) isAction()    {}

func (InjectDisturbance) Kind() string     { return "inject_disturbance" }
func (SwapAgentRole) Kind() string         { return "swap_agent_role" }
func (ModifyBacklog) Kind() string         { return "modify_backlog" }
func (ModifyTeamComposition) Kind() string { return "modify_team_composition" }
func (AdjustSprintParams) Kind() string    { return "adjust_sprint_params" }

// SpaceSpec documents the action space for policy authors and tooling.
var SpaceSpec = map[string]map[string]string{
	"inject_disturbance": {
		"type":     "disturbance type name, e.g. prod_incident",
		"severity": "float in [0,1]",
	},
	"swap_agent_role": {
		"agent_id":       "id of a live agent",
		"target_role_id": "role to swap into",
		"proficiency":    "float in [0,1], ramp-up discount in the new role",
	},
	"modify_backlog": {
		"op":       "add | remove",
		"story":    "story object (add)",
		"story_id": "story id (remove)",
	},
	"modify_team_composition": {
		"op":              "depart | backfill",
		"agent_id":        "id of the departing or new agent",
		"backfill_config": "optional replacement description (backfill)",
	},
	"adjust_sprint_params": {
		"duration_minutes": "optional new sprint duration",
		"wip_limits":       "optional column -> limit map",
	},
}

// Result reports one action's outcome. Failures carry a reason and never
// abort the batch.
type Result struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// Executor applies actions to one sprint manager.
type Executor struct {
	manager *sprint.Manager
}

// NewExecutor binds an executor to a fixture.
func NewExecutor(m *sprint.Manager) *Executor {
	return &Executor{manager: m}
}

// Execute applies one action. Runtime failures come back as
// Result{Success:false}; an unknown Action implementation is a programming
// fault and panics.
func (e *Executor) Execute(a Action) Result {
	res := Result{Action: a.Kind()}

	switch act := a.(type) {
	case InjectDisturbance:
		if e.manager.Engine == nil {
			res.Reason = "no disturbance engine configured"
			break
		}
		if err := e.manager.Engine.Apply(act.Type, act.Severity, e.manager.Agents, e.manager.Kanban, e.manager.DB); err != nil {
			res.Reason = err.Error()
			break
		}
		res.Success = true

	case SwapAgentRole:
		agent := e.manager.AgentByID(act.AgentID)
		if agent == nil {
			res.Reason = fmt.Sprintf("no agent with id %q", act.AgentID)
			break
		}
		if err := agent.SwapTo(act.TargetRoleID, act.TargetRoleID, act.Proficiency, 0); err != nil {
			res.Reason = err.Error()
			break
		}
		res.Success = true

	case ModifyBacklog:
		if e.manager.Backlog == nil {
			res.Reason = "no backlog configured"
			break
		}
		switch act.Op {
		case BacklogAdd:
			if act.Story.ID == "" {
				res.Reason = "add requires a story with an id"
				break
			}
			e.manager.Backlog.AddStory(act.Story)
			res.Success = true
		case BacklogRemove:
			if !e.manager.Backlog.MarkReturned(act.StoryID) {
				res.Reason = fmt.Sprintf("no story with id %q", act.StoryID)
				break
			}
			res.Success = true
		default:
			res.Reason = fmt.Sprintf("unknown backlog op %q", act.Op)
		}

	case ModifyTeamComposition:
		switch act.Op {
		case TeamDepart:
			if !e.manager.RemoveAgent(act.AgentID) {
				res.Reason = fmt.Sprintf("no agent with id %q", act.AgentID)
				break
			}
			res.Success = true
		case TeamBackfill:
			e.manager.AddAgent(buildBackfillAgent(act.AgentID, act.Backfill))
			res.Success = true
		default:
			res.Reason = fmt.Sprintf("unknown team op %q", act.Op)
		}

	case AdjustSprintParams:
		if act.DurationMinutes != nil {
			e.manager.Config.SprintDurationMinutes = *act.DurationMinutes
		}
		for col, limit := range act.WIPLimits {
			if e.manager.Kanban.WIPLimits == nil {
				e.manager.Kanban.WIPLimits = make(map[string]int)
			}
			e.manager.Kanban.WIPLimits[col] = limit
		}
		res.Success = true

	default:
		panic(fmt.Sprintf("unknown action variant %T", a))
	}

	logging.Action("executed %s: success=%v reason=%q", res.Action, res.Success, res.Reason)
	return res
}

// ExecuteBatch applies actions in order, collecting every result.
func (e *Executor) ExecuteBatch(actions []Action) []Result {
	results := make([]Result, 0, len(actions))
	for _, a := range actions {
		results = append(results, e.Execute(a))
	}
	return results
}

// buildBackfillAgent fills in defaults for any absent config fields.
func buildBackfillAgent(agentID string, cfg *BackfillConfig) *sprint.Agent {
	if cfg == nil {
		cfg = &BackfillConfig{}
	}
	name := cfg.Name
	if name == "" {
		name = agentID
	}
	roleID := cfg.RoleID
	if roleID == "" {
		roleID = "backend_dev"
	}
	archetype := cfg.Archetype
	if archetype == "" {
		archetype = "developer"
	}
	seniority := cfg.Seniority
	if seniority == "" {
		seniority = "junior"
	}
	return sprint.NewAgent(agentID, name, sprint.Role{ID: roleID, Archetype: archetype}, seniority, cfg.Specializations)
}
