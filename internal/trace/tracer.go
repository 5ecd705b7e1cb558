// Package trace implements the per-agent, per-sprint decision log. Every
// agent choice is recorded as an immutable Decision with a deterministic ID
// of the form {agent_id}-s{sprint:02d}-{phase}-{seq:03d}. The sequence
// counter resets on every phase change, so IDs are replayable without any
// process-wide counter.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sprintgym/internal/logging"
)

// ActionKind classifies what kind of choice a decision represents.
type ActionKind string

const (
	ActionGenerate           ActionKind = "generate"
	ActionExecuteCodingTask  ActionKind = "execute_coding_task"
	ActionCheckpointDecision ActionKind = "checkpoint_decision"
	ActionAskQuestion        ActionKind = "ask_question"
)

// Field truncation limits. Context and content are bounded so traces stay
// cheap to serialize; reasoning is kept whole.
const (
	MaxContextChars = 500
	MaxContentChars = 1000
)

// Decision is a single recorded agent choice. Immutable once recorded.
type Decision struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	Phase      string                 `json:"phase"`
	Context    string                 `json:"context"`
	ActionKind ActionKind             `json:"action"`
	Content    string                 `json:"content"`
	Reasoning  string                 `json:"reasoning"`
	Outcome    string                 `json:"outcome,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Summary is the compact form of a decision used in observations and
// phase results.
type Summary struct {
	ID         string     `json:"id"`
	Phase      string     `json:"phase"`
	ActionKind ActionKind `json:"action"`
	Content    string     `json:"content"`
}

// Summarize produces the compact form, truncating content to 200 chars.
func (d Decision) Summarize() Summary {
	return Summary{
		ID:         d.ID,
		Phase:      d.Phase,
		ActionKind: d.ActionKind,
		Content:    Truncate(d.Content, 200),
	}
}

// Tracer is the append-only decision log for one agent in one sprint.
type Tracer struct {
	agentID   string
	sprint    int
	phase     string
	seq       int
	decisions []Decision
}

// File is the serialized form of a tracer.
type File struct {
	AgentID   string     `json:"agent_id"`
	Sprint    int        `json:"sprint"`
	Decisions []Decision `json:"decisions"`
}

// NewTracer creates a tracer for an agent+sprint. The phase starts as
// "unknown" until the first SetPhase call.
func NewTracer(agentID string, sprint int) *Tracer {
	return &Tracer{
		agentID: agentID,
		sprint:  sprint,
		phase:   "unknown",
	}
}

// AgentID returns the traced agent's ID.
func (t *Tracer) AgentID() string { return t.agentID }

// Sprint returns the traced sprint number.
func (t *Tracer) Sprint() int { return t.sprint }

// Phase returns the current phase tag.
func (t *Tracer) Phase() string { return t.phase }

// SetPhase records the current ceremony and resets the sequence counter.
func (t *Tracer) SetPhase(name string) {
	t.phase = name
	t.seq = 0
	logging.TraceDebug("tracer %s: phase set to %s", t.agentID, name)
}

// NextDecisionID pre-increments the per-phase counter and returns the next
// deterministic decision ID.
func (t *Tracer) NextDecisionID() string {
	t.seq++
	return fmt.Sprintf("%s-s%02d-%s-%03d", t.agentID, t.sprint, t.phase, t.seq)
}

// Record appends a decision as-is. The caller owns truncation; the
// convenience recorders below apply the standard limits.
func (t *Tracer) Record(d Decision) {
	t.decisions = append(t.decisions, d)
}

// RecordGeneration records a free-form generation decision.
func (t *Tracer) RecordGeneration(context, content, reasoning string, metadata map[string]interface{}) Decision {
	return t.record(ActionGenerate, context, content, reasoning, metadata)
}

// RecordTask records a coding-task execution decision.
func (t *Tracer) RecordTask(context, content, reasoning string, metadata map[string]interface{}) Decision {
	return t.record(ActionExecuteCodingTask, context, content, reasoning, metadata)
}

// RecordCheckpoint records a checkpoint decision.
func (t *Tracer) RecordCheckpoint(context, content, reasoning string, metadata map[string]interface{}) Decision {
	return t.record(ActionCheckpointDecision, context, content, reasoning, metadata)
}

// RecordQuestion records a question raised by the agent.
func (t *Tracer) RecordQuestion(context, content, reasoning string, metadata map[string]interface{}) Decision {
	return t.record(ActionAskQuestion, context, content, reasoning, metadata)
}

func (t *Tracer) record(kind ActionKind, context, content, reasoning string, metadata map[string]interface{}) Decision {
	d := Decision{
		ID:         t.NextDecisionID(),
		Timestamp:  time.Now().UTC(),
		Phase:      t.phase,
		Context:    Truncate(context, MaxContextChars),
		ActionKind: kind,
		Content:    Truncate(content, MaxContentChars),
		Reasoning:  reasoning,
		Metadata:   metadata,
	}
	t.decisions = append(t.decisions, d)
	return d
}

// SetOutcome attaches a post-hoc outcome to the decision with the given ID.
// Unknown IDs are ignored.
func (t *Tracer) SetOutcome(id, outcome string) {
	for i := range t.decisions {
		if t.decisions[i].ID == id {
			t.decisions[i].Outcome = outcome
			return
		}
	}
}

// Decisions returns a copy of the recorded decisions in insertion order.
func (t *Tracer) Decisions() []Decision {
	out := make([]Decision, len(t.decisions))
	copy(out, t.decisions)
	return out
}

// DecisionsForPhase returns the decisions tagged with the given phase.
func (t *Tracer) DecisionsForPhase(phase string) []Decision {
	var out []Decision
	for _, d := range t.decisions {
		if d.Phase == phase {
			out = append(out, d)
		}
	}
	return out
}

// RecentSummaries returns summaries of the last n decisions.
func (t *Tracer) RecentSummaries(n int) []Summary {
	start := len(t.decisions) - n
	if start < 0 {
		start = 0
	}
	out := make([]Summary, 0, len(t.decisions)-start)
	for _, d := range t.decisions[start:] {
		out = append(out, d.Summarize())
	}
	return out
}

// Restore replaces the decision list. Used by checkpoint restore.
func (t *Tracer) Restore(decisions []Decision) {
	t.decisions = make([]Decision, len(decisions))
	copy(t.decisions, decisions)
}

// Snapshot returns the serializable form of the tracer.
func (t *Tracer) Snapshot() File {
	return File{
		AgentID:   t.agentID,
		Sprint:    t.sprint,
		Decisions: t.Decisions(),
	}
}

// WriteFile serializes the trace to {dir}/{agent_id}.json, creating the
// directory if absent.
func (t *Tracer) WriteFile(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create trace directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(t.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize trace for %s: %w", t.agentID, err)
	}
	path := filepath.Join(dir, t.agentID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trace %s: %w", path, err)
	}
	logging.Trace("wrote trace %s (%d decisions)", path, len(t.decisions))
	return nil
}

// Truncate bounds a string to at most n runes. Truncation is silent.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
