// Package api defines the stable public types shared across the copilot engine.
// All external interactions should use these types.
package api

import "time"

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Session Types
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Role identifies the author of a history turn.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
	RoleToolError  Role = "tool_error"
)

// Turn is a single entry in a session's conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the persisted, resumable unit of workflow state.
// History is append-only and chronological; it must never shrink or reorder.
type Session struct {
	SessionID string         `json:"session_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	History   []Turn         `json:"history"`
	Metadata  map[string]any `json:"metadata"`
}

// NewSession creates an empty session with the given id.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		SessionID: id,
		CreatedAt: now,
		UpdatedAt: now,
		History:   []Turn{},
		Metadata:  make(map[string]any),
	}
}

// AppendTurn records a new history turn.
func (s *Session) AppendTurn(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
}

// LastTurns returns up to n most recent turns in chronological order.
func (s *Session) LastTurns(n int) []Turn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Plan Types
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Args is the canonical argument container for tools.
type Args = map[string]any

// PlanStep is a single proposed action from the planner.
type PlanStep struct {
	ToolName  string `json:"tool_name"`
	Arguments Args   `json:"arguments"`
	Rationale string `json:"rationale"`
}

// Plan is an ordered sequence of proposed steps. An empty plan signals
// workflow completion. The engine consumes plans one step at a time.
type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// Empty reports whether the planner proposed no further action.
func (p Plan) Empty() bool { return len(p.Steps) == 0 }

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Step Results
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// StepStatus is the outcome class of one engine iteration.
type StepStatus string

const (
	StatusExecuted        StepStatus = "executed"
	StatusPendingApproval StepStatus = "pending_approval"
	StatusError           StepStatus = "error"
)

// StepResult is the outcome of one engine iteration. The sequence of
// StepResults is a run's return value; it is never persisted on its own,
// only the Session is.
type StepResult struct {
	StepIndex int        `json:"step_index"`
	Status    StepStatus `json:"status"`
	ToolName  string     `json:"tool_name"`
	Detail    string     `json:"detail"`
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Tool Schema
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// ToolSchema is the planner-exposed description of a registered capability.
type ToolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"` // JSON Schema-like
}
