package api

import "strings"

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Approval Gate Protocol
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
//
// The approval gate carries no state of its own: it is encoded entirely in
// Session.Metadata. The engine blocks a step whose rationale carries the
// approval marker, an external grant flips human_approved, and the engine
// consumes the grant on the next execution attempt.

const (
	// MetaHumanApproved marks a session whose pending step has been granted.
	// The flag is single-use: the engine resets it after every execution.
	MetaHumanApproved = "human_approved"

	// MetaRejected marks a session whose pending step was rejected. The
	// engine does not auto-resume a rejected session.
	MetaRejected = "rejected"
)

// Control tokens scanned for in a step's rationale.
const (
	// ApprovalMarker means the step requires human sign-off before execution.
	ApprovalMarker = "REQUIRES_APPROVAL"

	// FinalMarker means the step is the last one of the workflow.
	FinalMarker = "FINISH"
)

// RequiresApproval reports whether the step's rationale carries the
// human sign-off marker.
func (s PlanStep) RequiresApproval() bool {
	return strings.Contains(strings.ToUpper(s.Rationale), ApprovalMarker)
}

// Final reports whether the step's rationale marks workflow completion.
func (s PlanStep) Final() bool {
	return strings.Contains(strings.ToUpper(s.Rationale), FinalMarker)
}

// Approved reports whether a human grant is currently in effect.
func (s *Session) Approved() bool {
	if s.Metadata == nil {
		return false
	}
	v, ok := s.Metadata[MetaHumanApproved].(bool)
	return ok && v
}

// Rejected reports whether the pending step was rejected externally.
func (s *Session) Rejected() bool {
	if s.Metadata == nil {
		return false
	}
	v, ok := s.Metadata[MetaRejected].(bool)
	return ok && v
}

// SetApproved records or clears a human grant.
func (s *Session) SetApproved(v bool) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[MetaHumanApproved] = v
}

// MarkRejected clears any grant and flags the session as rejected.
func (s *Session) MarkRejected() {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[MetaHumanApproved] = false
	s.Metadata[MetaRejected] = true
}
