// Package store provides durable session persistence for the copilot engine.
package store

import (
	"context"
	"errors"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// SessionStore Interface
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// SessionStore is the durable source of truth for session state across
// process restarts. After Save returns, a subsequent Load from any process
// must observe the saved state. Last write wins; the engine is the sole
// writer during a run and GrantApproval is the only writer between runs.
type SessionStore interface {
	// Setup performs idempotent initialization. Safe to call every run.
	Setup(ctx context.Context) error

	// Save upserts the full session state atomically.
	Save(ctx context.Context, id string, session *api.Session) error

	// Load returns the session or ErrSessionNotFound.
	Load(ctx context.Context, id string) (*api.Session, error)

	// ListIDs returns all known session ids.
	ListIDs(ctx context.Context) ([]string, error)

	// GrantApproval sets human_approved=true on the session's metadata.
	// Fails with ErrSessionNotFound for unknown ids. It never touches history.
	GrantApproval(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Standard Errors
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidID       = errors.New("invalid session id")
)
