package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// SQLiteStore
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// SQLiteStore implements SessionStore on a local SQLite database. One row
// per session keyed by session_id, holding the serialized session plus a
// last-updated timestamp.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Setup creates the sessions table if absent. Idempotent.
func (s *SQLiteStore) Setup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			state_json TEXT NOT NULL,
			updated_at REAL DEFAULT (strftime('%s', 'now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("initializing session schema: %w", err)
	}
	return nil
}

// Save upserts the full session state. The single statement runs in an
// implicit transaction, so no partial write is observable.
func (s *SQLiteStore) Save(ctx context.Context, id string, session *api.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, state_json, updated_at)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(session_id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`, id, string(data))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	s.logger.Debug("saved session", zap.String("session_id", id))
	return nil
}

// Load returns the session or ErrSessionNotFound.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*api.Session, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM sessions WHERE session_id = ?`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var session api.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}
	return &session, nil
}

// ListIDs returns all known session ids.
func (s *SQLiteStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GrantApproval flips human_approved on the stored session. Called by the
// control surface, never by the engine.
func (s *SQLiteStore) GrantApproval(ctx context.Context, id string) error {
	session, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	session.SetApproved(true)
	if err := s.Save(ctx, id, session); err != nil {
		return err
	}
	s.logger.Info("approval granted", zap.String("session_id", id))
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
