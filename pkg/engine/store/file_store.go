package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// FileStore
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// sessionWrapper wraps Session with a version for future migration.
type sessionWrapper struct {
	Version int          `json:"version"`
	Session *api.Session `json:"session"`
}

// FileStore implements SessionStore using one JSON file per session.
// Useful for tests and single-host deployments without SQLite.
type FileStore struct {
	baseDir string
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewFileStore creates a file-backed session store rooted at dir.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{baseDir: dir, logger: logger}, nil
}

// Setup creates the sessions directory if absent. Idempotent.
func (s *FileStore) Setup(ctx context.Context) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("creating sessions directory: %w", err)
	}
	return nil
}

func (s *FileStore) path(id string) (string, error) {
	// Session ids become file names; reject anything that could escape baseDir.
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.baseDir, id+".json"), nil
}

// Save writes the full session atomically via temp file + rename.
func (s *FileStore) Save(ctx context.Context, id string, session *api.Session) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sessionWrapper{Version: 1, Session: session}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session temp file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing session file: %w", err)
	}
	s.logger.Debug("saved session", zap.String("session_id", id))
	return nil
}

// Load returns the session or ErrSessionNotFound.
func (s *FileStore) Load(ctx context.Context, id string) (*api.Session, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var wrapper sessionWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}
	if wrapper.Session == nil {
		return nil, fmt.Errorf("session data is nil for id %s", id)
	}
	return wrapper.Session, nil
}

// ListIDs returns all persisted session ids.
func (s *FileStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// GrantApproval flips human_approved on the stored session.
func (s *FileStore) GrantApproval(ctx context.Context, id string) error {
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

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
