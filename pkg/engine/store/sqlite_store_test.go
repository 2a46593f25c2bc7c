package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Setup(context.Background()))
	return s
}

func TestSQLiteStore_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	sess := api.NewSession("s1")
	sess.AppendTurn(api.RoleUser, "payment-gateway is erroring")
	sess.AppendTurn(api.RoleToolResult, "get_metrics: CRITICAL")
	require.NoError(t, s.Save(ctx, "s1", sess))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	require.Len(t, got.History, 2)
	assert.Equal(t, api.RoleUser, got.History[0].Role)
	assert.Equal(t, "get_metrics: CRITICAL", got.History[1].Content)
}

func TestSQLiteStore_LoadUnknownID(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.Load(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	sess := api.NewSession("s1")
	require.NoError(t, s.Save(ctx, "s1", sess))

	sess.AppendTurn(api.RoleUser, "second write")
	require.NoError(t, s.Save(ctx, "s1", sess))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.History, 1)

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestSQLiteStore_SetupIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	require.NoError(t, s.Save(ctx, "s1", api.NewSession("s1")))
	require.NoError(t, s.Setup(ctx))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
}

func TestSQLiteStore_GrantApproval(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	sess := api.NewSession("s1")
	sess.AppendTurn(api.RoleUser, "restart it")
	require.NoError(t, s.Save(ctx, "s1", sess))

	require.NoError(t, s.GrantApproval(ctx, "s1"))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Approved())
	// History must be untouched by the grant.
	require.Len(t, got.History, 1)
}

func TestSQLiteStore_GrantApprovalUnknownID(t *testing.T) {
	s := newTestSQLiteStore(t)
	err := s.GrantApproval(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	s1, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Setup(ctx))
	sess := api.NewSession("durable")
	sess.AppendTurn(api.RoleUser, "hello")
	require.NoError(t, s1.Save(ctx, "durable", sess))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Setup(ctx))

	got, err := s2.Load(ctx, "durable")
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, "hello", got.History[0].Content)
}
