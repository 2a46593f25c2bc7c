package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Setup(context.Background()))
	return s
}

func TestFileStore_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	sess := api.NewSession("s1")
	sess.AppendTurn(api.RoleUser, "check checkout")
	require.NoError(t, s.Save(ctx, "s1", sess))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	require.Len(t, got.History, 1)
}

func TestFileStore_LoadUnknownID(t *testing.T) {
	s := newTestFileStore(t)
	_, err := s.Load(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFileStore_RejectsPathEscapes(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	for _, id := range []string{"", "../evil", "a/b", `a\b`, ".."} {
		err := s.Save(ctx, id, api.NewSession(id))
		assert.ErrorIs(t, err, ErrInvalidID, "id %q must be rejected", id)
	}
}

func TestFileStore_ListIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	require.NoError(t, s.Save(ctx, "b", api.NewSession("b")))
	require.NoError(t, s.Save(ctx, "a", api.NewSession("a")))

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestFileStore_GrantApproval(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	require.NoError(t, s.Save(ctx, "s1", api.NewSession("s1")))
	require.NoError(t, s.GrantApproval(ctx, "s1"))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Approved())
}
