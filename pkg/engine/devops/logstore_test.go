package devops

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogStore(t *testing.T) *LogStore {
	t.Helper()
	s, err := NewLogStore(filepath.Join(t.TempDir(), "logs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Setup(context.Background()))
	return s
}

func seed(t *testing.T, s *LogStore, service, level string, n int, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Ingest(ctx, LogRecord{
			Timestamp: time.Now().Add(-age),
			Service:   service,
			Level:     level,
			Message:   level + " message",
		}))
	}
}

func TestLogStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestLogStore(t)

	seed(t, s, "payment-gateway", "ERROR", 3, time.Minute)
	seed(t, s, "payment-gateway", "INFO", 2, time.Minute)
	seed(t, s, "checkout", "INFO", 4, time.Minute)

	got, err := s.Query(ctx, LogQuery{Service: "payment-gateway", Level: "ERROR"})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.Query(ctx, LogQuery{Service: "checkout"})
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = s.Query(ctx, LogQuery{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestLogStore_QueryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestLogStore(t)

	require.NoError(t, s.Ingest(ctx, LogRecord{
		Timestamp: time.Now().Add(-2 * time.Minute),
		Service:   "svc", Level: "INFO", Message: "older",
	}))
	require.NoError(t, s.Ingest(ctx, LogRecord{
		Timestamp: time.Now().Add(-1 * time.Minute),
		Service:   "svc", Level: "INFO", Message: "newer",
	}))

	got, err := s.Query(ctx, LogQuery{Service: "svc"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Message)
	assert.Equal(t, "older", got[1].Message)
}

func TestLogStore_MetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestLogStore(t)

	require.NoError(t, s.Ingest(ctx, LogRecord{
		Service: "svc", Level: "ERROR", Message: "pool exhausted",
		Metadata: map[string]string{"pool": "primary"},
	}))

	got, err := s.Query(ctx, LogQuery{Service: "svc"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "primary", got[0].Metadata["pool"])
}

func TestLogStore_ErrorRate(t *testing.T) {
	ctx := context.Background()
	s := newTestLogStore(t)

	seed(t, s, "svc", "ERROR", 6, time.Minute)
	seed(t, s, "svc", "INFO", 4, time.Minute)
	// Records outside the window must not count.
	seed(t, s, "svc", "ERROR", 50, time.Hour)

	rate, total, err := s.ErrorRate(ctx, "svc", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.InDelta(t, 0.6, rate, 0.001)
}

func TestLogStore_ErrorRateNoData(t *testing.T) {
	s := newTestLogStore(t)
	rate, total, err := s.ErrorRate(context.Background(), "ghost", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, rate)
	assert.Zero(t, total)
}

func TestLogStore_SpikeTracking(t *testing.T) {
	ctx := context.Background()
	s := newTestLogStore(t)

	_, open, err := s.SpikeStart(ctx, "svc")
	require.NoError(t, err)
	assert.False(t, open)

	first := time.Now().Add(-3 * time.Minute)
	require.NoError(t, s.Ingest(ctx, LogRecord{Timestamp: first, Service: "svc", Level: "ERROR", Message: "boom"}))
	// A later error must not move the spike start.
	require.NoError(t, s.Ingest(ctx, LogRecord{Service: "svc", Level: "ERROR", Message: "boom again"}))

	start, open, err := s.SpikeStart(ctx, "svc")
	require.NoError(t, err)
	require.True(t, open)
	assert.WithinDuration(t, first, start, time.Second)

	require.NoError(t, s.ClearSpike(ctx, "svc"))
	_, open, err = s.SpikeStart(ctx, "svc")
	require.NoError(t, err)
	assert.False(t, open)
}
