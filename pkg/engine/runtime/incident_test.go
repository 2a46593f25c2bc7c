package runtime

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/devops"
	"github.com/agentnexus/copilot/pkg/engine/planner"
	"github.com/agentnexus/copilot/pkg/engine/store"
	"github.com/agentnexus/copilot/pkg/engine/tools"
	"github.com/agentnexus/copilot/pkg/observability"
)

// TestIncident_DetectApproveRemediate drives the full remediation flow with
// the real toolset: an error spike is detected, the restart pauses for
// approval, and the approved rerun executes it and clears the spike.
func TestIncident_DetectApproveRemediate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	logs, err := devops.NewLogStore(filepath.Join(dir, "logs.db"), nil)
	require.NoError(t, err)
	defer logs.Close()
	require.NoError(t, logs.Setup(ctx))

	// Seed an incident: well above the 10% error-rate threshold.
	for i := 0; i < 8; i++ {
		require.NoError(t, logs.Ingest(ctx, devops.LogRecord{
			Timestamp: time.Now().Add(-2 * time.Minute),
			Service:   "payment-gateway",
			Level:     "ERROR",
			Message:   "connection pool exhausted",
		}))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, logs.Ingest(ctx, devops.LogRecord{
			Timestamp: time.Now().Add(-2 * time.Minute),
			Service:   "payment-gateway",
			Level:     "INFO",
			Message:   "processed payment batch",
		}))
	}

	registry := tools.NewRegistry(nil, nil)
	require.NoError(t, devops.RegisterTools(registry, devops.Deps{
		Logs:       logs,
		Thresholds: devops.DefaultThresholds(),
		Metrics:    observability.New(),
	}))

	sessions, err := store.NewSQLiteStore(filepath.Join(dir, "state.db"), nil)
	require.NoError(t, err)
	defer sessions.Close()

	backend := &scriptedBackend{plans: []api.Plan{
		step("get_metrics", "Check health metrics to detect anomalies.", api.Args{"service": "payment-gateway"}),
		step("restart_service", "Error rate is critical. REQUIRES_APPROVAL to restart.", api.Args{"service": "payment-gateway"}),
		step("restart_service", "Error rate is critical. REQUIRES_APPROVAL to restart.", api.Args{"service": "payment-gateway"}),
	}}
	engine, err := New(Config{
		Planner:  planner.New(backend, registry, nil),
		Registry: registry,
		Store:    sessions,
	})
	require.NoError(t, err)

	// First pass: detection succeeds, remediation pauses for approval.
	results, err := engine.Run(ctx, "payment-gateway looks unhealthy, fix it", "incident-1", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, api.StatusExecuted, results[0].Status)
	assert.Contains(t, results[0].Detail, "CRITICAL")
	assert.Equal(t, api.StatusPendingApproval, results[1].Status)
	assert.Equal(t, "restart_service", results[1].ToolName)

	_, open, err := logs.SpikeStart(ctx, "payment-gateway")
	require.NoError(t, err)
	assert.True(t, open, "spike must stay open while remediation is pending")

	// Operator approves via the store, as the HTTP handler does.
	require.NoError(t, sessions.GrantApproval(ctx, "incident-1"))

	// Second pass: the approved restart executes and closes the spike.
	results, err = engine.Run(ctx, "payment-gateway looks unhealthy, fix it", "incident-1", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, api.StatusExecuted, results[0].Status)
	assert.Contains(t, results[0].Detail, "restarted successfully")

	_, open, err = logs.SpikeStart(ctx, "payment-gateway")
	require.NoError(t, err)
	assert.False(t, open)

	// The whole exchange is in durable history.
	sess, err := sessions.Load(ctx, "incident-1")
	require.NoError(t, err)
	assert.False(t, sess.Approved(), "grant must be consumed")
	assert.Contains(t, historyRoles(sess), api.RoleToolResult)
}
