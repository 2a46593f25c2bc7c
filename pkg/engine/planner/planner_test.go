package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/tools"
)

// stubBackend returns scripted responses in order.
type stubBackend struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *stubBackend) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(nil, nil)
	require.NoError(t, reg.Register(tools.ToolSpec{
		Name:        "get_metrics",
		Description: "check service health",
		Params: []tools.ParameterDef{
			{Name: "service", Type: "string", Description: "service name", Required: true},
		},
		Handler: func(_ context.Context, _ api.Args) (string, error) { return "HEALTHY", nil },
	}))
	return reg
}

func TestPlan_ParsesBackendResponse(t *testing.T) {
	backend := &stubBackend{responses: []string{
		`{"steps": [{"tool_name": "get_metrics", "arguments": {"service": "checkout"}, "rationale": "detect"}]}`,
	}}
	agent := New(backend, testRegistry(t), nil)
	sess := api.NewSession("s1")

	plan := agent.Plan(context.Background(), Request{Request: "check checkout", Session: sess})
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "get_metrics", plan.Steps[0].ToolName)

	// The raw response lands in history as an assistant turn.
	require.NotEmpty(t, sess.History)
	last := sess.History[len(sess.History)-1]
	assert.Equal(t, api.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "get_metrics")
}

func TestPlan_PromptCarriesCatalogAndHistory(t *testing.T) {
	backend := &stubBackend{responses: []string{`{"steps": []}`}}
	agent := New(backend, testRegistry(t), nil)

	sess := api.NewSession("s1")
	sess.AppendTurn(api.RoleUser, "payment-gateway is failing")
	sess.AppendTurn(api.RoleToolResult, "get_metrics: CRITICAL")

	agent.Plan(context.Background(), Request{
		Request:       "fix it",
		Session:       sess,
		MemoryContext: "similar incident last week",
	})

	require.Len(t, backend.prompts, 1)
	prompt := backend.prompts[0]
	assert.Contains(t, prompt, `"get_metrics"`)
	assert.Contains(t, prompt, "TOOL_RESULT: get_metrics: CRITICAL")
	assert.Contains(t, prompt, "Context: similar incident last week")
	assert.Contains(t, prompt, "USER: fix it")
}

func TestPlan_HistoryWindowLimitsTurns(t *testing.T) {
	backend := &stubBackend{responses: []string{`{"steps": []}`}}
	agent := New(backend, testRegistry(t), nil)

	sess := api.NewSession("s1")
	for i := 0; i < 10; i++ {
		sess.AppendTurn(api.RoleUser, "old turn")
	}
	sess.AppendTurn(api.RoleUser, "newest turn")

	agent.Plan(context.Background(), Request{Request: "go", Session: sess, HistoryWindow: 1})

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "newest turn")
	assert.NotContains(t, backend.prompts[0], "old turn")
}

func TestPlan_NilBackendFallsBackToMock(t *testing.T) {
	agent := New(nil, testRegistry(t), nil)

	plan := agent.Plan(context.Background(), Request{Request: "anything"})
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "get_metrics", plan.Steps[0].ToolName)
	assert.Equal(t, "payment-gateway", plan.Steps[0].Arguments["service"])
}

func TestPlan_BackendErrorYieldsEmptyPlan(t *testing.T) {
	backend := &stubBackend{err: errors.New("rate limited")}
	agent := New(backend, testRegistry(t), nil)

	plan := agent.Plan(context.Background(), Request{Request: "go", Session: api.NewSession("s1")})
	assert.True(t, plan.Empty())
}

func TestPlan_UnparseableOutputYieldsEmptyPlan(t *testing.T) {
	backend := &stubBackend{responses: []string{"let me think about that"}}
	agent := New(backend, testRegistry(t), nil)

	sess := api.NewSession("s1")
	plan := agent.Plan(context.Background(), Request{Request: "go", Session: sess})
	assert.True(t, plan.Empty())

	// Unparseable output is not recorded as an assistant turn.
	for _, turn := range sess.History {
		assert.NotEqual(t, api.RoleAssistant, turn.Role)
	}
}

func TestRetryBackend_RetriesTransientErrors(t *testing.T) {
	flaky := &flakyBackend{failures: 2, response: `{"steps": []}`}
	backend := withRetry(flaky, BackendConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
	}, zap.NewNop())

	out, err := backend.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"steps": []}`, out)
	assert.Equal(t, 3, flaky.calls)
}

func TestRetryBackend_GivesUpAfterMaxRetries(t *testing.T) {
	flaky := &flakyBackend{failures: 10, response: `{"steps": []}`}
	backend := withRetry(flaky, BackendConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	}, zap.NewNop())

	_, err := backend.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, 3, flaky.calls) // initial attempt plus two retries
}

type flakyBackend struct {
	failures int
	calls    int
	response string
}

func (f *flakyBackend) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient")
	}
	return f.response, nil
}
