package planner

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/tools"
)

const defaultHistoryWindow = 6

// Agent is the planning half of the workflow: it asks the completion
// backend for the next step and parses the answer into a Plan.
type Agent struct {
	backend  Backend
	registry *tools.Registry
	logger   *zap.Logger
}

// New creates a planner agent. A nil backend is allowed; every Plan call
// then degrades to the mock fallback plan.
func New(backend Backend, registry *tools.Registry, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{backend: backend, registry: registry, logger: logger}
}

// Plan proposes the next step for the request. Failure semantics:
//   - no backend configured: mock fallback plan, logged as a warning
//   - backend error after retries: empty plan (treated as completion)
//   - unparseable output: empty plan
//
// A successful response is recorded verbatim as an assistant turn in the
// session history.
func (a *Agent) Plan(ctx context.Context, req Request) api.Plan {
	if a.backend == nil {
		a.logger.Warn("no planner backend configured, using mock plan")
		return mockPlan()
	}

	prompt := buildPrompt(req, a.registry.List())

	raw, err := a.backend.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			a.logger.Warn("planner backend unavailable, using mock plan", zap.Error(err))
			return mockPlan()
		}
		a.logger.Error("planner completion failed", zap.Error(err))
		return api.Plan{}
	}

	plan, err := decode(raw)
	if err != nil {
		a.logger.Error("planner returned unparseable output",
			zap.String("raw", truncate(raw, 200)),
			zap.Error(err),
		)
		return api.Plan{}
	}

	if req.Session != nil {
		req.Session.AppendTurn(api.RoleAssistant, raw)
	}
	a.logger.Info("planner proposed steps", zap.Int("count", len(plan.Steps)))
	return plan
}

// mockPlan is the fallback used when no provider credentials exist. It
// keeps demos and tests moving without a live model.
func mockPlan() api.Plan {
	return api.Plan{Steps: []api.PlanStep{{
		ToolName:  "get_metrics",
		Arguments: api.Args{"service": "payment-gateway"},
		Rationale: "Check health metrics to detect anomalies.",
	}}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
