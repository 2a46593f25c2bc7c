// Package runtime hosts the workflow engine that drives plan, gate,
// execute, persist cycles over a session.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/planner"
	"github.com/agentnexus/copilot/pkg/engine/store"
	"github.com/agentnexus/copilot/pkg/engine/tools"
)

// DefaultStepBudget bounds how many plan/execute iterations a single Run
// performs before yielding back to the caller.
const DefaultStepBudget = 5

// Memory is the long-term context collaborator. Failures are advisory:
// the engine logs them and proceeds without recalled context.
type Memory interface {
	Search(ctx context.Context, query string, limit int) (string, error)
	Add(ctx context.Context, doc string, metadata map[string]string) error
}

// Config wires the engine's collaborators.
type Config struct {
	Planner  *planner.Agent
	Registry *tools.Registry
	Store    store.SessionStore
	Memory   Memory
	Logger   *zap.Logger

	// HistoryWindow caps how many trailing turns the planner sees.
	// Zero means the planner default.
	HistoryWindow int
}

// WorkflowEngine executes durable, resumable remediation workflows. All
// progress lives in the session store, so a process restart between steps
// loses nothing.
type WorkflowEngine struct {
	planner  *planner.Agent
	registry *tools.Registry
	store    store.SessionStore
	memory   Memory
	logger   *zap.Logger
	window   int

	sealOnce sync.Once
}

// New builds a WorkflowEngine from cfg.
func New(cfg Config) (*WorkflowEngine, error) {
	if cfg.Planner == nil {
		return nil, errors.New("runtime: planner is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("runtime: tool registry is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("runtime: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowEngine{
		planner:  cfg.Planner,
		registry: cfg.Registry,
		store:    cfg.Store,
		memory:   cfg.Memory,
		logger:   logger,
		window:   cfg.HistoryWindow,
	}, nil
}

// Run processes a user request against a session, executing at most
// stepBudget steps. It returns the step results produced during this call.
//
// Reentrancy contract: calling Run again with the same sessionID resumes
// exactly where the previous call stopped, whether that was a budget
// exhaustion, an approval gate, or a completed plan.
func (e *WorkflowEngine) Run(ctx context.Context, request, sessionID string, stepBudget int) ([]api.StepResult, error) {
	// Registration closes once any session begins executing.
	e.sealOnce.Do(e.registry.Seal)

	if stepBudget <= 0 {
		stepBudget = DefaultStepBudget
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := e.store.Setup(ctx); err != nil {
		return nil, fmt.Errorf("preparing session store: %w", err)
	}

	sess, err := e.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		sess = api.NewSession(sessionID)
	case err != nil:
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	sess.AppendTurn(api.RoleUser, request)
	log := e.logger.With(zap.String("session_id", sessionID))
	log.Info("workflow run started", zap.Int("step_budget", stepBudget))

	var results []api.StepResult
	for step := 1; step <= stepBudget; step++ {
		memCtx := e.recall(ctx, request, log)

		plan := e.planner.Plan(ctx, planner.Request{
			Request:       request,
			Session:       sess,
			MemoryContext: memCtx,
			PriorResults:  results,
			HistoryWindow: e.window,
		})
		if plan.Empty() {
			log.Info("planner produced no further steps", zap.Int("step", step))
			break
		}

		// One step per iteration: the plan's remaining steps are
		// advisory and get re-planned with fresh results next time.
		next := plan.Steps[0]

		if next.RequiresApproval() && !sess.Approved() {
			result := api.StepResult{
				StepIndex: step,
				Status:    api.StatusPendingApproval,
				ToolName:  next.ToolName,
				Detail:    fmt.Sprintf("awaiting human approval: POST /sessions/%s/approve", sessionID),
			}
			results = append(results, result)
			sess.AppendTurn(api.RoleAssistant, fmt.Sprintf("Step %q requires approval: %s", next.ToolName, next.Rationale))
			if err := e.store.Save(ctx, sessionID, sess); err != nil {
				return results, fmt.Errorf("saving session %s: %w", sessionID, err)
			}
			log.Info("workflow paused for approval", zap.String("tool", next.ToolName))
			return results, nil
		}

		result := e.executeStep(ctx, step, next, sess, log)
		results = append(results, result)

		// Approval is single-use. Whatever granted this step does not
		// carry over to the next privileged one.
		sess.SetApproved(false)

		if err := e.store.Save(ctx, sessionID, sess); err != nil {
			return results, fmt.Errorf("saving session %s: %w", sessionID, err)
		}

		if next.Final() {
			log.Info("workflow reached terminal step", zap.Int("step", step))
			break
		}
	}

	e.remember(request, results, log)
	log.Info("workflow run finished", zap.Int("steps_executed", len(results)))
	return results, nil
}

// executeStep dispatches one plan step through the registry and records the
// outcome in the session history.
func (e *WorkflowEngine) executeStep(ctx context.Context, index int, step api.PlanStep, sess *api.Session, log *zap.Logger) api.StepResult {
	start := time.Now()
	output, err := e.registry.Execute(ctx, step.ToolName, step.Arguments)
	if err != nil {
		log.Warn("step failed",
			zap.Int("step", index),
			zap.String("tool", step.ToolName),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		sess.AppendTurn(api.RoleToolError, fmt.Sprintf("%s: %v", step.ToolName, err))
		return api.StepResult{
			StepIndex: index,
			Status:    api.StatusError,
			ToolName:  step.ToolName,
			Detail:    err.Error(),
		}
	}

	log.Info("step executed",
		zap.Int("step", index),
		zap.String("tool", step.ToolName),
		zap.Duration("elapsed", time.Since(start)),
	)
	sess.AppendTurn(api.RoleToolResult, fmt.Sprintf("%s: %s", step.ToolName, output))
	return api.StepResult{
		StepIndex: index,
		Status:    api.StatusExecuted,
		ToolName:  step.ToolName,
		Detail:    output,
	}
}

// recall queries long-term memory for context relevant to the request.
func (e *WorkflowEngine) recall(ctx context.Context, request string, log *zap.Logger) string {
	if e.memory == nil {
		return ""
	}
	memCtx, err := e.memory.Search(ctx, request, 3)
	if err != nil {
		log.Warn("memory search failed, continuing without context", zap.Error(err))
		return ""
	}
	return memCtx
}

// remember archives the run outcome. Memory write failures never fail runs.
func (e *WorkflowEngine) remember(request string, results []api.StepResult, log *zap.Logger) {
	if e.memory == nil || len(results) == 0 {
		return
	}
	doc := fmt.Sprintf("Request: %s\nOutcome: %s", request, summarize(results))
	err := e.memory.Add(context.Background(), doc, map[string]string{
		"kind":     "run_summary",
		"recorded": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn("memory write failed", zap.Error(err))
	}
}

// summarize renders step results as compact JSON for prompts and memory.
func summarize(results []api.StepResult) string {
	if len(results) == 0 {
		return ""
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return ""
	}
	return string(raw)
}
