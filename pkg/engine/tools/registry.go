package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/observability"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Errors
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

var (
	// ErrDuplicateTool is returned when a name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolNotFound is returned when executing an unregistered name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrRegistrySealed is returned when registering after a session started.
	ErrRegistrySealed = errors.New("registry sealed")
)

// ValidationError reports arguments that violate a capability's schema.
// The handler is never invoked when validation fails.
type ValidationError struct {
	Tool   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %q: %s", e.Tool, strings.Join(e.Fields, "; "))
}

// ExecutionError wraps a handler failure with the tool name. Handler errors
// and panics never propagate raw into the engine loop.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error in %q: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Registry
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// defaultMaxConcurrent bounds the worker pool that isolates blocking
// handlers from the engine's scheduler.
const defaultMaxConcurrent = 8

// Registry manages the capability catalog. Registration is append-only and
// must complete before any session begins executing; Seal enforces that.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]ToolSpec
	sealed  bool
	sem     *semaphore.Weighted
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:   make(map[string]ToolSpec),
		sem:     semaphore.NewWeighted(defaultMaxConcurrent),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds a capability to the catalog.
func (r *Registry) Register(spec ToolSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, spec.Name)
	}
	if spec.Name == "" {
		return errors.New("tool name is required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %q has no handler", spec.Name)
	}
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}

	r.tools[spec.Name] = spec
	r.logger.Debug("registered tool", zap.String("tool", spec.Name))
	return nil
}

// MustRegister adds a capability, panicking on error. For startup wiring.
func (r *Registry) MustRegister(spec ToolSpec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Seal makes the catalog read-only. Called by the engine before its first
// run; schema changes afterwards require a fresh registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get retrieves a capability by name.
func (r *Registry) Get(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tools[name]
	return spec, ok
}

// List returns the catalog sorted by name, in the shape exposed to the
// planner prompt.
func (r *Registry) List() []api.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.ToolSchema, 0, len(r.tools))
	for _, spec := range r.tools {
		out = append(out, spec.Schema())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute looks up a capability, validates arguments against its schema and
// runs the handler on the bounded worker pool. Validation failures never
// reach the handler; handler errors and panics come back as *ExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, args api.Args) (string, error) {
	spec, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if fields := validateArgs(spec, args); len(fields) > 0 {
		return "", &ValidationError{Tool: name, Fields: fields}
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquiring tool worker: %w", err)
	}
	defer r.sem.Release(1)

	r.logger.Info("executing tool", zap.String("tool", name), zap.Any("args", args))
	start := time.Now()
	result, err := runHandler(ctx, spec, args)
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.ToolFailed(name, elapsed)
		r.logger.Error("tool failed", zap.String("tool", name), zap.Error(err))
		return "", &ExecutionError{Tool: name, Err: err}
	}

	r.metrics.ToolSucceeded(name, elapsed)
	return result, nil
}

// runHandler invokes the handler, converting panics into errors.
func runHandler(ctx context.Context, spec ToolSpec, args api.Args) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return spec.Handler(ctx, args)
}

// validateArgs checks args against the declared parameter schema and
// returns the violating fields. Unknown extra arguments are ignored, the
// same leniency the planner's loosely parsed output needs.
func validateArgs(spec ToolSpec, args api.Args) []string {
	var fields []string
	for _, p := range spec.Params {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				fields = append(fields, fmt.Sprintf("%s: required", p.Name))
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			fields = append(fields, fmt.Sprintf("%s: expected %s, got %T", p.Name, p.Type, v))
		}
	}
	return fields
}

// typeMatches checks a decoded JSON value against a schema type name.
func typeMatches(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "integer":
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		default:
			return false
		}
	case "number":
		switch v.(type) {
		case int, int64, float64:
			return true
		default:
			return false
		}
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	default:
		// Unknown schema types accept anything rather than block execution.
		return true
	}
}
