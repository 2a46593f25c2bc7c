package devops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr"
	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/tools"
)

// StandardDeps configures the general-purpose toolset.
type StandardDeps struct {
	// Workspace is the directory write_file is confined to.
	Workspace string
	Logger    *zap.Logger
}

// RegisterStandardTools installs the general-purpose tools that round out
// the catalog: web_search, calculator, and write_file.
func RegisterStandardTools(reg *tools.Registry, deps StandardDeps) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	specs := []tools.ToolSpec{
		webSearchSpec(deps),
		calculatorSpec(),
		writeFileSpec(deps),
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return fmt.Errorf("registering %s: %w", spec.Name, err)
		}
	}
	return nil
}

func webSearchSpec(deps StandardDeps) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "web_search",
		Description: "Look up operational knowledge, such as runbooks or known-issue summaries, for a query.",
		Params: []tools.ParameterDef{
			{Name: "query", Type: "string", Description: "Search query", Required: true},
		},
		Handler: func(_ context.Context, args api.Args) (string, error) {
			query := tools.GetStringArg(args, "query", "")
			deps.Logger.Debug("knowledge lookup", zap.String("query", query))

			// Canned corpus standing in for an external search API.
			q := strings.ToLower(query)
			switch {
			case strings.Contains(q, "connection pool"):
				return "Known issue: exhausted connection pools usually recover after a service restart. Check pool sizing before repeated restarts.", nil
			case strings.Contains(q, "oom") || strings.Contains(q, "memory"):
				return "Runbook: for OOM kills, restart the service, then review memory limits and recent deploys for leaks.", nil
			default:
				return fmt.Sprintf("No runbook entry found for %q. General guidance: check error rates, inspect recent logs, and escalate if the pattern is unfamiliar.", query), nil
			}
		},
	}
}

func calculatorSpec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression, e.g. \"(120 - 80) / 120 * 100\".",
		Params: []tools.ParameterDef{
			{Name: "expression", Type: "string", Description: "Arithmetic expression to evaluate", Required: true},
		},
		Handler: func(_ context.Context, args api.Args) (string, error) {
			expression := tools.GetStringArg(args, "expression", "")
			result, err := expr.Eval(expression, nil)
			if err != nil {
				return "", fmt.Errorf("evaluating expression: %w", err)
			}
			return fmt.Sprintf("%v", result), nil
		},
	}
}

func writeFileSpec(deps StandardDeps) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "write_file",
		Description: "Write content to a file inside the workspace, creating parent directories as needed. Rewriting the same path with the same content is a no-op.",
		Params: []tools.ParameterDef{
			{Name: "path", Type: "string", Description: "Workspace-relative file path", Required: true},
			{Name: "content", Type: "string", Description: "File content", Required: true},
		},
		Handler: func(_ context.Context, args api.Args) (string, error) {
			rel := tools.GetStringArg(args, "path", "")
			content := tools.GetStringArg(args, "content", "")

			target, err := workspacePath(deps.Workspace, rel)
			if err != nil {
				return "", err
			}

			if existing, err := os.ReadFile(target); err == nil && string(existing) == content {
				return fmt.Sprintf("file %s already up to date (%d bytes)", rel, len(content)), nil
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", fmt.Errorf("creating parent directory: %w", err)
			}
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("writing file: %w", err)
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), rel), nil
		},
	}
}

// workspacePath resolves rel inside base and rejects escapes.
func workspacePath(base, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path must be workspace-relative, got %q", rel)
	}
	target := filepath.Join(base, rel)
	clean := filepath.Clean(target)
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving workspace: %w", err)
	}
	absTarget, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return absTarget, nil
}
