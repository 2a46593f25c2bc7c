// Package tools implements the capability registry: named, schema-validated
// actions the engine can invoke. The registry is the single trust boundary
// between free-text-derived arguments and side-effecting code.
package tools

import (
	"context"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

// Handler is the executable behavior of a capability. It returns a
// human-readable result for the session history.
type Handler func(ctx context.Context, args api.Args) (string, error)

// ParameterDef describes a single parameter of a capability. Schemas are
// declared explicitly at registration; they are never inferred from the
// handler's signature, so the validation contract stays independently
// testable.
type ParameterDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "integer", "number", "boolean", "array", "object"
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolSpec is a registered capability.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ParameterDef
	Handler     Handler
}

// Schema returns the planner-exposed JSON-schema view of the tool.
func (t ToolSpec) Schema() api.ToolSchema {
	properties := make(map[string]any)
	var required []string
	for _, p := range t.Params {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	params := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return api.ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

// GetStringArg extracts a string argument with a default value.
func GetStringArg(args api.Args, key, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetIntArg extracts an integer argument with a default value.
func GetIntArg(args api.Args, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

// GetBoolArg extracts a boolean argument with a default value.
func GetBoolArg(args api.Args, key string, defaultVal bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
