package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

const systemPrompt = `You are the Planner Agent in a ReAct (Reason + Act) loop acting as an AI DevOps Copilot.
Your job is to resolve an incident step by step using only the available tools.

Rules:
1. Output EXACTLY one step per response.
2. After seeing tool results, decide whether to take another step or finish.
3. If the goal is fully achieved, output an empty steps list: {"steps": []}
4. If restarting or doing a destructive action, include REQUIRES_APPROVAL in the rationale.
5. When proposing the last step of the workflow, include FINISH in the rationale.

Output format (strict JSON, no markdown fences):
{
  "steps": [
    {
      "tool_name": "<tool name from available tools>",
      "arguments": {"<arg>": "<value>"},
      "rationale": "<your reasoning>"
    }
  ]
}

Available tools:
%s
`

// Request carries everything the planner needs to propose the next step.
type Request struct {
	// Request is the caller's original remediation request.
	Request string

	// Session supplies conversation history; the planner also records its
	// raw output there as an assistant turn.
	Session *api.Session

	// MemoryContext is the opaque string retrieved from long-term memory.
	MemoryContext string

	// PriorResults are the StepResults accumulated so far in this run.
	PriorResults []api.StepResult

	// HistoryWindow is how many trailing history turns to include.
	HistoryWindow int
}

// buildPrompt assembles the full completion prompt: system rules with the
// capability catalog, the trailing history window, memory context, prior
// results from this run, and the user request.
func buildPrompt(req Request, catalog []api.ToolSchema) string {
	toolsJSON, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		toolsJSON = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, systemPrompt, string(toolsJSON))
	b.WriteString("\n")

	window := req.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}
	if req.Session != nil {
		for _, turn := range req.Session.LastTurns(window) {
			fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(turn.Role)), turn.Content)
		}
	}

	if req.MemoryContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.MemoryContext)
	}
	if len(req.PriorResults) > 0 {
		results, err := json.Marshal(req.PriorResults)
		if err == nil {
			fmt.Fprintf(&b, "Previous results: %s\n", results)
		}
	}

	fmt.Fprintf(&b, "USER: %s", req.Request)
	return b.String()
}
