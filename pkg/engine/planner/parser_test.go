package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

func TestParse_PlainJSON(t *testing.T) {
	plan := Parse(`{"steps": [{"tool_name": "get_metrics", "arguments": {"service": "payment-gateway"}, "rationale": "check health"}]}`)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "get_metrics", plan.Steps[0].ToolName)
	assert.Equal(t, "payment-gateway", plan.Steps[0].Arguments["service"])
}

func TestParse_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"steps\": [{\"tool_name\": \"search_logs\", \"arguments\": {}, \"rationale\": \"look\"}]}\n```"
	plan := Parse(raw)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "search_logs", plan.Steps[0].ToolName)
}

func TestParse_StripsBareFences(t *testing.T) {
	raw := "```\n{\"steps\": []}\n```"
	plan := Parse(raw)
	assert.True(t, plan.Empty())
}

func TestParse_GarbageYieldsEmptyPlan(t *testing.T) {
	for _, raw := range []string{
		"not json",
		"",
		"I think we should restart the service.",
		`{"steps": "oops"}`,
	} {
		plan := Parse(raw)
		assert.True(t, plan.Empty(), "input %q should yield an empty plan", raw)
	}
}

func TestParse_EmptyStepsMeansCompletion(t *testing.T) {
	plan := Parse(`{"steps": []}`)
	assert.True(t, plan.Empty())
}

func TestPlanStep_Markers(t *testing.T) {
	approve := api.PlanStep{Rationale: "Restart the gateway. requires_approval because it drops connections."}
	assert.True(t, approve.RequiresApproval())

	final := api.PlanStep{Rationale: "Notify the channel and FINISH."}
	assert.True(t, final.Final())

	plain := api.PlanStep{Rationale: "Check metrics first."}
	assert.False(t, plain.RequiresApproval())
	assert.False(t, plain.Final())
}
