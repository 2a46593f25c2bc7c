package planner

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?[ \t]*\n?")
	fenceClose = regexp.MustCompile("\n?```$")
)

// Parse turns raw planner output into a Plan. Markdown fences the model may
// wrap around its JSON are stripped first. On any decode or shape failure it
// returns an empty Plan, never an error: a workflow that cannot understand
// its planner should stop cleanly, not crash or loop on garbage.
func Parse(raw string) api.Plan {
	plan, err := decode(raw)
	if err != nil {
		return api.Plan{}
	}
	return plan
}

func decode(raw string) (api.Plan, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = fenceOpen.ReplaceAllString(cleaned, "")
	cleaned = fenceClose.ReplaceAllString(cleaned, "")

	var plan api.Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return api.Plan{}, err
	}
	return plan, nil
}
