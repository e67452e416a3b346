package loop

import (
	"encoding/json"
	"strings"
)

// Plan is the shape the model is asked to emit.
type Plan struct {
	Summary string       `json:"summary"`
	Actions []PlanAction `json:"actions"`
}

type PlanAction struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	Note   string         `json:"note,omitempty"`
}

func emptyPlan() Plan {
	return Plan{Summary: "No actions proposed.", Actions: []PlanAction{}}
}

// extractPlan recovers a plan object from arbitrary model output by slicing
// from the first '{' to the last '}'. Models wrap JSON in prose and code
// fences often enough that strict parsing of the whole reply is useless.
// Anything that does not decode degrades to the empty plan; the second
// return reports whether decoding succeeded.
func extractPlan(raw string) (Plan, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return emptyPlan(), false
	}
	var plan Plan
	if err := json.Unmarshal([]byte(raw[start:end+1]), &plan); err != nil {
		return emptyPlan(), false
	}
	if plan.Actions == nil {
		plan.Actions = []PlanAction{}
	}
	if strings.TrimSpace(plan.Summary) == "" {
		plan.Summary = "No actions proposed."
	}
	return plan, true
}
