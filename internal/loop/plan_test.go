package loop

import "testing"

func TestExtractPlanSlicesBraces(t *testing.T) {
	raw := "Here is my plan:\n```json\n{\"summary\":\"Triage\",\"actions\":[{\"method\":\"task.update\",\"params\":{\"taskId\":\"tsk_1\"}}]}\n```\nDone."
	plan, ok := extractPlan(raw)
	if !ok {
		t.Fatal("expected plan to parse")
	}
	if plan.Summary != "Triage" || len(plan.Actions) != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Actions[0].Method != "task.update" {
		t.Fatalf("unexpected action: %+v", plan.Actions[0])
	}
}

func TestExtractPlanMalformedDegrades(t *testing.T) {
	for _, raw := range []string{
		"no json here at all",
		"{not valid json}",
		"}{",
		"",
	} {
		plan, ok := extractPlan(raw)
		if ok {
			t.Fatalf("expected parse failure for %q", raw)
		}
		if plan.Summary != "No actions proposed." || len(plan.Actions) != 0 {
			t.Fatalf("expected empty plan for %q, got %+v", raw, plan)
		}
	}
}

func TestExtractPlanFillsDefaults(t *testing.T) {
	plan, ok := extractPlan(`{"summary":"   "}`)
	if !ok {
		t.Fatal("expected plan to parse")
	}
	if plan.Summary != "No actions proposed." {
		t.Fatalf("expected default summary, got %q", plan.Summary)
	}
	if plan.Actions == nil || len(plan.Actions) != 0 {
		t.Fatalf("expected empty action slice, got %#v", plan.Actions)
	}
}
