package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/approval"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/store"
)

// ErrForbidden is returned when the workspace has not enabled the autonomous
// loop, or the acting user cannot read the target space. It is terminal: the
// caller should not retry.
var ErrForbidden = errors.New("autonomous loop not permitted")

const systemPrompt = `You are the workspace agent for a collaborative wiki. ` +
	`Given the workspace context, propose at most three next actions as JSON: ` +
	`{"summary":"...","actions":[{"method":"<dotted method>","params":{...},"note":"..."}]}. ` +
	`Propose nothing when nothing is worth doing.`

// ContextStore supplies the data the runner gathers before planning and the
// sinks it writes results into.
type ContextStore interface {
	GetWorkspace(ctx context.Context, id string) (store.Workspace, error)
	CheckSpaceAccess(ctx context.Context, userID, workspaceID, spaceID string) error
	ListGoals(ctx context.Context, workspaceID string, limit int) ([]store.Goal, error)
	QueryMemories(ctx context.Context, input store.QueryMemoriesInput) ([]store.Memory, error)
	TriageCounts(ctx context.Context, workspaceID string) (map[string]int, error)
	IngestMemory(ctx context.Context, input store.IngestMemoryInput) (store.Memory, error)
	AppendAuditEvent(ctx context.Context, input store.AppendAuditEventInput) (store.AuditEvent, error)
}

type Planner interface {
	Complete(ctx context.Context, workspaceID, userID, prompt string) (string, error)
}

// ActionResult records what happened to one proposed action. Status is one
// of applied, failed, forbidden, skipped or approval:<token>.
type ActionResult struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	Status string         `json:"status"`
	Note   string         `json:"note,omitempty"`
}

type Result struct {
	Summary string         `json:"summary"`
	Actions []ActionResult `json:"actions"`
}

type Config struct {
	MaxActions  int
	ApprovalTTL time.Duration
}

type Runner struct {
	store      ContextStore
	policy     *agent.Policy
	ledger     *approval.Ledger
	dispatcher *dispatch.Dispatcher
	planner    Planner
	cfg        Config
	logger     *slog.Logger
}

func NewRunner(cs ContextStore, policy *agent.Policy, ledger *approval.Ledger, dispatcher *dispatch.Dispatcher, planner Planner, cfg Config, logger *slog.Logger) *Runner {
	if cfg.MaxActions < 1 {
		cfg.MaxActions = 3
	}
	if cfg.ApprovalTTL <= 0 {
		cfg.ApprovalTTL = 10 * time.Minute
	}
	return &Runner{
		store:      cs,
		policy:     policy,
		ledger:     ledger,
		dispatcher: dispatcher,
		planner:    planner,
		cfg:        cfg,
		logger:     logger.With("component", "loop"),
	}
}

// Run executes one loop pass for the user in the given space. Exactly one
// memory record is ingested per run regardless of how many actions ran.
func (r *Runner) Run(ctx context.Context, user dispatch.User, spaceID string) (Result, error) {
	workspace, err := r.store.GetWorkspace(ctx, user.WorkspaceID)
	if err != nil {
		return Result{}, fmt.Errorf("load workspace: %w", err)
	}
	settings := agent.ResolveSettings(agentSettingsObject(workspace))
	if !settings.Enabled || !settings.EnableAutonomousLoop {
		return Result{}, ErrForbidden
	}
	if err := r.store.CheckSpaceAccess(ctx, user.ID, user.WorkspaceID, spaceID); err != nil {
		if errors.Is(err, store.ErrAccessDenied) {
			return Result{}, ErrForbidden
		}
		return Result{}, fmt.Errorf("check space access: %w", err)
	}

	prompt := r.buildPrompt(ctx, user.WorkspaceID, spaceID)
	plan := emptyPlan()
	raw, err := r.planner.Complete(ctx, user.WorkspaceID, user.ID, prompt)
	if err != nil {
		r.logger.Warn("planner unavailable", "workspace", user.WorkspaceID, "error", err)
		r.audit(ctx, user, spaceID, "plan_failed", err.Error())
	} else {
		var parsed bool
		plan, parsed = extractPlan(raw)
		if !parsed {
			r.logger.Warn("malformed plan", "workspace", user.WorkspaceID)
			r.audit(ctx, user, spaceID, "plan_malformed", truncate(raw, 400))
		}
	}

	actions := plan.Actions
	if len(actions) > r.cfg.MaxActions {
		actions = actions[:r.cfg.MaxActions]
	}

	result := Result{Summary: plan.Summary, Actions: make([]ActionResult, 0, len(actions))}
	for _, action := range actions {
		result.Actions = append(result.Actions, r.runAction(ctx, user, spaceID, settings, action))
	}

	r.ingest(ctx, user, spaceID, result)
	return result, nil
}

func (r *Runner) runAction(ctx context.Context, user dispatch.User, spaceID string, settings agent.Settings, action PlanAction) ActionResult {
	params := action.Params
	if params == nil {
		params = map[string]any{}
	}
	if spaceID != "" {
		if _, ok := params["spaceId"]; !ok {
			params["spaceId"] = spaceID
		}
	}
	out := ActionResult{Method: action.Method, Params: params, Note: action.Note}

	method, ok := dispatch.ParseMethod(strings.TrimSpace(action.Method))
	if !ok {
		out.Status = "skipped"
		return out
	}

	switch r.policy.Classify(method, settings) {
	case agent.DecisionForbidden:
		out.Status = "forbidden"
	case agent.DecisionNeedsApproval:
		grant, err := r.ledger.Create(ctx, user.ID, method, params, r.cfg.ApprovalTTL)
		if err != nil {
			r.logger.Warn("approval mint failed", "method", method.String(), "error", err)
			out.Status = "failed"
			return out
		}
		out.Status = "approval:" + grant.Token
	case agent.DecisionAutoApply:
		if _, rpcErr := r.dispatcher.Dispatch(ctx, method, params, user); rpcErr != nil {
			r.logger.Warn("loop action failed", "method", method.String(), "code", rpcErr.Code, "error", rpcErr.Message)
			out.Status = "failed"
		} else {
			out.Status = "applied"
		}
	}
	return out
}

func (r *Runner) buildPrompt(ctx context.Context, workspaceID, spaceID string) string {
	var builder strings.Builder
	builder.WriteString("Workspace context:\n")

	if goals, err := r.store.ListGoals(ctx, workspaceID, 5); err == nil && len(goals) > 0 {
		builder.WriteString("Goals:\n")
		for _, goal := range goals {
			fmt.Fprintf(&builder, "- %s (%s)\n", goal.Name, goal.Horizon)
		}
	}
	if counts, err := r.store.TriageCounts(ctx, workspaceID); err == nil && len(counts) > 0 {
		builder.WriteString("Task counts by status:\n")
		for status, count := range counts {
			fmt.Fprintf(&builder, "- %s: %d\n", status, count)
		}
	}
	if memories, err := r.store.QueryMemories(ctx, store.QueryMemoriesInput{WorkspaceID: workspaceID, Tag: "loop", Limit: 5}); err == nil && len(memories) > 0 {
		builder.WriteString("Recent loop runs:\n")
		for _, memory := range memories {
			fmt.Fprintf(&builder, "- %s\n", memory.Summary)
		}
	}
	if spaceID != "" {
		fmt.Fprintf(&builder, "Target space: %s\n", spaceID)
	}
	builder.WriteString("\n")
	builder.WriteString(systemPrompt)
	return builder.String()
}

func (r *Runner) ingest(ctx context.Context, user dispatch.User, spaceID string, result Result) {
	content := map[string]any{"actions": result.Actions}
	if encoded, err := json.Marshal(result.Actions); err == nil {
		content = map[string]any{"actions": json.RawMessage(encoded)}
	}
	if _, err := r.store.IngestMemory(ctx, store.IngestMemoryInput{
		WorkspaceID: user.WorkspaceID,
		SpaceID:     spaceID,
		Source:      "agent",
		Summary:     result.Summary,
		Content:     content,
		Tags:        []string{"agent", "loop"},
	}); err != nil {
		r.logger.Warn("loop memory ingest failed", "workspace", user.WorkspaceID, "error", err)
	}
}

func (r *Runner) audit(ctx context.Context, user dispatch.User, spaceID, eventType, detail string) {
	if _, err := r.store.AppendAuditEvent(ctx, store.AppendAuditEventInput{
		WorkspaceID: user.WorkspaceID,
		SpaceID:     spaceID,
		ActorUserID: user.ID,
		EventType:   eventType,
		Detail:      detail,
	}); err != nil {
		r.logger.Warn("audit append failed", "event", eventType, "error", err)
	}
}

func agentSettingsObject(workspace store.Workspace) map[string]any {
	raw, _ := workspace.Settings["agent"].(map[string]any)
	return raw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
