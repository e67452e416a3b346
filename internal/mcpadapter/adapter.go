package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/approval"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/store"
)

const serverName = "raven-agent"

// SettingsSource yields the workspace record whose agent settings gate tool
// calls.
type SettingsSource interface {
	GetWorkspace(ctx context.Context, id string) (store.Workspace, error)
}

// CallResult is the flattened outcome of one tool call. Text is always a
// JSON document.
type CallResult struct {
	Text    string
	IsError bool
}

// Resource describes one readable catalog resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// Adapter translates the external tool protocol into policy-checked internal
// dispatches. One adapter serves all sessions; the acting user is passed per
// call.
type Adapter struct {
	policy      *agent.Policy
	ledger      *approval.Ledger
	dispatcher  *dispatch.Dispatcher
	settings    SettingsSource
	approvalTTL time.Duration
	logger      *slog.Logger
}

func New(policy *agent.Policy, ledger *approval.Ledger, dispatcher *dispatch.Dispatcher, settings SettingsSource, approvalTTL time.Duration, logger *slog.Logger) *Adapter {
	if approvalTTL <= 0 {
		approvalTTL = 5 * time.Minute
	}
	return &Adapter{
		policy:      policy,
		ledger:      ledger,
		dispatcher:  dispatcher,
		settings:    settings,
		approvalTTL: approvalTTL,
		logger:      logger.With("component", "mcpadapter"),
	}
}

// Initialize reports the server identity and catalog version.
func (a *Adapter) Initialize() map[string]any {
	return map[string]any{
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": CatalogVersion,
		},
	}
}

func (a *Adapter) ListTools() []ToolSpec {
	return Catalog()
}

// CallTool runs one external tool call end to end: translate, inject the
// authoritative workspace, classify, resolve approvals, dispatch.
func (a *Adapter) CallTool(ctx context.Context, user dispatch.User, toolName string, args map[string]any) CallResult {
	method, params, ok := Translate(toolName, args)
	if !ok {
		return errorResult(fmt.Sprintf("unknown tool: %s", toolName))
	}
	// The session decides the workspace, never the arguments.
	params["workspaceId"] = user.WorkspaceID

	workspace, err := a.settings.GetWorkspace(ctx, user.WorkspaceID)
	if err != nil {
		a.logger.Warn("workspace load failed", "workspace", user.WorkspaceID, "error", err)
		return errorResult("workspace unavailable")
	}
	settings := agent.ResolveSettings(workspaceAgentSettings(workspace))

	switch a.policy.Classify(method, settings) {
	case agent.DecisionForbidden:
		return errorResult(fmt.Sprintf("action %s is not permitted in this workspace", method))
	case agent.DecisionNeedsApproval:
		token, _ := params["approvalToken"].(string)
		if strings.TrimSpace(token) == "" {
			grant, err := a.ledger.Create(ctx, user.ID, method, params, a.approvalTTL)
			if err != nil {
				a.logger.Error("approval mint failed", "method", method.String(), "error", err)
				return errorResult("could not create approval")
			}
			return jsonResult(map[string]any{
				"approvalRequired": true,
				"method":           method.String(),
				"token":            grant.Token,
				"expiresAt":        grant.ExpiresAt.UTC().Format(time.RFC3339),
			})
		}
		if !a.ledger.Consume(ctx, user.ID, method, params, token) {
			return errorResult("approval could not be confirmed; the action was not applied")
		}
	case agent.DecisionAutoApply:
		// fall through to dispatch
	}

	result, rpcErr := a.dispatcher.Dispatch(ctx, method, params, user)
	if rpcErr != nil {
		return jsonErrorResult(map[string]any{"code": rpcErr.Code, "message": rpcErr.Message})
	}
	return jsonResult(result)
}

func (a *Adapter) ListResources() []Resource {
	return []Resource{
		{URI: "raven://spaces", Name: "spaces", Description: "Spaces in the current workspace", MIMEType: "application/json"},
		{URI: "raven://pages", Name: "pages", Description: "Recently updated pages", MIMEType: "application/json"},
		{URI: "raven://users", Name: "users", Description: "Workspace members", MIMEType: "application/json"},
	}
}

const resourceListLimit = 100

// ReadResource serves the static resource URIs by delegating to the matching
// list method.
func (a *Adapter) ReadResource(ctx context.Context, user dispatch.User, uri string) (string, error) {
	var method dispatch.Method
	switch strings.TrimSpace(uri) {
	case "raven://spaces":
		method = dispatch.MethodSpaceList
	case "raven://pages":
		method = dispatch.MethodPageList
	case "raven://users":
		method = dispatch.MethodUserList
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
	result, rpcErr := a.dispatcher.Dispatch(ctx, method, map[string]any{"limit": resourceListLimit}, user)
	if rpcErr != nil {
		return "", fmt.Errorf("read resource %s: %s", uri, rpcErr.Message)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode resource %s: %w", uri, err)
	}
	return string(encoded), nil
}

// Subscribe acknowledges without tracking state: resource change
// notifications are not emitted, so a subscription is inert.
func (a *Adapter) Subscribe(uri string) map[string]any {
	return map[string]any{"subscribed": true, "uri": uri}
}

func (a *Adapter) Unsubscribe(uri string) map[string]any {
	return map[string]any{"unsubscribed": true, "uri": uri}
}

// PromptSpec describes an available prompt.
type PromptSpec struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

func (a *Adapter) ListPrompts() []PromptSpec {
	return []PromptSpec{
		{
			Name:        "create_documentation",
			Description: "Draft structured documentation for a topic in the workspace.",
			Arguments: []PromptArgument{
				{Name: "topic", Description: "What to document", Required: true},
				{Name: "spaceId", Description: "Space to create the documentation in", Required: false},
			},
		},
	}
}

func (a *Adapter) GetPrompt(name string, args map[string]string) (string, error) {
	if strings.TrimSpace(name) != "create_documentation" {
		return "", fmt.Errorf("unknown prompt: %s", name)
	}
	topic := strings.TrimSpace(args["topic"])
	if topic == "" {
		topic = "the requested topic"
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Create documentation for %s.\n\n", topic)
	builder.WriteString("Structure it as: overview, prerequisites, step-by-step instructions, troubleshooting.\n")
	builder.WriteString("Use page_create to store the result")
	if spaceID := strings.TrimSpace(args["spaceId"]); spaceID != "" {
		fmt.Fprintf(&builder, " in space %s", spaceID)
	}
	builder.WriteString(", then summarize what you created.")
	return builder.String(), nil
}

func workspaceAgentSettings(workspace store.Workspace) map[string]any {
	raw, _ := workspace.Settings["agent"].(map[string]any)
	return raw
}

func jsonResult(payload any) CallResult {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return errorResult("could not encode result")
	}
	return CallResult{Text: string(encoded)}
}

func jsonErrorResult(payload any) CallResult {
	result := jsonResult(payload)
	result.IsError = true
	return result
}

func errorResult(message string) CallResult {
	return jsonErrorResult(map[string]any{"message": message})
}
