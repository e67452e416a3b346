package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/approval"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/store"
)

type adapterEnv struct {
	adapter   *Adapter
	store     *store.Store
	workspace store.Workspace
	space     store.Space
	user      dispatch.User
}

func newAdapterEnv(t *testing.T, agentSettings map[string]any) *adapterEnv {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(filepath.Join(t.TempDir(), "meta.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.AutoMigrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	workspace, err := s.CreateWorkspace(ctx, store.CreateWorkspaceInput{Slug: "acme", Name: "Acme"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if agentSettings != nil {
		if workspace, err = s.UpdateWorkspaceSettings(ctx, workspace.ID, map[string]any{"agent": agentSettings}); err != nil {
			t.Fatalf("update settings: %v", err)
		}
	}
	space, err := s.CreateSpace(ctx, store.CreateSpaceInput{WorkspaceID: workspace.ID, Name: "General"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := New(
		agent.NewPolicy(agent.DefaultPolicyConfig()),
		approval.NewLedger(s, logger),
		dispatch.NewDispatcher(s, s, logger),
		s,
		5*time.Minute,
		logger,
	)
	return &adapterEnv{
		adapter:   adapter,
		store:     s,
		workspace: workspace,
		space:     space,
		user:      dispatch.User{ID: workspace.OwnerUserID, WorkspaceID: workspace.ID},
	}
}

func decodeResult(t *testing.T, result CallResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Text), &payload); err != nil {
		t.Fatalf("decode result %q: %v", result.Text, err)
	}
	return payload
}

func TestCallToolUnknownTool(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true})
	result := env.adapter.CallTool(context.Background(), env.user, "space_transmogrify", nil)
	if !result.IsError {
		t.Fatalf("expected error result, got %q", result.Text)
	}
}

func TestCallToolReadAutoApplies(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true})
	result := env.adapter.CallTool(context.Background(), env.user, "space_list", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error: %q", result.Text)
	}
	payload := decodeResult(t, result)
	spaces := payload["spaces"].([]any)
	if len(spaces) != 1 {
		t.Fatalf("expected one space, got %d", len(spaces))
	}
}

func TestCallToolIgnoresCallerWorkspace(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true})
	ctx := context.Background()
	other, err := env.store.CreateWorkspace(ctx, store.CreateWorkspaceInput{Slug: "other", Name: "Other"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	// The argument names another workspace; the session wins.
	result := env.adapter.CallTool(ctx, env.user, "space_list", map[string]any{"workspaceId": other.ID})
	if result.IsError {
		t.Fatalf("unexpected error: %q", result.Text)
	}
	payload := decodeResult(t, result)
	space := payload["spaces"].([]any)[0].(map[string]any)
	if space["workspaceId"] != env.workspace.ID {
		t.Fatalf("expected session workspace, got %v", space["workspaceId"])
	}
}

func TestCallToolApprovalRoundTrip(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true, "allowTaskWrites": true})
	ctx := context.Background()

	task, err := env.store.CreateTask(ctx, store.CreateTaskInput{WorkspaceID: env.workspace.ID, SpaceID: env.space.ID, Title: "Old task"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// task_delete is mandatory-approval even though task writes are granted.
	args := map[string]any{"taskId": task.ID}
	result := env.adapter.CallTool(ctx, env.user, "task_delete", args)
	if result.IsError {
		t.Fatalf("unexpected error: %q", result.Text)
	}
	payload := decodeResult(t, result)
	if payload["approvalRequired"] != true {
		t.Fatalf("expected approval challenge, got %v", payload)
	}
	token := payload["token"].(string)
	if len(token) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", token)
	}

	// Retry with the token applies the action.
	args["approvalToken"] = token
	result = env.adapter.CallTool(ctx, env.user, "task_delete", args)
	if result.IsError {
		t.Fatalf("unexpected error: %q", result.Text)
	}
	payload = decodeResult(t, result)
	if payload["deleted"] != true {
		t.Fatalf("expected deletion, got %v", payload)
	}

	// The token is spent.
	result = env.adapter.CallTool(ctx, env.user, "task_delete", args)
	if !result.IsError {
		t.Fatalf("expected spent token to fail, got %q", result.Text)
	}
}

func TestCallToolApprovalRejectsChangedParams(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true})
	ctx := context.Background()

	result := env.adapter.CallTool(ctx, env.user, "task_create", map[string]any{
		"spaceId": env.space.ID,
		"title":   "Approved title",
	})
	payload := decodeResult(t, result)
	if payload["approvalRequired"] != true {
		t.Fatalf("expected approval challenge, got %v", payload)
	}
	token := payload["token"].(string)

	result = env.adapter.CallTool(ctx, env.user, "task_create", map[string]any{
		"spaceId":       env.space.ID,
		"title":         "Different title",
		"approvalToken": token,
	})
	if !result.IsError {
		t.Fatalf("expected changed params to be rejected, got %q", result.Text)
	}
}

func TestCallToolCommentCreateTranslated(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true, "allowPageWrites": true})
	ctx := context.Background()

	page, err := env.store.CreatePage(ctx, store.CreatePageInput{WorkspaceID: env.workspace.ID, SpaceID: env.space.ID, Title: "Notes"})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	result := env.adapter.CallTool(ctx, env.user, "comment_create", map[string]any{
		"pageId": page.ID,
		"text":   "Looks good",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %q", result.Text)
	}
	payload := decodeResult(t, result)
	comment := payload["comment"].(map[string]any)
	content := comment["content"].(map[string]any)
	if content["text"] != "Looks good" {
		t.Fatalf("expected translated content, got %v", content)
	}
}

func TestReadResourceUsesListLimit(t *testing.T) {
	env := newAdapterEnv(t, map[string]any{"enabled": true})
	ctx := context.Background()

	text, err := env.adapter.ReadResource(ctx, env.user, "raven://spaces")
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("decode resource: %v", err)
	}
	if _, ok := payload["spaces"]; !ok {
		t.Fatalf("expected spaces payload, got %v", payload)
	}

	if _, err := env.adapter.ReadResource(ctx, env.user, "raven://bogus"); err == nil {
		t.Fatal("expected unknown resource to fail")
	}
}

func TestSubscribeUnsubscribeAcknowledge(t *testing.T) {
	env := newAdapterEnv(t, nil)
	if payload := env.adapter.Subscribe("raven://spaces"); payload["subscribed"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload := env.adapter.Unsubscribe("raven://spaces"); payload["unsubscribed"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestGetPromptCreateDocumentation(t *testing.T) {
	env := newAdapterEnv(t, nil)
	text, err := env.adapter.GetPrompt("create_documentation", map[string]string{"topic": "release process"})
	if err != nil {
		t.Fatalf("get prompt: %v", err)
	}
	if text == "" {
		t.Fatal("expected prompt text")
	}
	if _, err := env.adapter.GetPrompt("bogus", nil); err == nil {
		t.Fatal("expected unknown prompt to fail")
	}
}
