package dispatch

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ravendocs/raven-agent/internal/store"
)

type testEnv struct {
	dispatcher *Dispatcher
	store      *store.Store
	workspace  store.Workspace
	space      store.Space
	user       User
}

func newTestEnv(t *testing.T) *testEnv {
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
	space, err := s.CreateSpace(ctx, store.CreateSpaceInput{WorkspaceID: workspace.ID, Name: "General"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		dispatcher: NewDispatcher(s, s, logger),
		store:      s,
		workspace:  workspace,
		space:      space,
		user:       User{ID: workspace.OwnerUserID, WorkspaceID: workspace.ID},
	}
}

func TestProcessRequestUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	response := env.dispatcher.ProcessRequest(context.Background(), Request{
		JSONRPC: "2.0",
		Method:  "page.transmogrify",
		ID:      1,
	}, env.user)
	if response.Error == nil || response.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", response.Error)
	}
	if response.JSONRPC != "2.0" {
		t.Fatalf("expected jsonrpc 2.0 envelope, got %q", response.JSONRPC)
	}
}

func TestDispatchValidatesRequiredParams(t *testing.T) {
	env := newTestEnv(t)
	_, rpcErr := env.dispatcher.Dispatch(context.Background(), MethodTaskCreate, map[string]any{
		"spaceId": env.space.ID,
	}, env.user)
	if rpcErr == nil || rpcErr.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", rpcErr)
	}
}

func TestDispatchTaskRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, rpcErr := env.dispatcher.Dispatch(ctx, MethodTaskCreate, map[string]any{
		"spaceId": env.space.ID,
		"title":   "Draft launch plan",
	}, env.user)
	if rpcErr != nil {
		t.Fatalf("create task: %+v", rpcErr)
	}
	task := result.(map[string]any)["task"].(map[string]any)
	if task["status"] != "inbox" {
		t.Fatalf("expected inbox status, got %v", task["status"])
	}

	result, rpcErr = env.dispatcher.Dispatch(ctx, MethodTaskList, map[string]any{"spaceId": env.space.ID}, env.user)
	if rpcErr != nil {
		t.Fatalf("list tasks: %+v", rpcErr)
	}
	tasks := result.(map[string]any)["tasks"].([]map[string]any)
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
}

func TestDispatchReVerifiesAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	outsider, err := env.store.CreateWorkspace(ctx, store.CreateWorkspaceInput{Slug: "other", Name: "Other"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	// Outsider acting in their own workspace cannot reach env's space.
	_, rpcErr := env.dispatcher.Dispatch(ctx, MethodPageCreate, map[string]any{
		"spaceId": env.space.ID,
		"title":   "Intrusion",
	}, User{ID: outsider.OwnerUserID, WorkspaceID: outsider.ID})
	if rpcErr == nil || rpcErr.Code != CodeForbidden {
		t.Fatalf("expected forbidden, got %+v", rpcErr)
	}

	// A user id from another workspace is denied even on reads.
	_, rpcErr = env.dispatcher.Dispatch(ctx, MethodSpaceList, nil, User{ID: outsider.OwnerUserID, WorkspaceID: env.workspace.ID})
	if rpcErr == nil || rpcErr.Code != CodeForbidden {
		t.Fatalf("expected forbidden, got %+v", rpcErr)
	}
}

func TestDispatchPageMoveExplicitNullParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent, err := env.store.CreatePage(ctx, store.CreatePageInput{WorkspaceID: env.workspace.ID, SpaceID: env.space.ID, Title: "Parent"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := env.store.CreatePage(ctx, store.CreatePageInput{WorkspaceID: env.workspace.ID, SpaceID: env.space.ID, ParentID: parent.ID, Title: "Child"})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	// Omitted parentId keeps the parent.
	result, rpcErr := env.dispatcher.Dispatch(ctx, MethodPageMove, map[string]any{"pageId": child.ID}, env.user)
	if rpcErr != nil {
		t.Fatalf("move page: %+v", rpcErr)
	}
	page := result.(map[string]any)["page"].(map[string]any)
	if page["parentId"] != parent.ID {
		t.Fatalf("expected parent retained, got %v", page["parentId"])
	}

	// Explicit null clears it.
	result, rpcErr = env.dispatcher.Dispatch(ctx, MethodPageMove, map[string]any{"pageId": child.ID, "parentId": nil}, env.user)
	if rpcErr != nil {
		t.Fatalf("move page: %+v", rpcErr)
	}
	page = result.(map[string]any)["page"].(map[string]any)
	if page["parentId"] != nil {
		t.Fatalf("expected cleared parent, got %v", page["parentId"])
	}
}

func TestDispatchGroupAddMemberAcceptsBothShapes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member, err := env.store.AddWorkspaceMember(ctx, store.AddWorkspaceMemberInput{WorkspaceID: env.workspace.ID, Email: "dev@acme.test"})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	result, rpcErr := env.dispatcher.Dispatch(ctx, MethodGroupCreate, map[string]any{"name": "Engineering"}, env.user)
	if rpcErr != nil {
		t.Fatalf("create group: %+v", rpcErr)
	}
	groupID := result.(map[string]any)["group"].(map[string]any)["id"].(string)

	result, rpcErr = env.dispatcher.Dispatch(ctx, MethodGroupAddMember, map[string]any{
		"groupId": groupID,
		"userId":  member.ID,
		"userIds": []any{member.ID},
	}, env.user)
	if rpcErr != nil {
		t.Fatalf("add group member: %+v", rpcErr)
	}
	memberIDs := result.(map[string]any)["group"].(map[string]any)["memberIds"].([]string)
	if len(memberIDs) != 1 {
		t.Fatalf("expected deduplicated membership, got %v", memberIDs)
	}
}

func TestDispatchUINavigateEchoes(t *testing.T) {
	env := newTestEnv(t)
	result, rpcErr := env.dispatcher.Dispatch(context.Background(), MethodUINavigate, map[string]any{"target": "/spaces"}, env.user)
	if rpcErr != nil {
		t.Fatalf("navigate: %+v", rpcErr)
	}
	payload := result.(map[string]any)
	if payload["navigated"] != true || payload["target"] != "/spaces" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestDispatchCoversRegistry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// Every registered method must hit a switch case, not the fallthrough.
	for _, method := range Methods() {
		_, rpcErr := env.dispatcher.Dispatch(ctx, method, map[string]any{}, env.user)
		if rpcErr != nil && rpcErr.Code == CodeMethodNotFound {
			t.Fatalf("method %s fell through the dispatch switch", method)
		}
	}
}
