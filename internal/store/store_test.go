package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "meta.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedWorkspace(t *testing.T, s *Store) Workspace {
	t.Helper()
	workspace, err := s.CreateWorkspace(context.Background(), CreateWorkspaceInput{Slug: "Acme", Name: "Acme"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return workspace
}

func seedSpace(t *testing.T, s *Store, workspaceID string) Space {
	t.Helper()
	space, err := s.CreateSpace(context.Background(), CreateSpaceInput{WorkspaceID: workspaceID, Name: "General"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	return space
}

func TestCreateWorkspaceProvisionsOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workspace := seedWorkspace(t, s)
	if workspace.Slug != "acme" {
		t.Fatalf("expected lowercased slug, got %q", workspace.Slug)
	}
	if workspace.OwnerUserID == "" {
		t.Fatal("expected owner user id")
	}
	owner, err := s.GetUser(ctx, workspace.OwnerUserID, workspace.ID)
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}
	if owner.Role != "admin" {
		t.Fatalf("expected admin owner, got %q", owner.Role)
	}
}

func TestWorkspaceAccessChecks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedWorkspace(t, s)
	second, err := s.CreateWorkspace(ctx, CreateWorkspaceInput{Slug: "other", Name: "Other"})
	if err != nil {
		t.Fatalf("create second workspace: %v", err)
	}

	if err := s.CheckWorkspaceAccess(ctx, first.OwnerUserID, first.ID); err != nil {
		t.Fatalf("expected owner access, got %v", err)
	}
	if err := s.CheckWorkspaceAccess(ctx, first.OwnerUserID, second.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied across workspaces, got %v", err)
	}

	space := seedSpace(t, s, first.ID)
	if err := s.CheckSpaceAccess(ctx, first.OwnerUserID, first.ID, space.ID); err != nil {
		t.Fatalf("expected space access, got %v", err)
	}
	if err := s.CheckSpaceAccess(ctx, second.OwnerUserID, second.ID, space.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected denied space access, got %v", err)
	}
}

func TestMovePageParentSemantics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workspace := seedWorkspace(t, s)
	space := seedSpace(t, s, workspace.ID)
	other, err := s.CreateSpace(ctx, CreateSpaceInput{WorkspaceID: workspace.ID, Name: "Docs"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	parent, err := s.CreatePage(ctx, CreatePageInput{WorkspaceID: workspace.ID, SpaceID: space.ID, Title: "Parent"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := s.CreatePage(ctx, CreatePageInput{WorkspaceID: workspace.ID, SpaceID: space.ID, ParentID: parent.ID, Title: "Child"})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	// Omitted parent keeps the existing one.
	moved, err := s.MovePage(ctx, MovePageInput{ID: child.ID, WorkspaceID: workspace.ID, TargetSpaceID: other.ID})
	if err != nil {
		t.Fatalf("move page: %v", err)
	}
	if moved.SpaceID != other.ID || moved.ParentID != parent.ID {
		t.Fatalf("expected space change with parent retained, got space=%q parent=%q", moved.SpaceID, moved.ParentID)
	}

	// Explicit empty parent clears it.
	root := ""
	moved, err = s.MovePage(ctx, MovePageInput{ID: child.ID, WorkspaceID: workspace.ID, ParentID: &root})
	if err != nil {
		t.Fatalf("move page to root: %v", err)
	}
	if moved.ParentID != "" {
		t.Fatalf("expected cleared parent, got %q", moved.ParentID)
	}
}

func TestTaskLifecycleAndTriageCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workspace := seedWorkspace(t, s)
	space := seedSpace(t, s, workspace.ID)

	task, err := s.CreateTask(ctx, CreateTaskInput{WorkspaceID: workspace.ID, SpaceID: space.ID, Title: "Write release notes"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != "inbox" {
		t.Fatalf("expected inbox status, got %q", task.Status)
	}
	if _, err := s.CreateTask(ctx, CreateTaskInput{WorkspaceID: workspace.ID, SpaceID: space.ID, Title: "Ship it", Status: "doing"}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	updated, err := s.UpdateTask(ctx, UpdateTaskInput{ID: task.ID, WorkspaceID: workspace.ID, Status: "done"})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Status != "done" {
		t.Fatalf("expected done status, got %q", updated.Status)
	}

	counts, err := s.TriageCounts(ctx, workspace.ID)
	if err != nil {
		t.Fatalf("triage counts: %v", err)
	}
	if counts["done"] != 1 || counts["doing"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	if err := s.DeleteTask(ctx, task.ID, workspace.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID, workspace.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestGroupMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workspace := seedWorkspace(t, s)
	member, err := s.AddWorkspaceMember(ctx, AddWorkspaceMemberInput{WorkspaceID: workspace.ID, Email: "dev@acme.test"})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	group, err := s.CreateGroup(ctx, CreateGroupInput{WorkspaceID: workspace.ID, Name: "Engineering"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	group, err = s.AddGroupMembers(ctx, group.ID, workspace.ID, []string{member.ID, member.ID})
	if err != nil {
		t.Fatalf("add group members: %v", err)
	}
	if len(group.MemberIDs) != 1 || group.MemberIDs[0] != member.ID {
		t.Fatalf("expected single member, got %v", group.MemberIDs)
	}

	if _, err := s.AddGroupMembers(ctx, group.ID, workspace.ID, []string{"usr_missing"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}

	group, err = s.RemoveGroupMember(ctx, group.ID, workspace.ID, member.ID)
	if err != nil {
		t.Fatalf("remove group member: %v", err)
	}
	if len(group.MemberIDs) != 0 {
		t.Fatalf("expected empty group, got %v", group.MemberIDs)
	}
}

func TestApprovalConsumeBindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	record := ApprovalRecord{
		Token:        "deadbeefdeadbeefdeadbeefdeadbeef",
		OwnerUserID:  "usr_1",
		Method:       "task.delete",
		ParamsDigest: "digest-1",
		ExpiresAt:    now.Add(5 * time.Minute),
		CreatedAt:    now,
	}
	if err := s.SaveApproval(ctx, record); err != nil {
		t.Fatalf("save approval: %v", err)
	}

	// Wrong owner, method or digest must not consume.
	for _, attempt := range []struct {
		owner, method, digest string
	}{
		{"usr_2", record.Method, record.ParamsDigest},
		{record.OwnerUserID, "task.update", record.ParamsDigest},
		{record.OwnerUserID, record.Method, "digest-2"},
	} {
		ok, err := s.ConsumeApproval(ctx, record.Token, attempt.owner, attempt.method, attempt.digest, now)
		if err != nil {
			t.Fatalf("consume approval: %v", err)
		}
		if ok {
			t.Fatalf("expected mismatch rejection for %+v", attempt)
		}
	}

	ok, err := s.ConsumeApproval(ctx, record.Token, record.OwnerUserID, record.Method, record.ParamsDigest, now)
	if err != nil {
		t.Fatalf("consume approval: %v", err)
	}
	if !ok {
		t.Fatal("expected matching consume to succeed")
	}

	// Single use.
	ok, err = s.ConsumeApproval(ctx, record.Token, record.OwnerUserID, record.Method, record.ParamsDigest, now)
	if err != nil {
		t.Fatalf("consume approval: %v", err)
	}
	if ok {
		t.Fatal("expected second consume to fail")
	}
}

func TestApprovalDeleteRequiresOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	record := ApprovalRecord{
		Token:        "cafebabecafebabecafebabecafebabe",
		OwnerUserID:  "usr_1",
		Method:       "page.delete",
		ParamsDigest: "digest",
		ExpiresAt:    now.Add(5 * time.Minute),
		CreatedAt:    now,
	}
	if err := s.SaveApproval(ctx, record); err != nil {
		t.Fatalf("save approval: %v", err)
	}

	deleted, err := s.DeleteApproval(ctx, record.Token, "usr_2")
	if err != nil {
		t.Fatalf("delete approval: %v", err)
	}
	if deleted {
		t.Fatal("expected non-owner delete to be rejected")
	}

	// The record survived; the owner can still consume it.
	ok, err := s.ConsumeApproval(ctx, record.Token, record.OwnerUserID, record.Method, record.ParamsDigest, now)
	if err != nil {
		t.Fatalf("consume approval: %v", err)
	}
	if !ok {
		t.Fatal("expected the owner's approval to survive a stranger delete")
	}

	if err := s.SaveApproval(ctx, record); err != nil {
		t.Fatalf("save approval: %v", err)
	}
	deleted, err = s.DeleteApproval(ctx, record.Token, record.OwnerUserID)
	if err != nil {
		t.Fatalf("delete approval: %v", err)
	}
	if !deleted {
		t.Fatal("expected owner delete to succeed")
	}
}

func TestApprovalExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	record := ApprovalRecord{
		Token:        "feedfacefeedfacefeedfacefeedface",
		OwnerUserID:  "usr_1",
		Method:       "page.delete",
		ParamsDigest: "digest",
		ExpiresAt:    now.Add(-time.Second),
		CreatedAt:    now.Add(-time.Minute),
	}
	if err := s.SaveApproval(ctx, record); err != nil {
		t.Fatalf("save approval: %v", err)
	}
	ok, err := s.ConsumeApproval(ctx, record.Token, record.OwnerUserID, record.Method, record.ParamsDigest, now)
	if err != nil {
		t.Fatalf("consume approval: %v", err)
	}
	if ok {
		t.Fatal("expected expired approval to be rejected")
	}

	purged, err := s.PurgeExpiredApprovals(ctx, now)
	if err != nil {
		t.Fatalf("purge approvals: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected one purged row, got %d", purged)
	}
}

func TestMemoriesQueryByTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workspace := seedWorkspace(t, s)
	if _, err := s.IngestMemory(ctx, IngestMemoryInput{
		WorkspaceID: workspace.ID,
		Source:      "agent",
		Summary:     "Loop run summary",
		Tags:        []string{"agent", "loop"},
	}); err != nil {
		t.Fatalf("ingest memory: %v", err)
	}
	if _, err := s.IngestMemory(ctx, IngestMemoryInput{
		WorkspaceID: workspace.ID,
		Source:      "chat",
		Summary:     "Chat note",
		Tags:        []string{"chat"},
	}); err != nil {
		t.Fatalf("ingest memory: %v", err)
	}

	memories, err := s.QueryMemories(ctx, QueryMemoriesInput{WorkspaceID: workspace.ID, Tag: "loop"})
	if err != nil {
		t.Fatalf("query memories: %v", err)
	}
	if len(memories) != 1 || memories[0].Summary != "Loop run summary" {
		t.Fatalf("unexpected memories: %+v", memories)
	}
}

func TestUpdateWorkspaceSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workspace := seedWorkspace(t, s)
	updated, err := s.UpdateWorkspaceSettings(ctx, workspace.ID, map[string]any{
		"agent": map[string]any{"enabled": true},
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	got, err := s.GetWorkspace(ctx, updated.ID)
	if err != nil {
		t.Fatalf("get workspace: %v", err)
	}
	agent, ok := got.Settings["agent"].(map[string]any)
	if !ok || agent["enabled"] != true {
		t.Fatalf("unexpected settings: %v", got.Settings)
	}
}
