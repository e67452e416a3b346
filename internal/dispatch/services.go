package dispatch

import (
	"context"
	"time"

	"github.com/ravendocs/raven-agent/internal/store"
)

// User identifies the authenticated caller every dispatched action runs as.
// The workspace id is authoritative: callers cannot pick a different one
// through parameters.
type User struct {
	ID          string
	WorkspaceID string
}

// Services is the collaborator surface the dispatcher drives. The sqlite
// store satisfies it; deployments embedding a different backend implement it
// themselves.
type Services interface {
	CreateSpace(ctx context.Context, input store.CreateSpaceInput) (store.Space, error)
	ListSpaces(ctx context.Context, workspaceID string, limit int) ([]store.Space, error)
	UpdateSpace(ctx context.Context, input store.UpdateSpaceInput) (store.Space, error)
	DeleteSpace(ctx context.Context, id, workspaceID string) error

	CreatePage(ctx context.Context, input store.CreatePageInput) (store.Page, error)
	GetPage(ctx context.Context, id, workspaceID string) (store.Page, error)
	ListPages(ctx context.Context, workspaceID, spaceID string, limit int) ([]store.Page, error)
	UpdatePage(ctx context.Context, input store.UpdatePageInput) (store.Page, error)
	MovePage(ctx context.Context, input store.MovePageInput) (store.Page, error)
	DeletePage(ctx context.Context, id, workspaceID string) error

	GetUser(ctx context.Context, userID, workspaceID string) (store.User, error)
	ListUsers(ctx context.Context, workspaceID, query string, limit int) ([]store.User, error)
	UpdateUser(ctx context.Context, input store.UpdateUserInput) (store.User, error)

	CreateComment(ctx context.Context, input store.CreateCommentInput) (store.Comment, error)
	ListComments(ctx context.Context, workspaceID, pageID string, limit int) ([]store.Comment, error)
	UpdateComment(ctx context.Context, input store.UpdateCommentInput) (store.Comment, error)
	DeleteComment(ctx context.Context, id, workspaceID string) error

	CreateGroup(ctx context.Context, input store.CreateGroupInput) (store.Group, error)
	GetGroup(ctx context.Context, id, workspaceID string) (store.Group, error)
	ListGroups(ctx context.Context, workspaceID string, limit int) ([]store.Group, error)
	UpdateGroup(ctx context.Context, input store.UpdateGroupInput) (store.Group, error)
	DeleteGroup(ctx context.Context, id, workspaceID string) error
	AddGroupMembers(ctx context.Context, groupID, workspaceID string, userIDs []string) (store.Group, error)
	RemoveGroupMember(ctx context.Context, groupID, workspaceID, userID string) (store.Group, error)

	GetWorkspace(ctx context.Context, id string) (store.Workspace, error)
	ListWorkspaces(ctx context.Context, limit int) ([]store.Workspace, error)
	UpdateWorkspace(ctx context.Context, input store.UpdateWorkspaceInput) (store.Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error
	AddWorkspaceMember(ctx context.Context, input store.AddWorkspaceMemberInput) (store.User, error)
	RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error

	CreateTask(ctx context.Context, input store.CreateTaskInput) (store.Task, error)
	ListTasks(ctx context.Context, input store.ListTasksInput) ([]store.Task, error)
	UpdateTask(ctx context.Context, input store.UpdateTaskInput) (store.Task, error)
	DeleteTask(ctx context.Context, id, workspaceID string) error

	CreateProject(ctx context.Context, input store.CreateProjectInput) (store.Project, error)
	ListProjects(ctx context.Context, workspaceID, spaceID string, limit int) ([]store.Project, error)
	DeleteProject(ctx context.Context, id, workspaceID string) error

	CreateGoal(ctx context.Context, input store.CreateGoalInput) (store.Goal, error)
	UpdateGoal(ctx context.Context, input store.UpdateGoalInput) (store.Goal, error)

	CreateAttachment(ctx context.Context, input store.CreateAttachmentInput) (store.Attachment, error)
	GetAttachment(ctx context.Context, id, workspaceID string) (store.Attachment, error)
	ListAttachments(ctx context.Context, workspaceID, pageID string, limit int) ([]store.Attachment, error)
	DeleteAttachment(ctx context.Context, id, workspaceID string) error
}

// AccessChecker re-verifies membership before any action executes, no matter
// what upstream layer already decided.
type AccessChecker interface {
	CheckWorkspaceAccess(ctx context.Context, userID, workspaceID string) error
	CheckSpaceAccess(ctx context.Context, userID, workspaceID, spaceID string) error
}

func parseTimeParam(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
