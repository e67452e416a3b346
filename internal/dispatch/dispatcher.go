package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ravendocs/raven-agent/internal/store"
)

// Dispatcher maps parsed methods onto collaborator services. It owns
// parameter validation and access re-verification; business rules live in
// the services themselves.
type Dispatcher struct {
	services Services
	access   AccessChecker
	logger   *slog.Logger
}

func NewDispatcher(services Services, access AccessChecker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		services: services,
		access:   access,
		logger:   logger.With("component", "dispatch"),
	}
}

// ProcessRequest wraps Dispatch in the JSON-RPC envelope.
func (d *Dispatcher) ProcessRequest(ctx context.Context, request Request, user User) Response {
	response := Response{JSONRPC: jsonRPCVersion, ID: request.ID}
	method, ok := ParseMethod(strings.TrimSpace(request.Method))
	if !ok {
		response.Error = methodNotFound(request.Method)
		return response
	}
	result, rpcErr := d.Dispatch(ctx, method, request.Params, user)
	if rpcErr != nil {
		response.Error = rpcErr
		return response
	}
	response.Result = result
	return response
}

// Dispatch executes one action as the given user. The switch is exhaustive
// over the method registry; adding a constant without a case here is a bug
// the registry test catches.
func (d *Dispatcher) Dispatch(ctx context.Context, method Method, params map[string]any, user User) (any, *Error) {
	if params == nil {
		params = map[string]any{}
	}
	if rpcErr := d.checkAccess(ctx, method, params, user); rpcErr != nil {
		return nil, rpcErr
	}

	switch method {
	case MethodSpaceList:
		spaces, err := d.services.ListSpaces(ctx, user.WorkspaceID, intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"spaces": renderSpaces(spaces)}, nil

	case MethodSpaceCreate:
		name := strParam(params, "name")
		if name == "" {
			return nil, invalidParams("name is required")
		}
		space, err := d.services.CreateSpace(ctx, store.CreateSpaceInput{
			WorkspaceID: user.WorkspaceID,
			Name:        name,
			Slug:        strParam(params, "slug"),
			Description: strParam(params, "description"),
		})
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"space": renderSpace(space)}, nil

	case MethodSpaceUpdate:
		spaceID := strParam(params, "spaceId")
		if spaceID == "" {
			return nil, invalidParams("spaceId is required")
		}
		space, err := d.services.UpdateSpace(ctx, store.UpdateSpaceInput{
			ID:          spaceID,
			WorkspaceID: user.WorkspaceID,
			Name:        strParam(params, "name"),
			Description: optStrPtr(params, "description"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"space": renderSpace(space)}, nil

	case MethodSpaceDelete:
		spaceID := strParam(params, "spaceId")
		if spaceID == "" {
			return nil, invalidParams("spaceId is required")
		}
		if err := d.services.DeleteSpace(ctx, spaceID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "spaceId": spaceID}, nil

	case MethodPageList:
		pages, err := d.services.ListPages(ctx, user.WorkspaceID, strParam(params, "spaceId"), intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"pages": renderPages(pages)}, nil

	case MethodPageCreate:
		spaceID := strParam(params, "spaceId")
		title := strParam(params, "title")
		if spaceID == "" || title == "" {
			return nil, invalidParams("spaceId and title are required")
		}
		page, err := d.services.CreatePage(ctx, store.CreatePageInput{
			WorkspaceID: user.WorkspaceID,
			SpaceID:     spaceID,
			ParentID:    strParam(params, "parentId"),
			Title:       title,
			Content:     mapParam(params, "content"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"page": renderPage(page)}, nil

	case MethodPageUpdate:
		pageID := strParam(params, "pageId")
		if pageID == "" {
			return nil, invalidParams("pageId is required")
		}
		page, err := d.services.UpdatePage(ctx, store.UpdatePageInput{
			ID:          pageID,
			WorkspaceID: user.WorkspaceID,
			Title:       strParam(params, "title"),
			Content:     mapParam(params, "content"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"page": renderPage(page)}, nil

	case MethodPageDelete:
		pageID := strParam(params, "pageId")
		if pageID == "" {
			return nil, invalidParams("pageId is required")
		}
		if err := d.services.DeletePage(ctx, pageID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "pageId": pageID}, nil

	case MethodPageMove:
		pageID := strParam(params, "pageId")
		if pageID == "" {
			return nil, invalidParams("pageId is required")
		}
		page, err := d.services.MovePage(ctx, store.MovePageInput{
			ID:            pageID,
			WorkspaceID:   user.WorkspaceID,
			TargetSpaceID: strParam(params, "targetSpaceId"),
			ParentID:      triStateStrPtr(params, "parentId"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"page": renderPage(page)}, nil

	case MethodUserList:
		users, err := d.services.ListUsers(ctx, user.WorkspaceID, strParam(params, "query"), intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"users": renderUsers(users)}, nil

	case MethodUserGet:
		userID := strParam(params, "userId")
		if userID == "" {
			return nil, invalidParams("userId is required")
		}
		record, err := d.services.GetUser(ctx, userID, user.WorkspaceID)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"user": renderUser(record)}, nil

	case MethodUserUpdate:
		userID := strParam(params, "userId")
		if userID == "" {
			return nil, invalidParams("userId is required")
		}
		record, err := d.services.UpdateUser(ctx, store.UpdateUserInput{
			ID:          userID,
			WorkspaceID: user.WorkspaceID,
			Name:        strParam(params, "name"),
			Role:        strParam(params, "role"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"user": renderUser(record)}, nil

	case MethodCommentCreate:
		pageID := strParam(params, "pageId")
		content := mapParam(params, "content")
		if pageID == "" || content == nil {
			return nil, invalidParams("pageId and content are required")
		}
		comment, err := d.services.CreateComment(ctx, store.CreateCommentInput{
			WorkspaceID:     user.WorkspaceID,
			PageID:          pageID,
			ParentCommentID: strParam(params, "parentCommentId"),
			AuthorUserID:    user.ID,
			Content:         content,
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"comment": renderComment(comment)}, nil

	case MethodCommentList:
		pageID := strParam(params, "pageId")
		if pageID == "" {
			return nil, invalidParams("pageId is required")
		}
		comments, err := d.services.ListComments(ctx, user.WorkspaceID, pageID, intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"comments": renderComments(comments)}, nil

	case MethodCommentUpdate:
		commentID := strParam(params, "commentId")
		content := mapParam(params, "content")
		if commentID == "" || content == nil {
			return nil, invalidParams("commentId and content are required")
		}
		comment, err := d.services.UpdateComment(ctx, store.UpdateCommentInput{
			ID:          commentID,
			WorkspaceID: user.WorkspaceID,
			Content:     content,
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"comment": renderComment(comment)}, nil

	case MethodCommentDelete:
		commentID := strParam(params, "commentId")
		if commentID == "" {
			return nil, invalidParams("commentId is required")
		}
		if err := d.services.DeleteComment(ctx, commentID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "commentId": commentID}, nil

	case MethodGroupCreate:
		name := strParam(params, "name")
		if name == "" {
			return nil, invalidParams("name is required")
		}
		group, err := d.services.CreateGroup(ctx, store.CreateGroupInput{
			WorkspaceID: user.WorkspaceID,
			Name:        name,
			Description: strParam(params, "description"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"group": renderGroup(group)}, nil

	case MethodGroupGet:
		groupID := strParam(params, "groupId")
		if groupID == "" {
			return nil, invalidParams("groupId is required")
		}
		group, err := d.services.GetGroup(ctx, groupID, user.WorkspaceID)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"group": renderGroup(group)}, nil

	case MethodGroupList:
		groups, err := d.services.ListGroups(ctx, user.WorkspaceID, intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"groups": renderGroups(groups)}, nil

	case MethodGroupUpdate:
		groupID := strParam(params, "groupId")
		if groupID == "" {
			return nil, invalidParams("groupId is required")
		}
		group, err := d.services.UpdateGroup(ctx, store.UpdateGroupInput{
			ID:          groupID,
			WorkspaceID: user.WorkspaceID,
			Name:        strParam(params, "name"),
			Description: optStrPtr(params, "description"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"group": renderGroup(group)}, nil

	case MethodGroupDelete:
		groupID := strParam(params, "groupId")
		if groupID == "" {
			return nil, invalidParams("groupId is required")
		}
		if err := d.services.DeleteGroup(ctx, groupID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "groupId": groupID}, nil

	case MethodGroupAddMember:
		groupID := strParam(params, "groupId")
		if groupID == "" {
			return nil, invalidParams("groupId is required")
		}
		userIDs := strsParam(params, "userIds")
		if single := strParam(params, "userId"); single != "" {
			userIDs = append(userIDs, single)
		}
		if len(userIDs) == 0 {
			return nil, invalidParams("userId or userIds is required")
		}
		group, err := d.services.AddGroupMembers(ctx, groupID, user.WorkspaceID, userIDs)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"group": renderGroup(group)}, nil

	case MethodGroupRemoveMember:
		groupID := strParam(params, "groupId")
		userID := strParam(params, "userId")
		if groupID == "" || userID == "" {
			return nil, invalidParams("groupId and userId are required")
		}
		group, err := d.services.RemoveGroupMember(ctx, groupID, user.WorkspaceID, userID)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"group": renderGroup(group)}, nil

	case MethodWorkspaceGet:
		workspace, err := d.services.GetWorkspace(ctx, user.WorkspaceID)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"workspace": renderWorkspace(workspace)}, nil

	case MethodWorkspaceList:
		workspaces, err := d.services.ListWorkspaces(ctx, intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"workspaces": renderWorkspaces(workspaces)}, nil

	case MethodWorkspaceUpdate:
		workspace, err := d.services.UpdateWorkspace(ctx, store.UpdateWorkspaceInput{
			ID:   user.WorkspaceID,
			Name: strParam(params, "name"),
			Slug: strParam(params, "slug"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"workspace": renderWorkspace(workspace)}, nil

	case MethodWorkspaceDelete:
		if err := d.services.DeleteWorkspace(ctx, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "workspaceId": user.WorkspaceID}, nil

	case MethodWorkspaceAddMember:
		email := strParam(params, "email")
		if email == "" {
			return nil, invalidParams("email is required")
		}
		member, err := d.services.AddWorkspaceMember(ctx, store.AddWorkspaceMemberInput{
			WorkspaceID: user.WorkspaceID,
			Email:       email,
			Name:        strParam(params, "name"),
			Role:        strParam(params, "role"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"user": renderUser(member)}, nil

	case MethodWorkspaceRemoveMember:
		userID := strParam(params, "userId")
		if userID == "" {
			return nil, invalidParams("userId is required")
		}
		if err := d.services.RemoveWorkspaceMember(ctx, user.WorkspaceID, userID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"removed": true, "userId": userID}, nil

	case MethodTaskList:
		tasks, err := d.services.ListTasks(ctx, store.ListTasksInput{
			WorkspaceID: user.WorkspaceID,
			SpaceID:     strParam(params, "spaceId"),
			ProjectID:   strParam(params, "projectId"),
			Status:      strParam(params, "status"),
			Limit:       intParam(params, "limit"),
		})
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"tasks": renderTasks(tasks)}, nil

	case MethodTaskCreate:
		spaceID := strParam(params, "spaceId")
		title := strParam(params, "title")
		if spaceID == "" || title == "" {
			return nil, invalidParams("spaceId and title are required")
		}
		dueAt, ok := parseTimeParam(strParam(params, "dueAt"))
		if !ok {
			return nil, invalidParams("dueAt must be RFC 3339")
		}
		task, err := d.services.CreateTask(ctx, store.CreateTaskInput{
			WorkspaceID: user.WorkspaceID,
			SpaceID:     spaceID,
			ProjectID:   strParam(params, "projectId"),
			Title:       title,
			Description: strParam(params, "description"),
			Status:      strParam(params, "status"),
			DueAt:       dueAt,
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"task": renderTask(task)}, nil

	case MethodTaskUpdate:
		taskID := strParam(params, "taskId")
		if taskID == "" {
			return nil, invalidParams("taskId is required")
		}
		input := store.UpdateTaskInput{
			ID:          taskID,
			WorkspaceID: user.WorkspaceID,
			Title:       strParam(params, "title"),
			Description: optStrPtr(params, "description"),
			Status:      strParam(params, "status"),
			ProjectID:   optStrPtr(params, "projectId"),
		}
		if raw := strParam(params, "dueAt"); raw != "" {
			dueAt, ok := parseTimeParam(raw)
			if !ok {
				return nil, invalidParams("dueAt must be RFC 3339")
			}
			input.DueAt = &dueAt
		}
		task, err := d.services.UpdateTask(ctx, input)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"task": renderTask(task)}, nil

	case MethodTaskDelete:
		taskID := strParam(params, "taskId")
		if taskID == "" {
			return nil, invalidParams("taskId is required")
		}
		if err := d.services.DeleteTask(ctx, taskID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "taskId": taskID}, nil

	case MethodProjectList:
		projects, err := d.services.ListProjects(ctx, user.WorkspaceID, strParam(params, "spaceId"), intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"projects": renderProjects(projects)}, nil

	case MethodProjectCreate:
		spaceID := strParam(params, "spaceId")
		name := strParam(params, "name")
		if spaceID == "" || name == "" {
			return nil, invalidParams("spaceId and name are required")
		}
		project, err := d.services.CreateProject(ctx, store.CreateProjectInput{
			WorkspaceID: user.WorkspaceID,
			SpaceID:     spaceID,
			Name:        name,
			Description: strParam(params, "description"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"project": renderProject(project)}, nil

	case MethodProjectDelete:
		projectID := strParam(params, "projectId")
		if projectID == "" {
			return nil, invalidParams("projectId is required")
		}
		if err := d.services.DeleteProject(ctx, projectID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "projectId": projectID}, nil

	case MethodGoalCreate:
		name := strParam(params, "name")
		if name == "" {
			return nil, invalidParams("name is required")
		}
		goal, err := d.services.CreateGoal(ctx, store.CreateGoalInput{
			WorkspaceID: user.WorkspaceID,
			SpaceID:     strParam(params, "spaceId"),
			Name:        name,
			Horizon:     strParam(params, "horizon"),
			Keywords:    strsParam(params, "keywords"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"goal": renderGoal(goal)}, nil

	case MethodGoalUpdate:
		goalID := strParam(params, "goalId")
		if goalID == "" {
			return nil, invalidParams("goalId is required")
		}
		goal, err := d.services.UpdateGoal(ctx, store.UpdateGoalInput{
			ID:          goalID,
			WorkspaceID: user.WorkspaceID,
			Name:        strParam(params, "name"),
			Horizon:     strParam(params, "horizon"),
			Keywords:    strsParam(params, "keywords"),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"goal": renderGoal(goal)}, nil

	case MethodAttachmentList:
		attachments, err := d.services.ListAttachments(ctx, user.WorkspaceID, strParam(params, "pageId"), intParam(params, "limit"))
		if err != nil {
			return nil, upstreamFailure(err)
		}
		return map[string]any{"attachments": renderAttachments(attachments)}, nil

	case MethodAttachmentGet:
		attachmentID := strParam(params, "attachmentId")
		if attachmentID == "" {
			return nil, invalidParams("attachmentId is required")
		}
		attachment, err := d.services.GetAttachment(ctx, attachmentID, user.WorkspaceID)
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"attachment": renderAttachment(attachment)}, nil

	case MethodAttachmentUpload:
		pageID := strParam(params, "pageId")
		fileName := strParam(params, "fileName")
		if pageID == "" || fileName == "" {
			return nil, invalidParams("pageId and fileName are required")
		}
		attachment, err := d.services.CreateAttachment(ctx, store.CreateAttachmentInput{
			WorkspaceID: user.WorkspaceID,
			PageID:      pageID,
			FileName:    fileName,
			MimeType:    strParam(params, "mimeType"),
			SizeBytes:   int64(intParam(params, "sizeBytes")),
		})
		if err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"attachment": renderAttachment(attachment)}, nil

	case MethodAttachmentDelete:
		attachmentID := strParam(params, "attachmentId")
		if attachmentID == "" {
			return nil, invalidParams("attachmentId is required")
		}
		if err := d.services.DeleteAttachment(ctx, attachmentID, user.WorkspaceID); err != nil {
			return nil, serviceFailure(err)
		}
		return map[string]any{"deleted": true, "attachmentId": attachmentID}, nil

	case MethodUINavigate:
		target := strParam(params, "target")
		if target == "" {
			return nil, invalidParams("target is required")
		}
		return map[string]any{"navigated": true, "target": target}, nil
	}

	return nil, methodNotFound(method.String())
}

// checkAccess re-verifies membership for the workspace the user acts in, and
// for the space when the action names one.
func (d *Dispatcher) checkAccess(ctx context.Context, method Method, params map[string]any, user User) *Error {
	spaceID := strParam(params, "spaceId")
	if method == MethodPageMove {
		spaceID = strParam(params, "targetSpaceId")
	}
	var err error
	if spaceID != "" {
		err = d.access.CheckSpaceAccess(ctx, user.ID, user.WorkspaceID, spaceID)
	} else {
		err = d.access.CheckWorkspaceAccess(ctx, user.ID, user.WorkspaceID)
	}
	if err != nil {
		if errors.Is(err, store.ErrAccessDenied) {
			d.logger.Warn("access denied", "method", method.String(), "user", user.ID)
			return forbidden("access denied")
		}
		return upstreamFailure(err)
	}
	return nil
}

func serviceFailure(err error) *Error {
	switch {
	case errors.Is(err, store.ErrAccessDenied):
		return forbidden("access denied")
	case errors.Is(err, store.ErrWorkspaceNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrSpaceNotFound),
		errors.Is(err, store.ErrPageNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrGoalNotFound),
		errors.Is(err, store.ErrCommentNotFound),
		errors.Is(err, store.ErrGroupNotFound),
		errors.Is(err, store.ErrAttachmentNotFound):
		return invalidParams(err.Error())
	default:
		return upstreamFailure(err)
	}
}
