package dispatch

import (
	"time"

	"github.com/ravendocs/raven-agent/internal/store"
)

// Render helpers shape store records into the wire vocabulary external
// clients see. Keys are camelCase and timestamps RFC 3339.

func renderTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func renderWorkspace(workspace store.Workspace) map[string]any {
	return map[string]any{
		"id":        workspace.ID,
		"slug":      workspace.Slug,
		"name":      workspace.Name,
		"ownerId":   workspace.OwnerUserID,
		"createdAt": renderTime(workspace.CreatedAt),
	}
}

func renderWorkspaces(workspaces []store.Workspace) []map[string]any {
	out := make([]map[string]any, 0, len(workspaces))
	for _, workspace := range workspaces {
		out = append(out, renderWorkspace(workspace))
	}
	return out
}

func renderUser(user store.User) map[string]any {
	return map[string]any{
		"id":          user.ID,
		"workspaceId": user.WorkspaceID,
		"email":       user.Email,
		"name":        user.Name,
		"role":        user.Role,
		"createdAt":   renderTime(user.CreatedAt),
	}
}

func renderUsers(users []store.User) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for _, user := range users {
		out = append(out, renderUser(user))
	}
	return out
}

func renderSpace(space store.Space) map[string]any {
	return map[string]any{
		"id":          space.ID,
		"workspaceId": space.WorkspaceID,
		"slug":        space.Slug,
		"name":        space.Name,
		"description": space.Description,
		"createdAt":   renderTime(space.CreatedAt),
	}
}

func renderSpaces(spaces []store.Space) []map[string]any {
	out := make([]map[string]any, 0, len(spaces))
	for _, space := range spaces {
		out = append(out, renderSpace(space))
	}
	return out
}

func renderPage(page store.Page) map[string]any {
	rendered := map[string]any{
		"id":        page.ID,
		"spaceId":   page.SpaceID,
		"title":     page.Title,
		"content":   page.Content,
		"createdAt": renderTime(page.CreatedAt),
		"updatedAt": renderTime(page.UpdatedAt),
	}
	if page.ParentID != "" {
		rendered["parentId"] = page.ParentID
	} else {
		rendered["parentId"] = nil
	}
	return rendered
}

func renderPages(pages []store.Page) []map[string]any {
	out := make([]map[string]any, 0, len(pages))
	for _, page := range pages {
		out = append(out, renderPage(page))
	}
	return out
}

func renderTask(task store.Task) map[string]any {
	return map[string]any{
		"id":          task.ID,
		"spaceId":     task.SpaceID,
		"projectId":   task.ProjectID,
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"dueAt":       renderTime(task.DueAt),
		"createdAt":   renderTime(task.CreatedAt),
		"updatedAt":   renderTime(task.UpdatedAt),
	}
}

func renderTasks(tasks []store.Task) []map[string]any {
	out := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, renderTask(task))
	}
	return out
}

func renderProject(project store.Project) map[string]any {
	return map[string]any{
		"id":          project.ID,
		"spaceId":     project.SpaceID,
		"name":        project.Name,
		"description": project.Description,
		"createdAt":   renderTime(project.CreatedAt),
	}
}

func renderProjects(projects []store.Project) []map[string]any {
	out := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		out = append(out, renderProject(project))
	}
	return out
}

func renderGoal(goal store.Goal) map[string]any {
	return map[string]any{
		"id":        goal.ID,
		"spaceId":   goal.SpaceID,
		"name":      goal.Name,
		"horizon":   goal.Horizon,
		"keywords":  goal.Keywords,
		"createdAt": renderTime(goal.CreatedAt),
	}
}

func renderComment(comment store.Comment) map[string]any {
	rendered := map[string]any{
		"id":        comment.ID,
		"pageId":    comment.PageID,
		"authorId":  comment.AuthorUserID,
		"content":   comment.Content,
		"createdAt": renderTime(comment.CreatedAt),
	}
	if comment.ParentCommentID != "" {
		rendered["parentCommentId"] = comment.ParentCommentID
	} else {
		rendered["parentCommentId"] = nil
	}
	return rendered
}

func renderComments(comments []store.Comment) []map[string]any {
	out := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		out = append(out, renderComment(comment))
	}
	return out
}

func renderGroup(group store.Group) map[string]any {
	return map[string]any{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"memberIds":   group.MemberIDs,
		"createdAt":   renderTime(group.CreatedAt),
	}
}

func renderGroups(groups []store.Group) []map[string]any {
	out := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		out = append(out, renderGroup(group))
	}
	return out
}

func renderAttachment(attachment store.Attachment) map[string]any {
	return map[string]any{
		"id":        attachment.ID,
		"pageId":    attachment.PageID,
		"fileName":  attachment.FileName,
		"mimeType":  attachment.MimeType,
		"sizeBytes": attachment.SizeBytes,
		"createdAt": renderTime(attachment.CreatedAt),
	}
}

func renderAttachments(attachments []store.Attachment) []map[string]any {
	out := make([]map[string]any, 0, len(attachments))
	for _, attachment := range attachments {
		out = append(out, renderAttachment(attachment))
	}
	return out
}
