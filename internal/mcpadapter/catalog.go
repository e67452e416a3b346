package mcpadapter

import (
	"github.com/ravendocs/raven-agent/internal/dispatch"
)

// CatalogVersion identifies the tool vocabulary exposed to MCP clients.
// Bump it whenever a tool is added, removed or reshaped.
const CatalogVersion = "2025-06-01"

// ToolSpec binds an external tool name to an internal method together with
// the JSON-Schema input shape advertised to clients.
type ToolSpec struct {
	Name        string
	Description string
	Method      dispatch.Method
	InputSchema map[string]any
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func num(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func obj(description string) map[string]any {
	return map[string]any{"type": "object", "description": description}
}

// Catalog is the full static tool surface. Order is presentation order in
// tools/list responses.
func Catalog() []ToolSpec {
	return []ToolSpec{
		{
			Name: "space_list", Method: dispatch.MethodSpaceList,
			Description: "List the spaces in the current workspace.",
			InputSchema: objectSchema(nil, map[string]any{"limit": num("Maximum number of spaces to return")}),
		},
		{
			Name: "space_create", Method: dispatch.MethodSpaceCreate,
			Description: "Create a new space.",
			InputSchema: objectSchema([]string{"name"}, map[string]any{
				"name":        str("Space name"),
				"slug":        str("URL slug; derived from the name when omitted"),
				"description": str("Space description"),
			}),
		},
		{
			Name: "space_update", Method: dispatch.MethodSpaceUpdate,
			Description: "Update a space's name or description.",
			InputSchema: objectSchema([]string{"spaceId"}, map[string]any{
				"spaceId":     str("Space id"),
				"name":        str("New name"),
				"description": str("New description"),
			}),
		},
		{
			Name: "space_delete", Method: dispatch.MethodSpaceDelete,
			Description: "Delete a space and everything in it.",
			InputSchema: objectSchema([]string{"spaceId"}, map[string]any{"spaceId": str("Space id")}),
		},
		{
			Name: "page_list", Method: dispatch.MethodPageList,
			Description: "List pages, optionally scoped to one space.",
			InputSchema: objectSchema(nil, map[string]any{
				"spaceId": str("Space id filter"),
				"limit":   num("Maximum number of pages to return"),
			}),
		},
		{
			Name: "page_create", Method: dispatch.MethodPageCreate,
			Description: "Create a page in a space.",
			InputSchema: objectSchema([]string{"spaceId", "title"}, map[string]any{
				"spaceId":  str("Space id"),
				"title":    str("Page title"),
				"parentId": str("Parent page id for nesting"),
				"content":  obj("Page content document"),
			}),
		},
		{
			Name: "page_update", Method: dispatch.MethodPageUpdate,
			Description: "Update a page's title or content.",
			InputSchema: objectSchema([]string{"pageId"}, map[string]any{
				"pageId":  str("Page id"),
				"title":   str("New title"),
				"content": obj("Replacement content document"),
			}),
		},
		{
			Name: "page_delete", Method: dispatch.MethodPageDelete,
			Description: "Delete a page.",
			InputSchema: objectSchema([]string{"pageId"}, map[string]any{"pageId": str("Page id")}),
		},
		{
			Name: "page_move", Method: dispatch.MethodPageMove,
			Description: "Move a page to another space or parent. Pass parentId null to move it to the space root.",
			InputSchema: objectSchema([]string{"pageId"}, map[string]any{
				"pageId":   str("Page id"),
				"spaceId":  str("Destination space id"),
				"parentId": str("Destination parent page id, or null for the space root"),
			}),
		},
		{
			Name: "user_list", Method: dispatch.MethodUserList,
			Description: "List workspace members.",
			InputSchema: objectSchema(nil, map[string]any{
				"query": str("Name or email filter"),
				"limit": num("Maximum number of users to return"),
			}),
		},
		{
			Name: "user_get", Method: dispatch.MethodUserGet,
			Description: "Fetch one workspace member.",
			InputSchema: objectSchema([]string{"userId"}, map[string]any{"userId": str("User id")}),
		},
		{
			Name: "user_update", Method: dispatch.MethodUserUpdate,
			Description: "Update a member's name or role.",
			InputSchema: objectSchema([]string{"userId"}, map[string]any{
				"userId": str("User id"),
				"name":   str("New display name"),
				"role":   str("New role"),
			}),
		},
		{
			Name: "comment_create", Method: dispatch.MethodCommentCreate,
			Description: "Comment on a page. Pass parentId to reply to another comment.",
			InputSchema: objectSchema([]string{"pageId", "text"}, map[string]any{
				"pageId":   str("Page id"),
				"text":     str("Comment text"),
				"parentId": str("Parent comment id when replying"),
			}),
		},
		{
			Name: "comment_list", Method: dispatch.MethodCommentList,
			Description: "List the comments on a page.",
			InputSchema: objectSchema([]string{"pageId"}, map[string]any{
				"pageId": str("Page id"),
				"limit":  num("Maximum number of comments to return"),
			}),
		},
		{
			Name: "comment_update", Method: dispatch.MethodCommentUpdate,
			Description: "Edit a comment.",
			InputSchema: objectSchema([]string{"commentId", "content"}, map[string]any{
				"commentId": str("Comment id"),
				"content":   obj("Replacement comment content"),
			}),
		},
		{
			Name: "comment_delete", Method: dispatch.MethodCommentDelete,
			Description: "Delete a comment.",
			InputSchema: objectSchema([]string{"commentId"}, map[string]any{"commentId": str("Comment id")}),
		},
		{
			Name: "group_create", Method: dispatch.MethodGroupCreate,
			Description: "Create a member group.",
			InputSchema: objectSchema([]string{"name"}, map[string]any{
				"name":        str("Group name"),
				"description": str("Group description"),
			}),
		},
		{
			Name: "group_get", Method: dispatch.MethodGroupGet,
			Description: "Fetch one group with its members.",
			InputSchema: objectSchema([]string{"groupId"}, map[string]any{"groupId": str("Group id")}),
		},
		{
			Name: "group_list", Method: dispatch.MethodGroupList,
			Description: "List workspace groups.",
			InputSchema: objectSchema(nil, map[string]any{"limit": num("Maximum number of groups to return")}),
		},
		{
			Name: "group_update", Method: dispatch.MethodGroupUpdate,
			Description: "Update a group's name or description.",
			InputSchema: objectSchema([]string{"groupId"}, map[string]any{
				"groupId":     str("Group id"),
				"name":        str("New name"),
				"description": str("New description"),
			}),
		},
		{
			Name: "group_delete", Method: dispatch.MethodGroupDelete,
			Description: "Delete a group.",
			InputSchema: objectSchema([]string{"groupId"}, map[string]any{"groupId": str("Group id")}),
		},
		{
			Name: "group_addMember", Method: dispatch.MethodGroupAddMember,
			Description: "Add a user to a group.",
			InputSchema: objectSchema([]string{"groupId", "userId"}, map[string]any{
				"groupId": str("Group id"),
				"userId":  str("User id to add"),
			}),
		},
		{
			Name: "group_removeMember", Method: dispatch.MethodGroupRemoveMember,
			Description: "Remove a user from a group.",
			InputSchema: objectSchema([]string{"groupId", "userId"}, map[string]any{
				"groupId": str("Group id"),
				"userId":  str("User id to remove"),
			}),
		},
		{
			Name: "workspace_get", Method: dispatch.MethodWorkspaceGet,
			Description: "Fetch the current workspace.",
			InputSchema: objectSchema(nil, map[string]any{}),
		},
		{
			Name: "workspace_list", Method: dispatch.MethodWorkspaceList,
			Description: "List workspaces visible to this deployment.",
			InputSchema: objectSchema(nil, map[string]any{"limit": num("Maximum number of workspaces to return")}),
		},
		{
			Name: "workspace_update", Method: dispatch.MethodWorkspaceUpdate,
			Description: "Update the workspace name or slug.",
			InputSchema: objectSchema(nil, map[string]any{
				"name": str("New name"),
				"slug": str("New slug"),
			}),
		},
		{
			Name: "workspace_delete", Method: dispatch.MethodWorkspaceDelete,
			Description: "Delete the current workspace.",
			InputSchema: objectSchema(nil, map[string]any{}),
		},
		{
			Name: "workspace_addMember", Method: dispatch.MethodWorkspaceAddMember,
			Description: "Invite a member into the workspace.",
			InputSchema: objectSchema([]string{"email"}, map[string]any{
				"email": str("Member email"),
				"name":  str("Display name"),
				"role":  str("Role, defaults to member"),
			}),
		},
		{
			Name: "workspace_removeMember", Method: dispatch.MethodWorkspaceRemoveMember,
			Description: "Remove a member from the workspace.",
			InputSchema: objectSchema([]string{"userId"}, map[string]any{"userId": str("User id to remove")}),
		},
		{
			Name: "task_list", Method: dispatch.MethodTaskList,
			Description: "List tasks with optional space, project and status filters.",
			InputSchema: objectSchema(nil, map[string]any{
				"spaceId":   str("Space id filter"),
				"projectId": str("Project id filter"),
				"status":    str("Status filter"),
				"limit":     num("Maximum number of tasks to return"),
			}),
		},
		{
			Name: "task_create", Method: dispatch.MethodTaskCreate,
			Description: "Create a task in a space.",
			InputSchema: objectSchema([]string{"spaceId", "title"}, map[string]any{
				"spaceId":     str("Space id"),
				"title":       str("Task title"),
				"description": str("Task description"),
				"status":      str("Initial status, defaults to inbox"),
				"projectId":   str("Project to attach the task to"),
				"dueAt":       str("Due timestamp, RFC 3339"),
			}),
		},
		{
			Name: "task_update", Method: dispatch.MethodTaskUpdate,
			Description: "Update a task.",
			InputSchema: objectSchema([]string{"taskId"}, map[string]any{
				"taskId":      str("Task id"),
				"title":       str("New title"),
				"description": str("New description"),
				"status":      str("New status"),
				"projectId":   str("New project id"),
				"dueAt":       str("New due timestamp, RFC 3339"),
			}),
		},
		{
			Name: "task_delete", Method: dispatch.MethodTaskDelete,
			Description: "Delete a task.",
			InputSchema: objectSchema([]string{"taskId"}, map[string]any{"taskId": str("Task id")}),
		},
		{
			Name: "project_list", Method: dispatch.MethodProjectList,
			Description: "List projects, optionally scoped to one space.",
			InputSchema: objectSchema(nil, map[string]any{
				"spaceId": str("Space id filter"),
				"limit":   num("Maximum number of projects to return"),
			}),
		},
		{
			Name: "project_create", Method: dispatch.MethodProjectCreate,
			Description: "Create a project in a space.",
			InputSchema: objectSchema([]string{"spaceId", "name"}, map[string]any{
				"spaceId":     str("Space id"),
				"name":        str("Project name"),
				"description": str("Project description"),
			}),
		},
		{
			Name: "project_delete", Method: dispatch.MethodProjectDelete,
			Description: "Delete a project.",
			InputSchema: objectSchema([]string{"projectId"}, map[string]any{"projectId": str("Project id")}),
		},
		{
			Name: "goal_create", Method: dispatch.MethodGoalCreate,
			Description: "Create a workspace goal.",
			InputSchema: objectSchema([]string{"name"}, map[string]any{
				"name":     str("Goal name"),
				"spaceId":  str("Space to scope the goal to"),
				"horizon":  str("Planning horizon, e.g. quarter"),
				"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Keywords for auto-linking"},
			}),
		},
		{
			Name: "goal_update", Method: dispatch.MethodGoalUpdate,
			Description: "Update a workspace goal.",
			InputSchema: objectSchema([]string{"goalId"}, map[string]any{
				"goalId":   str("Goal id"),
				"name":     str("New name"),
				"horizon":  str("New horizon"),
				"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Replacement keywords"},
			}),
		},
		{
			Name: "attachment_list", Method: dispatch.MethodAttachmentList,
			Description: "List attachments, optionally scoped to one page.",
			InputSchema: objectSchema(nil, map[string]any{
				"pageId": str("Page id filter"),
				"limit":  num("Maximum number of attachments to return"),
			}),
		},
		{
			Name: "attachment_get", Method: dispatch.MethodAttachmentGet,
			Description: "Fetch attachment metadata.",
			InputSchema: objectSchema([]string{"attachmentId"}, map[string]any{"attachmentId": str("Attachment id")}),
		},
		{
			Name: "attachment_upload", Method: dispatch.MethodAttachmentUpload,
			Description: "Register an attachment on a page.",
			InputSchema: objectSchema([]string{"pageId", "fileName"}, map[string]any{
				"pageId":    str("Page id"),
				"fileName":  str("File name"),
				"mimeType":  str("MIME type"),
				"sizeBytes": num("File size in bytes"),
			}),
		},
		{
			Name: "attachment_delete", Method: dispatch.MethodAttachmentDelete,
			Description: "Delete an attachment.",
			InputSchema: objectSchema([]string{"attachmentId"}, map[string]any{"attachmentId": str("Attachment id")}),
		},
		{
			Name: "ui_navigate", Method: dispatch.MethodUINavigate,
			Description: "Ask the client UI to navigate to a location.",
			InputSchema: objectSchema([]string{"target"}, map[string]any{"target": str("Navigation target path")}),
		},
	}
}

var catalogIndex = buildCatalogIndex()

func buildCatalogIndex() map[string]ToolSpec {
	index := map[string]ToolSpec{}
	for _, spec := range Catalog() {
		index[spec.Name] = spec
	}
	return index
}

// LookupTool resolves an external tool name.
func LookupTool(name string) (ToolSpec, bool) {
	spec, ok := catalogIndex[name]
	return spec, ok
}
