package dispatch

// Method is an internal dotted action name. The set of methods is closed:
// every string coming from an external tool or a model plan must parse to one
// of these constants before it reaches any business logic.
type Method string

const (
	MethodSpaceList   Method = "space.list"
	MethodSpaceCreate Method = "space.create"
	MethodSpaceUpdate Method = "space.update"
	MethodSpaceDelete Method = "space.delete"

	MethodPageList   Method = "page.list"
	MethodPageCreate Method = "page.create"
	MethodPageUpdate Method = "page.update"
	MethodPageDelete Method = "page.delete"
	MethodPageMove   Method = "page.move"

	MethodUserList   Method = "user.list"
	MethodUserGet    Method = "user.get"
	MethodUserUpdate Method = "user.update"

	MethodCommentCreate Method = "comment.create"
	MethodCommentList   Method = "comment.list"
	MethodCommentUpdate Method = "comment.update"
	MethodCommentDelete Method = "comment.delete"

	MethodGroupCreate       Method = "group.create"
	MethodGroupGet          Method = "group.get"
	MethodGroupList         Method = "group.list"
	MethodGroupUpdate       Method = "group.update"
	MethodGroupDelete       Method = "group.delete"
	MethodGroupAddMember    Method = "group.addMember"
	MethodGroupRemoveMember Method = "group.removeMember"

	MethodWorkspaceGet          Method = "workspace.get"
	MethodWorkspaceList         Method = "workspace.list"
	MethodWorkspaceUpdate       Method = "workspace.update"
	MethodWorkspaceDelete       Method = "workspace.delete"
	MethodWorkspaceAddMember    Method = "workspace.addMember"
	MethodWorkspaceRemoveMember Method = "workspace.removeMember"

	MethodTaskList   Method = "task.list"
	MethodTaskCreate Method = "task.create"
	MethodTaskUpdate Method = "task.update"
	MethodTaskDelete Method = "task.delete"

	MethodProjectList   Method = "project.list"
	MethodProjectCreate Method = "project.create"
	MethodProjectDelete Method = "project.delete"

	MethodGoalCreate Method = "goal.create"
	MethodGoalUpdate Method = "goal.update"

	MethodAttachmentList   Method = "attachment.list"
	MethodAttachmentGet    Method = "attachment.get"
	MethodAttachmentUpload Method = "attachment.upload"
	MethodAttachmentDelete Method = "attachment.delete"

	MethodUINavigate Method = "ui.navigate"
)

var allMethods = []Method{
	MethodSpaceList, MethodSpaceCreate, MethodSpaceUpdate, MethodSpaceDelete,
	MethodPageList, MethodPageCreate, MethodPageUpdate, MethodPageDelete, MethodPageMove,
	MethodUserList, MethodUserGet, MethodUserUpdate,
	MethodCommentCreate, MethodCommentList, MethodCommentUpdate, MethodCommentDelete,
	MethodGroupCreate, MethodGroupGet, MethodGroupList, MethodGroupUpdate, MethodGroupDelete,
	MethodGroupAddMember, MethodGroupRemoveMember,
	MethodWorkspaceGet, MethodWorkspaceList, MethodWorkspaceUpdate, MethodWorkspaceDelete,
	MethodWorkspaceAddMember, MethodWorkspaceRemoveMember,
	MethodTaskList, MethodTaskCreate, MethodTaskUpdate, MethodTaskDelete,
	MethodProjectList, MethodProjectCreate, MethodProjectDelete,
	MethodGoalCreate, MethodGoalUpdate,
	MethodAttachmentList, MethodAttachmentGet, MethodAttachmentUpload, MethodAttachmentDelete,
	MethodUINavigate,
}

var methodIndex = buildMethodIndex()

func buildMethodIndex() map[string]Method {
	index := make(map[string]Method, len(allMethods))
	for _, method := range allMethods {
		index[string(method)] = method
	}
	return index
}

// ParseMethod resolves a raw method string against the closed vocabulary.
func ParseMethod(raw string) (Method, bool) {
	method, ok := methodIndex[raw]
	return method, ok
}

// Methods returns the full closed vocabulary in declaration order.
func Methods() []Method {
	out := make([]Method, len(allMethods))
	copy(out, allMethods)
	return out
}

func (m Method) String() string {
	return string(m)
}
