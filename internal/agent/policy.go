package agent

import (
	"github.com/ravendocs/raven-agent/internal/dispatch"
)

// Decision is the policy verdict for a single proposed action.
type Decision string

const (
	DecisionAutoApply     Decision = "AUTO_APPLY"
	DecisionNeedsApproval Decision = "NEEDS_APPROVAL"
	DecisionForbidden     Decision = "FORBIDDEN"
)

// Permission names a workspace-granted capability. Each supported method is
// gated by exactly one permission.
type Permission string

const (
	PermissionReads           Permission = "reads"
	PermissionTaskWrites      Permission = "taskWrites"
	PermissionPageWrites      Permission = "pageWrites"
	PermissionProjectWrites   Permission = "projectWrites"
	PermissionGoalWrites      Permission = "goalWrites"
	PermissionSpaceWrites     Permission = "spaceWrites"
	PermissionWorkspaceWrites Permission = "workspaceWrites"
)

// PolicyConfig carries the method gating table and the mandatory-approval
// set. Both are data, injected at construction, so deployments can reshape
// them without touching the engine.
type PolicyConfig struct {
	Table     map[dispatch.Method]Permission
	Mandatory map[dispatch.Method]bool
}

// DefaultPolicyConfig returns the stock table covering the whole method
// registry and the stock mandatory-approval set (destructive operations).
func DefaultPolicyConfig() PolicyConfig {
	table := map[dispatch.Method]Permission{
		dispatch.MethodSpaceList:      PermissionReads,
		dispatch.MethodPageList:       PermissionReads,
		dispatch.MethodUserList:       PermissionReads,
		dispatch.MethodUserGet:        PermissionReads,
		dispatch.MethodCommentList:    PermissionReads,
		dispatch.MethodGroupGet:       PermissionReads,
		dispatch.MethodGroupList:      PermissionReads,
		dispatch.MethodWorkspaceGet:   PermissionReads,
		dispatch.MethodWorkspaceList:  PermissionReads,
		dispatch.MethodTaskList:       PermissionReads,
		dispatch.MethodProjectList:    PermissionReads,
		dispatch.MethodAttachmentList: PermissionReads,
		dispatch.MethodAttachmentGet:  PermissionReads,
		dispatch.MethodUINavigate:     PermissionReads,

		dispatch.MethodTaskCreate: PermissionTaskWrites,
		dispatch.MethodTaskUpdate: PermissionTaskWrites,
		dispatch.MethodTaskDelete: PermissionTaskWrites,

		dispatch.MethodPageCreate:       PermissionPageWrites,
		dispatch.MethodPageUpdate:       PermissionPageWrites,
		dispatch.MethodPageDelete:       PermissionPageWrites,
		dispatch.MethodPageMove:         PermissionPageWrites,
		dispatch.MethodCommentCreate:    PermissionPageWrites,
		dispatch.MethodCommentUpdate:    PermissionPageWrites,
		dispatch.MethodCommentDelete:    PermissionPageWrites,
		dispatch.MethodAttachmentUpload: PermissionPageWrites,
		dispatch.MethodAttachmentDelete: PermissionPageWrites,

		dispatch.MethodProjectCreate: PermissionProjectWrites,
		dispatch.MethodProjectDelete: PermissionProjectWrites,

		dispatch.MethodGoalCreate: PermissionGoalWrites,
		dispatch.MethodGoalUpdate: PermissionGoalWrites,

		dispatch.MethodSpaceCreate: PermissionSpaceWrites,
		dispatch.MethodSpaceUpdate: PermissionSpaceWrites,
		dispatch.MethodSpaceDelete: PermissionSpaceWrites,

		dispatch.MethodUserUpdate:            PermissionWorkspaceWrites,
		dispatch.MethodGroupCreate:           PermissionWorkspaceWrites,
		dispatch.MethodGroupUpdate:           PermissionWorkspaceWrites,
		dispatch.MethodGroupDelete:           PermissionWorkspaceWrites,
		dispatch.MethodGroupAddMember:        PermissionWorkspaceWrites,
		dispatch.MethodGroupRemoveMember:     PermissionWorkspaceWrites,
		dispatch.MethodWorkspaceUpdate:       PermissionWorkspaceWrites,
		dispatch.MethodWorkspaceDelete:       PermissionWorkspaceWrites,
		dispatch.MethodWorkspaceAddMember:    PermissionWorkspaceWrites,
		dispatch.MethodWorkspaceRemoveMember: PermissionWorkspaceWrites,
	}

	mandatory := map[dispatch.Method]bool{
		dispatch.MethodWorkspaceDelete:       true,
		dispatch.MethodWorkspaceRemoveMember: true,
		dispatch.MethodSpaceDelete:           true,
		dispatch.MethodPageDelete:            true,
		dispatch.MethodProjectDelete:         true,
		dispatch.MethodTaskDelete:            true,
		dispatch.MethodAttachmentDelete:      true,
		dispatch.MethodGroupDelete:           true,
	}

	return PolicyConfig{Table: table, Mandatory: mandatory}
}

// WithMandatoryMethods replaces the mandatory-approval set wholesale with the
// given method names. Names that do not parse are dropped.
func (c PolicyConfig) WithMandatoryMethods(names []string) PolicyConfig {
	mandatory := map[dispatch.Method]bool{}
	for _, name := range names {
		if method, ok := dispatch.ParseMethod(name); ok {
			mandatory[method] = true
		}
	}
	c.Mandatory = mandatory
	return c
}

// WithoutMandatoryApprovals empties the mandatory set. Permission flags still
// apply, so ungranted writes continue to require approval.
func (c PolicyConfig) WithoutMandatoryApprovals() PolicyConfig {
	c.Mandatory = map[dispatch.Method]bool{}
	return c
}

// Policy classifies proposed actions against workspace settings. It holds no
// state beyond its config and performs no IO.
type Policy struct {
	config PolicyConfig
}

func NewPolicy(config PolicyConfig) *Policy {
	if config.Table == nil {
		config.Table = map[dispatch.Method]Permission{}
	}
	if config.Mandatory == nil {
		config.Mandatory = map[dispatch.Method]bool{}
	}
	return &Policy{config: config}
}

func (p *Policy) Supports(method dispatch.Method) bool {
	_, ok := p.config.Table[method]
	return ok
}

// Classify decides what happens to a proposed action. An ungranted permission
// never yields Forbidden: the action stays reachable through the approval
// path. Only methods outside the table are Forbidden.
func (p *Policy) Classify(method dispatch.Method, settings Settings) Decision {
	permission, ok := p.config.Table[method]
	if !ok {
		return DecisionForbidden
	}
	if !granted(settings, permission) {
		return DecisionNeedsApproval
	}
	if p.config.Mandatory[method] {
		return DecisionNeedsApproval
	}
	return DecisionAutoApply
}

func granted(settings Settings, permission Permission) bool {
	switch permission {
	case PermissionReads:
		return settings.AllowReads
	case PermissionTaskWrites:
		return settings.AllowTaskWrites
	case PermissionPageWrites:
		return settings.AllowPageWrites
	case PermissionProjectWrites:
		return settings.AllowProjectWrites
	case PermissionGoalWrites:
		return settings.AllowGoalWrites
	case PermissionSpaceWrites:
		return settings.AllowSpaceWrites
	case PermissionWorkspaceWrites:
		return settings.AllowWorkspaceWrites
	default:
		return false
	}
}
