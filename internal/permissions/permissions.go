// Package permissions implements the static role to permission table and the
// fail-closed checks every mutating tracker operation runs before touching data.
package permissions

// Role is a named bundle of permissions.
type Role string

// Role values
const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleVolunteer  Role = "VOLUNTEER"
)

// Roles lists every role from most to least privileged.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleTeamLeader, RoleVolunteer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTeamLeader, RoleVolunteer:
		return true
	}
	return false
}

// Permission is a fine-grained capability gating one action.
type Permission string

// Permission values
const (
	MemberView    Permission = "MEMBER_VIEW"
	MemberViewAll Permission = "MEMBER_VIEW_ALL"
	MemberCreate  Permission = "MEMBER_CREATE"
	MemberEdit    Permission = "MEMBER_EDIT"
	MemberDelete  Permission = "MEMBER_DELETE"
	MemberAssign  Permission = "MEMBER_ASSIGN"
	MemberAdvance Permission = "MEMBER_ADVANCE"
	NoteAdd       Permission = "NOTE_ADD"

	TaskView   Permission = "TASK_VIEW"
	TaskCreate Permission = "TASK_CREATE"
	TaskEdit   Permission = "TASK_EDIT"
	TaskDelete Permission = "TASK_DELETE"

	MessageSend    Permission = "MESSAGE_SEND"
	MessageAIDraft Permission = "MESSAGE_AI_DRAFT"

	PipelineView     Permission = "PIPELINE_VIEW"
	PipelineEdit     Permission = "PIPELINE_EDIT"
	AutomationManage Permission = "AUTOMATION_MANAGE"

	IntegrationManage Permission = "INTEGRATION_MANAGE"
	IntegrationSync   Permission = "INTEGRATION_SYNC"

	FormView            Permission = "FORM_VIEW"
	FormManage          Permission = "FORM_MANAGE"
	FormSubmissionsView Permission = "FORM_SUBMISSIONS_VIEW"

	AcademyView   Permission = "ACADEMY_VIEW"
	AcademyManage Permission = "ACADEMY_MANAGE"

	UserView   Permission = "USER_VIEW"
	UserManage Permission = "USER_MANAGE"
	RoleAssign Permission = "ROLE_ASSIGN"

	ReportsView Permission = "REPORTS_VIEW"
)

// All is the full permission universe. SUPER_ADMIN holds every entry.
var All = []Permission{
	MemberView, MemberViewAll, MemberCreate, MemberEdit, MemberDelete, MemberAssign, MemberAdvance, NoteAdd,
	TaskView, TaskCreate, TaskEdit, TaskDelete,
	MessageSend, MessageAIDraft,
	PipelineView, PipelineEdit, AutomationManage,
	IntegrationManage, IntegrationSync,
	FormView, FormManage, FormSubmissionsView,
	AcademyView, AcademyManage,
	UserView, UserManage, RoleAssign,
	ReportsView,
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		MemberView, MemberViewAll, MemberCreate, MemberEdit, MemberDelete, MemberAssign, MemberAdvance, NoteAdd,
		TaskView, TaskCreate, TaskEdit, TaskDelete,
		MessageSend, MessageAIDraft,
		PipelineView, PipelineEdit, AutomationManage,
		IntegrationManage, IntegrationSync,
		FormView, FormManage, FormSubmissionsView,
		AcademyView, AcademyManage,
		UserView, UserManage,
		ReportsView,
	},
	RoleTeamLeader: {
		MemberView, MemberViewAll, MemberCreate, MemberEdit, MemberAssign, MemberAdvance, NoteAdd,
		TaskView, TaskCreate, TaskEdit,
		MessageSend, MessageAIDraft,
		PipelineView,
		IntegrationSync,
		FormView, FormSubmissionsView,
		AcademyView,
		UserView,
		ReportsView,
	},
	RoleVolunteer: {
		MemberView, MemberEdit, MemberAdvance, NoteAdd,
		TaskView, TaskEdit,
		MessageSend,
		PipelineView,
		AcademyView,
	},
}

var index = buildIndex()

func buildIndex() map[Role]map[Permission]struct{} {
	idx := make(map[Role]map[Permission]struct{}, len(rolePermissions)+1)
	all := make(map[Permission]struct{}, len(All))
	for _, p := range All {
		all[p] = struct{}{}
	}
	idx[RoleSuperAdmin] = all
	for role, perms := range rolePermissions {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		idx[role] = set
	}
	return idx
}

// HasPermission reports whether role holds perm. Unknown roles hold nothing.
func HasPermission(role Role, perm Permission) bool {
	_, ok := index[role][perm]
	return ok
}

// HasAnyPermission reports whether role holds at least one of perms.
func HasAnyPermission(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether role holds every one of perms.
// An empty list is trivially satisfied.
func HasAllPermissions(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// For returns a copy of the permissions held by role, in universe order.
func For(role Role) []Permission {
	var out []Permission
	for _, p := range All {
		if HasPermission(role, p) {
			out = append(out, p)
		}
	}
	return out
}
