package rbac

import "fmt"

// Role is a closed set of console roles.
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"
	RoleManager          Role = "manager"
	RoleScoutCoordinator Role = "scout_coordinator"
	RoleViewer           Role = "viewer"
)

// Resource names an administrable entity family.
type Resource string

const (
	ResourcePlayers   Resource = "players"
	ResourceScouts    Resource = "scouts"
	ResourceClubs     Resource = "clubs"
	ResourceMatches   Resource = "matches"
	ResourceReports   Resource = "reports"
	ResourceTransfers Resource = "transfers"
	ResourceAuditLogs Resource = "audit_logs"
)

// Action is an operation on a resource.
type Action string

const (
	ActionCreate  Action = "create"
	ActionView    Action = "view"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// Capability pairs a resource with an action.
type Capability struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

func (c Capability) String() string {
	return fmt.Sprintf("%s.%s", c.Resource, c.Action)
}

// Principal describes the authenticated actor.
type Principal struct {
	ID   int64
	Role Role
}

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleManager, RoleScoutCoordinator, RoleViewer}
}

// Resources lists every known resource.
func Resources() []Resource {
	return []Resource{
		ResourcePlayers,
		ResourceScouts,
		ResourceClubs,
		ResourceMatches,
		ResourceReports,
		ResourceTransfers,
		ResourceAuditLogs,
	}
}

// Actions lists every known action.
func Actions() []Action {
	return []Action{ActionCreate, ActionView, ActionEdit, ActionDelete, ActionApprove}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, known := range Resources() {
		if r == known {
			return true
		}
	}
	return false
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}
