// Package identity establishes who is calling for the lifetime of one request.
package identity

import "strings"

// Role is a bitset of granted roles. Roles are non-exclusive; seniority
// between them is interpreted by the authorization gate, not here.
type Role uint8

const (
	// RoleDriver marks field personnel.
	RoleDriver Role = 1 << iota
	// RoleDispatcher marks operations staff managing journeys.
	RoleDispatcher
	// RoleAdmin marks tenant administrators.
	RoleAdmin
	// RoleSuperAdmin marks cross-tenant platform operators.
	RoleSuperAdmin
)

// Has reports whether the bitset contains r.
func (roles Role) Has(r Role) bool {
	return roles&r != 0
}

// String renders the bitset for logs.
func (roles Role) String() string {
	var names []string
	if roles.Has(RoleDriver) {
		names = append(names, "driver")
	}
	if roles.Has(RoleDispatcher) {
		names = append(names, "dispatcher")
	}
	if roles.Has(RoleAdmin) {
		names = append(names, "admin")
	}
	if roles.Has(RoleSuperAdmin) {
		names = append(names, "superadmin")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Principal is the resolved identity of the caller. It is immutable for the
// lifetime of one request and is threaded through context, never stored on
// shared handler state.
type Principal struct {
	ID        int64
	Name      string
	Email     string
	Roles     Role
	TenantID  int64
	VehicleID *int64
	DepotID   *int64
}
