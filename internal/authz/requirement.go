// Package authz evaluates declared access requirements before any operation
// executes.
package authz

// Level is the minimum role a command demands. Exactly one level is active
// per command; the closed constructor set makes an unreviewed "no requirement"
// combination unrepresentable.
type Level int

const (
	// LevelAuthenticated admits any resolved principal. This is an explicit
	// choice, not the absence of one.
	LevelAuthenticated Level = iota
	// LevelDriver admits drivers and every senior role.
	LevelDriver
	// LevelDispatcher admits dispatchers and every senior role.
	LevelDispatcher
	// LevelAdmin admits tenant admins and super admins.
	LevelAdmin
	// LevelSuperAdmin admits platform operators only.
	LevelSuperAdmin
)

// String renders the level for logs and denial reasons.
func (l Level) String() string {
	switch l {
	case LevelAuthenticated:
		return "authenticated"
	case LevelDriver:
		return "driver"
	case LevelDispatcher:
		return "dispatcher"
	case LevelAdmin:
		return "admin"
	case LevelSuperAdmin:
		return "superadmin"
	default:
		return "unknown"
	}
}

// Requirement pairs a minimum role with an independent tenant-membership
// flag. Construct via Require; the zero value means authenticated-only with
// no tenant scoping.
type Requirement struct {
	min          Level
	tenantScoped bool
}

// Require declares a minimum-role requirement.
func Require(min Level) Requirement {
	return Requirement{min: min}
}

// TenantScoped returns a copy that additionally demands the caller act within
// its own tenant. Every persistence call the handler makes must then be
// parameterized by the scoped tenant id.
func (r Requirement) TenantScoped() Requirement {
	return Requirement{min: r.min, tenantScoped: true}
}

// Min returns the minimum role level.
func (r Requirement) Min() Level {
	return r.min
}

// IsTenantScoped reports whether tenant scoping applies.
func (r Requirement) IsTenantScoped() bool {
	return r.tenantScoped
}
