package authz

import (
	"errors"
	"fmt"

	"github.com/fleetops/fleetops/internal/identity"
)

// ErrForbidden indicates the principal does not satisfy the declared
// requirement. It is never downgraded to a narrower result set.
var ErrForbidden = errors.New("authz: forbidden")

// Gate checks principals against requirements. The check runs before any
// handler body; handlers never re-implement it.
type Gate struct{}

// NewGate constructs a Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Authorize evaluates the requirement against the principal. Seniority is a
// fixed total order: SuperAdmin covers Admin covers Dispatcher covers Driver.
func (g *Gate) Authorize(p identity.Principal, req Requirement) error {
	if !satisfies(p.Roles, req.Min()) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, req.Min())
	}
	return nil
}

func satisfies(roles identity.Role, min Level) bool {
	switch min {
	case LevelSuperAdmin:
		return roles.Has(identity.RoleSuperAdmin)
	case LevelAdmin:
		return roles.Has(identity.RoleAdmin | identity.RoleSuperAdmin)
	case LevelDispatcher:
		return roles.Has(identity.RoleDispatcher | identity.RoleAdmin | identity.RoleSuperAdmin)
	case LevelDriver:
		return roles.Has(identity.RoleDriver | identity.RoleDispatcher | identity.RoleAdmin | identity.RoleSuperAdmin)
	case LevelAuthenticated:
		return true
	default:
		return false
	}
}
