package authz

import "github.com/fleetops/fleetops/internal/identity"

// Scope returns the tenant id every persistence call in a tenant-scoped
// handler must be parameterized by. Retrieval by primary key must still
// filter on this value so a guessed key from another tenant returns nothing.
//
// Cross-tenant super-admin operations declare Require(LevelSuperAdmin)
// without TenantScoped and bypass this deliberately; there is no implicit
// bypass path.
func Scope(p identity.Principal) int64 {
	return p.TenantID
}
