// Package tenants manages the isolation boundary itself. Its operations are
// the only deliberate TenantScope bypass in the system and require SuperAdmin.
package tenants

import "time"

// Tenant is one isolated workspace. Every business record belongs to exactly
// one tenant, set at creation and never changed.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
