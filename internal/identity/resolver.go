package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPrincipalNotFound indicates the principal id does not map to a known,
// active account.
var ErrPrincipalNotFound = errors.New("identity: principal not found")

// ErrInvalidCredentials indicates a failed email/password check.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// Resolver turns an opaque principal id into a fully loaded Principal. It is
// the single place where "who is calling" is established; downstream code
// trusts its output for the remainder of one request.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve loads the principal for the given id.
func (r *Resolver) Resolve(ctx context.Context, principalID int64) (Principal, error) {
	account, err := r.repo.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, fmt.Errorf("identity: resolve %d: %w", principalID, err)
	}
	return principalFromAccount(account), nil
}

// Authenticate validates email/password credentials and returns the principal.
func (r *Resolver) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	account, err := r.repo.FindByEmail(ctx, email)
	if err != nil {
		// Unknown account and bad password are indistinguishable to the caller.
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return principalFromAccount(account), nil
}

func principalFromAccount(a *Account) Principal {
	var roles Role
	if a.IsDriver {
		roles |= RoleDriver
	}
	if a.IsDispatcher {
		roles |= RoleDispatcher
	}
	if a.IsAdmin {
		roles |= RoleAdmin
	}
	if a.IsSuperAdmin {
		roles |= RoleSuperAdmin
	}
	return Principal{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Roles:     roles,
		TenantID:  a.TenantID,
		VehicleID: a.VehicleID,
		DepotID:   a.DepotID,
	}
}
