package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is the persisted user record behind a principal.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsDriver     bool
	IsDispatcher bool
	IsAdmin      bool
	IsSuperAdmin bool
	TenantID     int64
	VehicleID    *int64
	DepotID      *int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines account persistence used by identity resolution.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed account repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, is_driver, is_dispatcher,
       is_admin, is_super_admin, tenant_id, vehicle_id, depot_id, is_active,
       created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.IsDriver, &a.IsDispatcher,
		&a.IsAdmin, &a.IsSuperAdmin, &a.TenantID, &a.VehicleID, &a.DepotID,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID retrieves an account by primary key. Deactivated accounts are not
// returned; a revoked principal must stop resolving immediately.
func (r *repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1 AND is_active`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return account, nil
}

// FindByEmail retrieves an active account by email for credential checks.
func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1 AND is_active`, email)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return account, nil
}

// Deactivate disables an account. This is the only supported way to retire a
// principal; there is no flag mutation outside this method.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}
