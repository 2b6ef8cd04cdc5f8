package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the customer does not resolve within the tenant.
var ErrNotFound = errors.New("customers: not found")

// Repository defines customer persistence. All queries filter on tenant id.
type Repository interface {
	Exists(ctx context.Context, tenantID, customerID int64) (bool, error)
	GetByID(ctx context.Context, tenantID, customerID int64) (*Customer, error)
	UpdatePosition(ctx context.Context, tenantID, customerID int64, lat, lng float64, address string) error
	Deactivate(ctx context.Context, tenantID, customerID int64) error
}

// Querier is the pgx surface the repository runs on. Both pgxpool.Pool and
// pgx.Tx satisfy it, so the same queries serve standalone calls and callers
// that need customer writes inside their own transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db Querier
}

// NewRepository creates a pgx-backed customer repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// WithTx binds the repository to an open transaction.
func WithTx(tx pgx.Tx) Repository {
	return &repository{db: tx}
}

// Exists reports whether an active customer resolves within the tenant.
func (r *repository) Exists(ctx context.Context, tenantID, customerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM customers WHERE tenant_id = $1 AND id = $2 AND is_active)`,
		tenantID, customerID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetByID retrieves a customer within the tenant.
func (r *repository) GetByID(ctx context.Context, tenantID, customerID int64) (*Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, name, phone, lat, lng, address, is_active, created_at, updated_at
		FROM customers
		WHERE tenant_id = $1 AND id = $2`, tenantID, customerID).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Lat, &c.Lng, &c.Address,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdatePosition replaces the customer's geocoded position.
func (r *repository) UpdatePosition(ctx context.Context, tenantID, customerID int64, lat, lng float64, address string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET lat = $1, lng = $2, address = $3, updated_at = NOW()
		WHERE tenant_id = $4 AND id = $5`, lat, lng, address, tenantID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate disables a customer. The flag is only ever flipped here.
func (r *repository) Deactivate(ctx context.Context, tenantID, customerID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET is_active = false, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND is_active`, tenantID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
