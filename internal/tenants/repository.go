package tenants

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the tenant does not exist.
var ErrNotFound = errors.New("tenants: not found")

// Repository defines tenant persistence.
type Repository interface {
	List(ctx context.Context) ([]Tenant, error)
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	Create(ctx context.Context, name string) (*Tenant, error)
	Rename(ctx context.Context, id int64, name string) (*Tenant, error)
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed tenant repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// List returns all tenants ordered by name.
func (r *repository) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM tenants ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tenants, nil
}

// GetByID fetches a tenant by id.
func (r *repository) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	var t Tenant
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM tenants WHERE id = $1`, id).Scan(
		&t.ID, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tenant.
func (r *repository) Create(ctx context.Context, name string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tenants: name required")
	}
	var t Tenant
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (name, is_active, created_at, updated_at)
		VALUES ($1, true, NOW(), NOW())
		RETURNING id, name, is_active, created_at, updated_at`, name).Scan(
		&t.ID, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Rename updates a tenant's name.
func (r *repository) Rename(ctx context.Context, id int64, name string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tenants: name required")
	}
	var t Tenant
	err := r.pool.QueryRow(ctx, `
		UPDATE tenants SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, is_active, created_at, updated_at`, name, id).Scan(
		&t.ID, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Deactivate disables a tenant. Soft delete is a first-class operation; no
// other code path touches the flag.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
