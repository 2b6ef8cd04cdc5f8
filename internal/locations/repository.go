package locations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/fleetops/internal/customers"
	"github.com/fleetops/fleetops/internal/platform/db"
)

// Repository defines persistence for location update requests. Every query is
// parameterized by tenant id; a record from another tenant is never returned
// even when looked up by primary key.
type Repository interface {
	Insert(ctx context.Context, req *UpdateRequest) error
	GetByID(ctx context.Context, tenantID int64, id uuid.UUID) (*UpdateRequest, error)
	ListPending(ctx context.Context, tenantID int64) ([]UpdateRequest, error)
	ListHistory(ctx context.Context, tenantID int64, status *Status, limit, offset int) ([]UpdateRequest, int, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional operations of one approval or
// rejection. LockPending serializes racing transitions; the loser of the race
// observes the already-processed state after the winner commits.
type TxRepository interface {
	LockPending(ctx context.Context, tenantID int64, id uuid.UUID) (*UpdateRequest, error)
	MarkApproved(ctx context.Context, tenantID int64, id uuid.UUID, approverID int64, approverName string, processedAt time.Time) error
	MarkRejected(ctx context.Context, tenantID int64, id uuid.UUID, approverID int64, approverName, reason string, processedAt time.Time) error
	UpdateCustomerPosition(ctx context.Context, tenantID, customerID int64, pos Position) error
	UpdateFutureStopPositions(ctx context.Context, tenantID, journeyID, customerID, afterStopID int64, pos Position) error
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const requestColumns = `id, tenant_id, journey_id, stop_id, customer_id,
       current_lat, current_lng, current_address,
       requested_lat, requested_lng, requested_address,
       reason, status, requested_by, requested_by_name,
       processed_by, processed_by_name, rejection_reason,
       created_at, processed_at`

func scanRequest(row pgx.Row) (*UpdateRequest, error) {
	var req UpdateRequest
	err := row.Scan(
		&req.ID, &req.TenantID, &req.JourneyID, &req.StopID, &req.CustomerID,
		&req.Current.Lat, &req.Current.Lng, &req.Current.Address,
		&req.Requested.Lat, &req.Requested.Lng, &req.Requested.Address,
		&req.Reason, &req.Status, &req.RequestedBy, &req.RequestedByName,
		&req.ProcessedBy, &req.ProcessedByName, &req.RejectionReason,
		&req.CreatedAt, &req.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Insert persists a new PENDING request. A partial unique index on
// (tenant_id, stop_id) WHERE status='PENDING' turns duplicate open requests
// into ErrDuplicatePending.
func (r *repository) Insert(ctx context.Context, req *UpdateRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO location_update_requests (
			id, tenant_id, journey_id, stop_id, customer_id,
			current_lat, current_lng, current_address,
			requested_lat, requested_lng, requested_address,
			reason, status, requested_by, requested_by_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		req.ID, req.TenantID, req.JourneyID, req.StopID, req.CustomerID,
		req.Current.Lat, req.Current.Lng, req.Current.Address,
		req.Requested.Lat, req.Requested.Lng, req.Requested.Address,
		req.Reason, req.Status, req.RequestedBy, req.RequestedByName, req.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePending
		}
		return err
	}
	return nil
}

// GetByID retrieves a request within the given tenant.
func (r *repository) GetByID(ctx context.Context, tenantID int64, id uuid.UUID) (*UpdateRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+`
		FROM location_update_requests WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotProcessable
		}
		return nil, err
	}
	return req, nil
}

// ListPending returns open requests ordered oldest first.
func (r *repository) ListPending(ctx context.Context, tenantID int64) ([]UpdateRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+`
		FROM location_update_requests
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at ASC`, tenantID, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListHistory returns processed requests ordered by processed time descending,
// falling back to created time for records lacking a processed time. The
// second return value is the total match count before limit/offset.
func (r *repository) ListHistory(ctx context.Context, tenantID int64, status *Status, limit, offset int) ([]UpdateRequest, int, error) {
	where := ` FROM location_update_requests WHERE tenant_id = $1 AND status <> $2`
	args := []any{tenantID, StatusPending}
	if status != nil {
		where += ` AND status = $3`
		args = append(args, *status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + requestColumns + where +
		` ORDER BY COALESCE(processed_at, created_at) DESC, id`
	args = append(args, limit, offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	requests, err := collectRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func collectRequests(rows pgx.Rows) ([]UpdateRequest, error) {
	var requests []UpdateRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// LockPending loads the request under a row lock. It distinguishes a missing
// record from an already-processed one so the service can log them apart, even
// though callers receive the combined ErrNotProcessable either way.
func (t *txRepository) LockPending(ctx context.Context, tenantID int64, id uuid.UUID) (*UpdateRequest, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+requestColumns+`
		FROM location_update_requests
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, tenantID, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errRequestMissing
		}
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, errAlreadyProcessed
	}
	return req, nil
}

// MarkApproved transitions the locked request to APPROVED.
func (t *txRepository) MarkApproved(ctx context.Context, tenantID int64, id uuid.UUID, approverID int64, approverName string, processedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE location_update_requests
		SET status = $1, processed_by = $2, processed_by_name = $3, processed_at = $4
		WHERE tenant_id = $5 AND id = $6 AND status = $7`,
		StatusApproved, approverID, approverName, processedAt, tenantID, id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errAlreadyProcessed
	}
	return nil
}

// MarkRejected transitions the locked request to REJECTED.
func (t *txRepository) MarkRejected(ctx context.Context, tenantID int64, id uuid.UUID, approverID int64, approverName, reason string, processedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE location_update_requests
		SET status = $1, processed_by = $2, processed_by_name = $3, rejection_reason = $4, processed_at = $5
		WHERE tenant_id = $6 AND id = $7 AND status = $8`,
		StatusRejected, approverID, approverName, reason, processedAt, tenantID, id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errAlreadyProcessed
	}
	return nil
}

// UpdateCustomerPosition copies the approved position onto the customer
// record through the customers repository bound to this transaction.
func (t *txRepository) UpdateCustomerPosition(ctx context.Context, tenantID, customerID int64, pos Position) error {
	err := customers.WithTx(t.tx).UpdatePosition(ctx, tenantID, customerID, pos.Lat, pos.Lng, pos.Address)
	if errors.Is(err, customers.ErrNotFound) {
		return ErrCustomerNotFound
	}
	return err
}

// UpdateFutureStopPositions propagates the position to later, not yet visited
// stops of the same journey serving the same customer.
func (t *txRepository) UpdateFutureStopPositions(ctx context.Context, tenantID, journeyID, customerID, afterStopID int64, pos Position) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE journey_stops
		SET lat = $1, lng = $2, address = $3, updated_at = NOW()
		WHERE tenant_id = $4 AND journey_id = $5 AND customer_id = $6
		  AND sequence > (SELECT sequence FROM journey_stops WHERE tenant_id = $4 AND id = $7)
		  AND visited_at IS NULL`,
		pos.Lat, pos.Lng, pos.Address, tenantID, journeyID, customerID, afterStopID)
	return err
}
