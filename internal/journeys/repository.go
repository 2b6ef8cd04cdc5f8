package journeys

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/fleetops/internal/platform/db"
)

// ErrNotFound indicates the journey or plan does not resolve within the tenant.
var ErrNotFound = errors.New("journeys: not found")

// Repository defines journey persistence. All queries filter on tenant id.
type Repository interface {
	Exists(ctx context.Context, tenantID, journeyID int64) (bool, error)
	GetStops(ctx context.Context, tenantID, journeyID int64) ([]Stop, error)
	SavePlan(ctx context.Context, plan *RoutePlan) error
	GetLatestPlan(ctx context.Context, tenantID, journeyID int64) (*RoutePlan, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed journey repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Exists reports whether the journey resolves within the tenant.
func (r *repository) Exists(ctx context.Context, tenantID, journeyID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM journeys WHERE tenant_id = $1 AND id = $2)`, tenantID, journeyID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetStops returns the journey's stops in planned sequence.
func (r *repository) GetStops(ctx context.Context, tenantID, journeyID int64) ([]Stop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, journey_id, customer_id, sequence, lat, lng, address, service_time, visited_at
		FROM journey_stops
		WHERE tenant_id = $1 AND journey_id = $2
		ORDER BY sequence ASC`, tenantID, journeyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.ID, &s.TenantID, &s.JourneyID, &s.CustomerID, &s.Sequence,
			&s.Lat, &s.Lng, &s.Address, &s.ServiceTime, &s.VisitedAt); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stops, nil
}

// SavePlan stores a plan with its ordered stops in one transaction.
func (r *repository) SavePlan(ctx context.Context, plan *RoutePlan) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO route_plans (tenant_id, journey_id, external_id, feasible, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			RETURNING id, created_at`,
			plan.TenantID, plan.JourneyID, plan.ExternalID, plan.Feasible,
		).Scan(&plan.ID, &plan.CreatedAt)
		if err != nil {
			return err
		}

		for i := range plan.Stops {
			plan.Stops[i].PlanID = plan.ID
			stop := plan.Stops[i]
			if _, err := tx.Exec(ctx, `
				INSERT INTO route_plan_stops (plan_id, position, stop_key, name, arrival, distance)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				stop.PlanID, stop.Position, stop.StopKey, stop.Name, stop.Arrival, stop.Distance); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetLatestPlan returns the newest plan for a journey with its stops.
func (r *repository) GetLatestPlan(ctx context.Context, tenantID, journeyID int64) (*RoutePlan, error) {
	var plan RoutePlan
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, journey_id, external_id, feasible, created_at
		FROM route_plans
		WHERE tenant_id = $1 AND journey_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, tenantID, journeyID).Scan(
		&plan.ID, &plan.TenantID, &plan.JourneyID, &plan.ExternalID, &plan.Feasible, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT plan_id, position, stop_key, name, arrival, distance
		FROM route_plan_stops
		WHERE plan_id = $1
		ORDER BY position ASC`, plan.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps PlanStop
		if err := rows.Scan(&ps.PlanID, &ps.Position, &ps.StopKey, &ps.Name, &ps.Arrival, &ps.Distance); err != nil {
			return nil, err
		}
		plan.Stops = append(plan.Stops, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &plan, nil
}
