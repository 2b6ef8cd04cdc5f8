package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/fleetops/fleetops/internal/journeys"
	"github.com/fleetops/fleetops/internal/optimizer"
)

// RouteReoptimizer rebuilds route plans by calling the external optimizer.
type RouteReoptimizer struct {
	repo   journeys.Repository
	client *optimizer.Client
	logger *slog.Logger
}

// NewRouteReoptimizer constructs the replan handler.
func NewRouteReoptimizer(repo journeys.Repository, client *optimizer.Client, logger *slog.Logger) *RouteReoptimizer {
	return &RouteReoptimizer{repo: repo, client: client, logger: logger}
}

// Handle processes one route:reoptimize task.
func (r *RouteReoptimizer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RouteReoptimizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		r.logger.Error("reoptimize payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	log := r.logger.With(
		slog.Int64("tenant_id", payload.TenantID),
		slog.Int64("journey_id", payload.JourneyID),
	)

	stops, err := r.repo.GetStops(ctx, payload.TenantID, payload.JourneyID)
	if err != nil {
		if errors.Is(err, journeys.ErrNotFound) {
			log.Warn("reoptimize journey missing")
			return asynq.SkipRetry
		}
		return fmt.Errorf("load stops: %w", err)
	}

	locations := make([]optimizer.Location, 0, len(stops))
	for _, stop := range stops {
		if stop.VisitedAt != nil {
			continue
		}
		locations = append(locations, optimizer.Location{
			Address:     stop.Address,
			Lat:         stop.Lat,
			Lng:         stop.Lng,
			ServiceTime: stop.ServiceTime,
		})
	}

	plan, err := r.client.Optimize(ctx, locations)
	if err != nil {
		if errors.Is(err, optimizer.ErrNoLocations) {
			log.Info("reoptimize skipped, no remaining stops")
			return asynq.SkipRetry
		}
		var fatal *optimizer.FatalError
		if errors.As(err, &fatal) {
			log.Error("reoptimize failed",
				slog.String("correlation_id", fatal.CorrelationID.String()),
				slog.Any("error", fatal.Cause),
			)
			return asynq.SkipRetry
		}
		return fmt.Errorf("optimize journey %d: %w", payload.JourneyID, err)
	}

	stored := &journeys.RoutePlan{
		TenantID:   payload.TenantID,
		JourneyID:  payload.JourneyID,
		ExternalID: plan.ID,
		Feasible:   plan.Feasible,
	}
	for i, stop := range plan.Stops {
		stored.Stops = append(stored.Stops, journeys.PlanStop{
			Position: i,
			StopKey:  stop.Key,
			Name:     stop.Name,
			Arrival:  stop.Arrival,
			Distance: stop.Distance,
		})
	}
	if err := r.repo.SavePlan(ctx, stored); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	log.Info("route plan stored", slog.String("external_id", plan.ID), slog.Bool("feasible", plan.Feasible))
	return nil
}
