// Package journeys provides tenant-scoped journey and stop data plus stored
// route plans.
package journeys

import "time"

// Journey is one vehicle's planned run for a day.
type Journey struct {
	ID        int64      `json:"id"`
	TenantID  int64      `json:"tenant_id"`
	VehicleID int64      `json:"vehicle_id"`
	DepotID   int64      `json:"depot_id"`
	Date      time.Time  `json:"date"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Stop is one planned visit on a journey.
type Stop struct {
	ID          int64      `json:"id"`
	TenantID    int64      `json:"tenant_id"`
	JourneyID   int64      `json:"journey_id"`
	CustomerID  int64      `json:"customer_id"`
	Sequence    int        `json:"sequence"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Address     string     `json:"address"`
	ServiceTime int        `json:"service_time"`
	VisitedAt   *time.Time `json:"visited_at,omitempty"`
}

// RoutePlan is a stored optimization result for a journey.
type RoutePlan struct {
	ID         int64      `json:"id"`
	TenantID   int64      `json:"tenant_id"`
	JourneyID  int64      `json:"journey_id"`
	ExternalID string     `json:"external_id"`
	Feasible   bool       `json:"feasible"`
	CreatedAt  time.Time  `json:"created_at"`
	Stops      []PlanStop `json:"stops,omitempty"`
}

// PlanStop is one ordered entry of a stored route plan.
type PlanStop struct {
	PlanID   int64   `json:"plan_id"`
	Position int     `json:"position"`
	StopKey  string  `json:"stop_key"`
	Name     string  `json:"name"`
	Arrival  int     `json:"arrival"`
	Distance float64 `json:"distance"`
}
