// Package jobs holds the asynq task definitions and background workers.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeRouteReoptimize asks the worker to rebuild a journey's route plan.
	TaskTypeRouteReoptimize = "route:reoptimize"

	// QueueDefault is the queue all fleet tasks run on.
	QueueDefault = "default"
)

// RouteReoptimizePayload identifies the journey to replan.
type RouteReoptimizePayload struct {
	TenantID  int64 `json:"tenant_id"`
	JourneyID int64 `json:"journey_id"`
}

// NewRouteReoptimizeTask builds the asynq task for a journey replan.
func NewRouteReoptimizeTask(tenantID, journeyID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(RouteReoptimizePayload{TenantID: tenantID, JourneyID: journeyID})
	if err != nil {
		return nil, fmt.Errorf("marshal reoptimize payload: %w", err)
	}
	return asynq.NewTask(TaskTypeRouteReoptimize, payload, asynq.MaxRetry(3), asynq.Queue(QueueDefault)), nil
}
