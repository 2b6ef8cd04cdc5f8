package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetops/internal/journeys"
	"github.com/fleetops/fleetops/internal/optimizer"
)

type stubJourneys struct {
	stops     []journeys.Stop
	stopsErr  error
	saved     []*journeys.RoutePlan
	saveErr   error
	existsVal bool
}

func (s *stubJourneys) Exists(ctx context.Context, tenantID, journeyID int64) (bool, error) {
	return s.existsVal, nil
}

func (s *stubJourneys) GetStops(ctx context.Context, tenantID, journeyID int64) ([]journeys.Stop, error) {
	if s.stopsErr != nil {
		return nil, s.stopsErr
	}
	return s.stops, nil
}

func (s *stubJourneys) SavePlan(ctx context.Context, plan *journeys.RoutePlan) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, plan)
	return nil
}

func (s *stubJourneys) GetLatestPlan(ctx context.Context, tenantID, journeyID int64) (*journeys.RoutePlan, error) {
	return nil, journeys.ErrNotFound
}

func testOptimizer(t *testing.T, endpoint string) *optimizer.Client {
	t.Helper()
	return optimizer.New(optimizer.Config{
		Endpoint:   endpoint,
		Username:   "fleet",
		Password:   "secret",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func makeTask(t *testing.T, tenantID, journeyID int64) *asynq.Task {
	t.Helper()
	task, err := NewRouteReoptimizeTask(tenantID, journeyID)
	require.NoError(t, err)
	return task
}

func TestReoptimizeStoresPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Id": "plan-3",
			"Count": 2,
			"Feasible": true,
			"Route": {
				"a": {"Name": "Customer A", "Arrival": 100, "Distance": 3.2},
				"b": {"Name": "Customer B", "Arrival": 200, "Distance": 5.0}
			}
		}`))
	}))
	defer srv.Close()

	visited := time.Now()
	repo := &stubJourneys{stops: []journeys.Stop{
		{ID: 1, Sequence: 1, Address: "Visited already", VisitedAt: &visited},
		{ID: 2, Sequence: 2, Address: "Customer A", Lat: 52.1, Lng: 4.1, ServiceTime: 10},
		{ID: 3, Sequence: 3, Address: "Customer B", Lat: 52.2, Lng: 4.2, ServiceTime: 5},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewRouteReoptimizer(repo, testOptimizer(t, srv.URL), logger)

	err := job.Handle(context.Background(), makeTask(t, 1, 10))
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	plan := repo.saved[0]
	require.Equal(t, int64(1), plan.TenantID)
	require.Equal(t, int64(10), plan.JourneyID)
	require.Equal(t, "plan-3", plan.ExternalID)
	require.True(t, plan.Feasible)
	require.Len(t, plan.Stops, 2)
	require.Equal(t, "a", plan.Stops[0].StopKey)
	require.Equal(t, 0, plan.Stops[0].Position)
	require.Equal(t, "b", plan.Stops[1].StopKey)
}

func TestReoptimizeSkipsWhenAllVisited(t *testing.T) {
	visited := time.Now()
	repo := &stubJourneys{stops: []journeys.Stop{
		{ID: 1, VisitedAt: &visited},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewRouteReoptimizer(repo, testOptimizer(t, "http://127.0.0.1:0"), logger)

	err := job.Handle(context.Background(), makeTask(t, 1, 10))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, repo.saved)
}

func TestReoptimizeSkipsOnMalformedPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewRouteReoptimizer(&stubJourneys{}, testOptimizer(t, "http://127.0.0.1:0"), logger)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeRouteReoptimize, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReoptimizeSkipsOnFatalOptimizerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := &stubJourneys{stops: []journeys.Stop{{ID: 2, Address: "Customer A"}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewRouteReoptimizer(repo, testOptimizer(t, srv.URL), logger)

	err := job.Handle(context.Background(), makeTask(t, 1, 10))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, repo.saved)
}

func TestReoptimizeRetriesTransientRepoError(t *testing.T) {
	repo := &stubJourneys{stopsErr: errors.New("connection reset")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewRouteReoptimizer(repo, testOptimizer(t, "http://127.0.0.1:0"), logger)

	err := job.Handle(context.Background(), makeTask(t, 1, 10))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}
