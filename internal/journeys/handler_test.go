package journeys

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetops/internal/authz"
	"github.com/fleetops/fleetops/internal/dispatch"
	"github.com/fleetops/fleetops/internal/identity"
)

type stubRepo struct {
	journeyIDs map[int64]bool
	plan       *RoutePlan
}

func (s *stubRepo) Exists(ctx context.Context, tenantID, journeyID int64) (bool, error) {
	return s.journeyIDs[journeyID], nil
}

func (s *stubRepo) GetStops(ctx context.Context, tenantID, journeyID int64) ([]Stop, error) {
	return nil, nil
}

func (s *stubRepo) SavePlan(ctx context.Context, plan *RoutePlan) error {
	return nil
}

func (s *stubRepo) GetLatestPlan(ctx context.Context, tenantID, journeyID int64) (*RoutePlan, error) {
	if s.plan == nil || s.plan.JourneyID != journeyID {
		return nil, ErrNotFound
	}
	return s.plan, nil
}

type capturingEnqueuer struct {
	tenantIDs  []int64
	journeyIDs []int64
}

func (e *capturingEnqueuer) EnqueueRouteReoptimize(ctx context.Context, tenantID, journeyID int64) error {
	e.tenantIDs = append(e.tenantIDs, tenantID)
	e.journeyIDs = append(e.journeyIDs, journeyID)
	return nil
}

type fixedResolver struct {
	principal identity.Principal
}

func (r fixedResolver) Resolve(ctx context.Context, principalID int64) (identity.Principal, error) {
	if principalID != r.principal.ID {
		return identity.Principal{}, identity.ErrPrincipalNotFound
	}
	return r.principal, nil
}

func serve(h *Handler, principalID int64, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/journeys", h.MountRoutes)
	req := httptest.NewRequest(method, target, nil)
	if principalID != 0 {
		req = req.WithContext(identity.ContextWithPrincipalID(req.Context(), principalID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestReoptimizeEndpointQueuesTask(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mia := identity.Principal{ID: 9, Name: "Mia", Roles: identity.RoleDispatcher, TenantID: 4}
	d := dispatch.NewDispatcher(fixedResolver{principal: mia}, authz.NewGate(), logger)

	repo := &stubRepo{journeyIDs: map[int64]bool{10: true}}
	enq := &capturingEnqueuer{}
	h := NewHandler(logger, d, repo, enq)

	rec := serve(h, mia.ID, http.MethodPost, "/journeys/10/reoptimize")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "queued")
	require.Equal(t, []int64{4}, enq.tenantIDs)
	require.Equal(t, []int64{10}, enq.journeyIDs)
}

func TestReoptimizeEndpointUnknownJourney(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mia := identity.Principal{ID: 9, Roles: identity.RoleDispatcher, TenantID: 4}
	d := dispatch.NewDispatcher(fixedResolver{principal: mia}, authz.NewGate(), logger)

	enq := &capturingEnqueuer{}
	h := NewHandler(logger, d, &stubRepo{journeyIDs: map[int64]bool{}}, enq)

	rec := serve(h, mia.ID, http.MethodPost, "/journeys/10/reoptimize")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, enq.journeyIDs)
}

func TestReoptimizeEndpointForbiddenForDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	daan := identity.Principal{ID: 5, Roles: identity.RoleDriver, TenantID: 4}
	d := dispatch.NewDispatcher(fixedResolver{principal: daan}, authz.NewGate(), logger)

	enq := &capturingEnqueuer{}
	h := NewHandler(logger, d, &stubRepo{journeyIDs: map[int64]bool{10: true}}, enq)

	rec := serve(h, daan.ID, http.MethodPost, "/journeys/10/reoptimize")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, enq.journeyIDs)
}

func TestPlanEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mia := identity.Principal{ID: 9, Roles: identity.RoleDispatcher, TenantID: 4}
	d := dispatch.NewDispatcher(fixedResolver{principal: mia}, authz.NewGate(), logger)

	plan := &RoutePlan{ID: 1, TenantID: 4, JourneyID: 10, ExternalID: "plan-1", Feasible: true, CreatedAt: time.Now()}
	h := NewHandler(logger, d, &stubRepo{plan: plan}, &capturingEnqueuer{})

	rec := serve(h, mia.ID, http.MethodGet, "/journeys/10/plan")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "plan-1")

	rec = serve(h, mia.ID, http.MethodGet, "/journeys/11/plan")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
