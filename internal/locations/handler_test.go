package locations

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetops/internal/authz"
	"github.com/fleetops/fleetops/internal/dispatch"
	"github.com/fleetops/fleetops/internal/identity"
)

type fixedResolver struct {
	principals map[int64]identity.Principal
}

func (r *fixedResolver) Resolve(ctx context.Context, principalID int64) (identity.Principal, error) {
	p, ok := r.principals[principalID]
	if !ok {
		return identity.Principal{}, identity.ErrPrincipalNotFound
	}
	return p, nil
}

func newTestHandler(t *testing.T) (*Handler, *memoryRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	resolver := &fixedResolver{principals: map[int64]identity.Principal{
		driver.ID:     driver,
		dispatcher.ID: dispatcher,
	}}
	d := dispatch.NewDispatcher(resolver, authz.NewGate(), logger)
	return NewHandler(logger, d, svc), repo
}

func doRequest(h *Handler, principalID int64, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/location-updates", h.MountRoutes)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if principalID != 0 {
		req = req.WithContext(identity.ContextWithPrincipalID(req.Context(), principalID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const submitBody = `{
	"journey_id": 10,
	"stop_id": 100,
	"customer_id": 1000,
	"current": {"lat": 52.1, "lng": 4.3, "address": "Oude Gracht 1"},
	"requested": {"lat": 52.2, "lng": 4.4, "address": "Nieuwe Gracht 2"},
	"reason": "customer moved entrance"
}`

func TestHandlerSubmit(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, driver.ID, created.RequestedBy)
}

func TestHandlerSubmitMissingPrincipal(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, 0, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerSubmitValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", `{"journey_id": 10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "errors")
}

func TestHandlerApproveFlow(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(h, dispatcher.ID, http.MethodPost, "/location-updates/"+created.ID.String()+"/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var approved UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, 1, repo.customerUpdates[created.CustomerID])

	// replay is a conflict, not a second mutation
	rec = doRequest(h, dispatcher.ID, http.MethodPost, "/location-updates/"+created.ID.String()+"/approve", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, repo.customerUpdates[created.CustomerID])
}

func TestHandlerApproveChunkedBody(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	r := chi.NewRouter()
	r.Route("/location-updates", h.MountRoutes)

	// chunked transfer carries no declared length; the flag must still decode
	req := httptest.NewRequest(http.MethodPost, "/location-updates/"+created.ID.String()+"/approve",
		strings.NewReader(`{"update_future_stops": true}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(identity.ContextWithPrincipalID(req.Context(), dispatcher.ID))
	chunked := httptest.NewRecorder()
	r.ServeHTTP(chunked, req)

	require.Equal(t, http.StatusOK, chunked.Code)
	require.Equal(t, 1, repo.futureStopUpdates)
}

func TestHandlerApproveMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(h, dispatcher.ID, http.MethodPost, "/location-updates/"+created.ID.String()+"/approve", `{"update_future_stops":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerApproveForbiddenForDriver(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(h, driver.ID, http.MethodPost, "/location-updates/"+created.ID.String()+"/approve", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, repo.customerUpdates[created.CustomerID])
}

func TestHandlerApproveUnknownID(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, dispatcher.ID, http.MethodPost, "/location-updates/"+uuid.NewString()+"/approve", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(h, dispatcher.ID, http.MethodPost, "/location-updates/not-a-uuid/approve", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerReject(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(h, dispatcher.ID, http.MethodPost, "/location-updates/"+created.ID.String()+"/reject", `{"reason":"wrong address"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var rejected UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejected))
	require.Equal(t, StatusRejected, rejected.Status)
}

func TestHandlerListEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, driver.ID, http.MethodPost, "/location-updates/", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(h, dispatcher.ID, http.MethodGet, "/location-updates/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []UpdateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)

	// drivers cannot review the queue
	rec = doRequest(h, driver.ID, http.MethodGet, "/location-updates/pending", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(h, dispatcher.ID, http.MethodGet, "/location-updates/history?status=PENDING", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
