package locations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetops/fleetops/internal/dispatch"
	"github.com/fleetops/fleetops/internal/identity"
	"github.com/fleetops/fleetops/internal/platform/httpx"
)

// Handler exposes the workflow over HTTP. It is a thin adapter: every request
// becomes a command dispatched through the pipeline.
type Handler struct {
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	service    *Service
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, dispatcher *dispatch.Dispatcher, service *Service) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher, service: service}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Get("/pending", h.listPending)
	r.Get("/history", h.listHistory)
	r.Get("/{id}/audit", h.auditTrail)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}

	var cmd SubmitCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	result := h.dispatcher.Dispatch(r.Context(), principalID, &cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.service.Submit(ctx, env.Principal, env.TenantID, cmd)
	})
	h.respond(w, result, http.StatusCreated)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request id")
		return
	}

	// The body is optional and chunked requests carry ContentLength -1, so
	// decode unconditionally and treat EOF as an empty body.
	var body struct {
		UpdateFutureStops bool `json:"update_future_stops"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	cmd := ApproveCommand{RequestID: requestID, UpdateFutureStops: body.UpdateFutureStops}
	result := h.dispatcher.Dispatch(r.Context(), principalID, &cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.service.Approve(ctx, env.Principal, env.TenantID, cmd)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	cmd := RejectCommand{RequestID: requestID, Reason: body.Reason}
	result := h.dispatcher.Dispatch(r.Context(), principalID, &cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.service.Reject(ctx, env.Principal, env.TenantID, cmd)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}

	cmd := ListPendingQuery{}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.service.ListPending(ctx, env.TenantID)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}

	cmd := ListHistoryQuery{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		cmd.Status = &status
	}
	cmd.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	cmd.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	result := h.dispatcher.Dispatch(r.Context(), principalID, &cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.service.ListHistory(ctx, env.TenantID, cmd)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request id")
		return
	}

	cmd := AuditQuery{RequestID: requestID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.service.AuditTrail(ctx, env.TenantID, cmd.RequestID)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) respond(w http.ResponseWriter, result dispatch.Result, okStatus int) {
	switch result.Status {
	case dispatch.StatusCompleted:
		httpx.JSON(w, okStatus, result.Body)
	case dispatch.StatusValidationFailed:
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusBadRequest,
			"errors": result.Errors,
		})
	case dispatch.StatusForbidden:
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		h.respondHandlerError(w, result.Err)
	}
}

func (h *Handler) respondHandlerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrJourneyNotFound), errors.Is(err, ErrCustomerNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNotProcessable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrDuplicatePending):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("location update handler failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
