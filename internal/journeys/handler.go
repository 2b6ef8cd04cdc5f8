package journeys

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/fleetops/internal/authz"
	"github.com/fleetops/fleetops/internal/dispatch"
	"github.com/fleetops/fleetops/internal/identity"
	"github.com/fleetops/fleetops/internal/platform/httpx"
)

// ReoptimizeEnqueuer queues a background route recomputation.
type ReoptimizeEnqueuer interface {
	EnqueueRouteReoptimize(ctx context.Context, tenantID, journeyID int64) error
}

// ReoptimizeCommand requests a background route recomputation for a journey.
type ReoptimizeCommand struct {
	JourneyID int64 `json:"journey_id" validate:"required,gt=0"`
}

// CommandName identifies the command in logs and outcomes.
func (ReoptimizeCommand) CommandName() string { return "journeys.reoptimize" }

// Requirement declares the access this command demands.
func (ReoptimizeCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// PlanQuery reads the latest stored route plan for a journey.
type PlanQuery struct {
	JourneyID int64 `json:"journey_id" validate:"required,gt=0"`
}

// CommandName identifies the query in logs and outcomes.
func (PlanQuery) CommandName() string { return "journeys.plan" }

// Requirement declares the access this query demands.
func (PlanQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// Handler exposes route plan endpoints.
type Handler struct {
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	repo       Repository
	enqueuer   ReoptimizeEnqueuer
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, dispatcher *dispatch.Dispatcher, repo Repository, enqueuer ReoptimizeEnqueuer) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher, repo: repo, enqueuer: enqueuer}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/reoptimize", h.reoptimize)
	r.Get("/{id}/plan", h.plan)
}

func (h *Handler) reoptimize(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	journeyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid journey id")
		return
	}

	cmd := ReoptimizeCommand{JourneyID: journeyID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		ok, err := h.repo.Exists(ctx, env.TenantID, cmd.JourneyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFound
		}
		if err := h.enqueuer.EnqueueRouteReoptimize(ctx, env.TenantID, cmd.JourneyID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "queued"}, nil
	})
	h.respond(w, result, http.StatusAccepted)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	journeyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid journey id")
		return
	}

	cmd := PlanQuery{JourneyID: journeyID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.repo.GetLatestPlan(ctx, env.TenantID, cmd.JourneyID)
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
		if errors.Is(result.Err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", result.Err.Error())
			return
		}
		h.logger.Error("journeys handler failed", slog.Any("error", result.Err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
