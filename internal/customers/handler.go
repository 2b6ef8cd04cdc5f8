package customers

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

// GetQuery fetches one customer.
type GetQuery struct {
	CustomerID int64 `validate:"required,gt=0"`
}

// CommandName identifies the query in logs and outcomes.
func (GetQuery) CommandName() string { return "customers.get" }

// Requirement declares the access this query demands.
func (GetQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// DeactivateCommand disables a customer.
type DeactivateCommand struct {
	CustomerID int64 `validate:"required,gt=0"`
}

// CommandName identifies the command in logs and outcomes.
func (DeactivateCommand) CommandName() string { return "customers.deactivate" }

// Requirement declares the access this command demands.
func (DeactivateCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelAdmin).TenantScoped()
}

// Handler exposes customer endpoints.
type Handler struct {
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	repo       Repository
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, dispatcher *dispatch.Dispatcher, repo Repository) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher, repo: repo}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Post("/{id}/deactivate", h.deactivate)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}

	cmd := GetQuery{CustomerID: customerID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.repo.GetByID(ctx, env.TenantID, cmd.CustomerID)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}

	cmd := DeactivateCommand{CustomerID: customerID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		if err := h.repo.Deactivate(ctx, env.TenantID, cmd.CustomerID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "deactivated"}, nil
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
		h.logger.Error("customers handler failed", slog.Any("error", result.Err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
