package tenants

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

// ListQuery lists all tenants.
type ListQuery struct{}

// CommandName identifies the query in logs and outcomes.
func (ListQuery) CommandName() string { return "tenants.list" }

// Requirement declares the access this query demands. Deliberately not
// tenant scoped: this is the cross-tenant surface.
func (ListQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelSuperAdmin)
}

// GetQuery fetches one tenant.
type GetQuery struct {
	TenantID int64 `validate:"required,gt=0"`
}

// CommandName identifies the query in logs and outcomes.
func (GetQuery) CommandName() string { return "tenants.get" }

// Requirement declares the access this query demands.
func (GetQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelSuperAdmin)
}

// CreateCommand creates a tenant.
type CreateCommand struct {
	Name string `json:"name" validate:"required,min=2,max=200"`
}

// CommandName identifies the command in logs and outcomes.
func (CreateCommand) CommandName() string { return "tenants.create" }

// Requirement declares the access this command demands.
func (CreateCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelSuperAdmin)
}

// RenameCommand renames a tenant.
type RenameCommand struct {
	TenantID int64  `json:"tenant_id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required,min=2,max=200"`
}

// CommandName identifies the command in logs and outcomes.
func (RenameCommand) CommandName() string { return "tenants.rename" }

// Requirement declares the access this command demands.
func (RenameCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelSuperAdmin)
}

// DeactivateCommand disables a tenant.
type DeactivateCommand struct {
	TenantID int64 `json:"tenant_id" validate:"required,gt=0"`
}

// CommandName identifies the command in logs and outcomes.
func (DeactivateCommand) CommandName() string { return "tenants.deactivate" }

// Requirement declares the access this command demands.
func (DeactivateCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelSuperAdmin)
}

// Handler exposes tenant administration endpoints.
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
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/", h.create)
	r.Post("/{id}/rename", h.rename)
	r.Post("/{id}/deactivate", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	result := h.dispatcher.Dispatch(r.Context(), principalID, ListQuery{}, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.repo.List(ctx)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tenant id")
		return
	}

	cmd := GetQuery{TenantID: tenantID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.repo.GetByID(ctx, cmd.TenantID)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	var cmd CreateCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.repo.Create(ctx, cmd.Name)
	})
	h.respond(w, result, http.StatusCreated)
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tenant id")
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	cmd := RenameCommand{TenantID: tenantID, Name: body.Name}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		return h.repo.Rename(ctx, cmd.TenantID, cmd.Name)
	})
	h.respond(w, result, http.StatusOK)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tenant id")
		return
	}
	cmd := DeactivateCommand{TenantID: tenantID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		if err := h.repo.Deactivate(ctx, cmd.TenantID); err != nil {
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
		h.logger.Error("tenants handler failed", slog.Any("error", result.Err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
