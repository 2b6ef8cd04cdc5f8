// Package accounts exposes account administration over the command pipeline.
// It lives apart from identity because resolution itself must not depend on
// dispatch.
package accounts

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

// DeactivateCommand retires an account within the caller's tenant. The
// account stops resolving as a principal on the next request.
type DeactivateCommand struct {
	AccountID int64 `validate:"required,gt=0"`
}

// CommandName identifies the command in logs and outcomes.
func (DeactivateCommand) CommandName() string { return "accounts.deactivate" }

// Requirement declares the access this command demands.
func (DeactivateCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelAdmin).TenantScoped()
}

// Handler exposes account administration endpoints.
type Handler struct {
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	repo       identity.Repository
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, dispatcher *dispatch.Dispatcher, repo identity.Repository) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher, repo: repo}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/deactivate", h.deactivate)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := identity.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}

	cmd := DeactivateCommand{AccountID: accountID}
	result := h.dispatcher.Dispatch(r.Context(), principalID, cmd, func(ctx context.Context, env dispatch.Env) (any, error) {
		account, err := h.repo.FindByID(ctx, cmd.AccountID)
		if err != nil {
			return nil, err
		}
		// An account in another tenant is indistinguishable from a missing one.
		if account.TenantID != env.TenantID {
			return nil, identity.ErrPrincipalNotFound
		}
		if err := h.repo.Deactivate(ctx, cmd.AccountID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "deactivated"}, nil
	})
	h.respond(w, result)
}

func (h *Handler) respond(w http.ResponseWriter, result dispatch.Result) {
	switch result.Status {
	case dispatch.StatusCompleted:
		httpx.JSON(w, http.StatusOK, result.Body)
	case dispatch.StatusValidationFailed:
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusBadRequest,
			"errors": result.Errors,
		})
	case dispatch.StatusForbidden:
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		if errors.Is(result.Err, identity.ErrPrincipalNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
			return
		}
		h.logger.Error("accounts handler failed", slog.Any("error", result.Err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
