package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/fleetops/fleetops/internal/authz"
	"github.com/fleetops/fleetops/internal/identity"
)

// PrincipalResolver loads the principal for a command's principal id.
type PrincipalResolver interface {
	Resolve(ctx context.Context, principalID int64) (identity.Principal, error)
}

// Dispatcher runs commands through the pipeline.
type Dispatcher struct {
	resolver PrincipalResolver
	gate     *authz.Gate
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(resolver PrincipalResolver, gate *authz.Gate, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		gate:     gate,
		validate: validator.New(),
		logger:   logger,
	}
}

// Dispatch executes cmd for the given principal id. Stage order is fixed:
// malformed input never reaches authorization, and an unauthorized principal
// never reaches the handler, so no partial side effects are possible on a
// failed stage.
func (d *Dispatcher) Dispatch(ctx context.Context, principalID int64, cmd Command, handler HandlerFunc) Result {
	if fieldErrs := d.validateCommand(cmd); len(fieldErrs) > 0 {
		return Result{Status: StatusValidationFailed, Errors: fieldErrs}
	}

	principal, err := d.resolver.Resolve(ctx, principalID)
	if err != nil {
		if errors.Is(err, identity.ErrPrincipalNotFound) {
			d.logger.Warn("dispatch principal not found",
				slog.String("command", cmd.CommandName()),
				slog.Int64("principal_id", principalID))
		} else {
			d.logger.Error("dispatch resolve identity",
				slog.String("command", cmd.CommandName()),
				slog.Any("error", err))
		}
		return Result{Status: StatusForbidden, Err: authz.ErrForbidden}
	}

	requirement := cmd.Requirement()
	if err := d.gate.Authorize(principal, requirement); err != nil {
		d.logger.Warn("dispatch forbidden",
			slog.String("command", cmd.CommandName()),
			slog.Int64("principal_id", principal.ID),
			slog.String("roles", principal.Roles.String()),
			slog.String("required", requirement.Min().String()))
		return Result{Status: StatusForbidden, Err: err}
	}

	env := Env{Principal: principal}
	if requirement.IsTenantScoped() {
		env.TenantID = authz.Scope(principal)
	}

	body, err := handler(ctx, env)
	if err != nil {
		return Result{Status: StatusHandlerFailed, Err: err}
	}
	return Result{Status: StatusCompleted, Body: body}
}

func (d *Dispatcher) validateCommand(cmd Command) []FieldError {
	var fieldErrs []FieldError
	if err := d.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fieldErrs = append(fieldErrs, FieldError{Field: fe.Field(), Message: fe.Tag()})
			}
		} else {
			fieldErrs = append(fieldErrs, FieldError{Field: "", Message: err.Error()})
		}
		return fieldErrs
	}
	if sv, ok := cmd.(selfValidating); ok {
		if err := sv.Validate(); err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "", Message: err.Error()})
		}
	}
	return fieldErrs
}
