// Package dispatch routes typed commands through a fixed pipeline:
// validation, authorization, tenant scoping, then the handler. No stage may
// be skipped or reordered; the first failing stage terminates the request.
package dispatch

import (
	"context"

	"github.com/fleetops/fleetops/internal/authz"
	"github.com/fleetops/fleetops/internal/identity"
)

// Status is the terminal state of one dispatched command.
type Status string

const (
	// StatusCompleted means the handler ran and produced a body.
	StatusCompleted Status = "COMPLETED"
	// StatusValidationFailed means the payload was rejected before
	// authorization ran.
	StatusValidationFailed Status = "VALIDATION_FAILED"
	// StatusForbidden means identity resolution or authorization failed
	// before the handler ran.
	StatusForbidden Status = "FORBIDDEN"
	// StatusHandlerFailed means the handler returned an error. Handlers are
	// not retried.
	StatusHandlerFailed Status = "HANDLER_FAILED"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of one dispatched command.
type Result struct {
	Status Status
	Body   any
	Errors []FieldError
	Err    error
}

// Command is a typed request carrying its declared access requirement.
type Command interface {
	CommandName() string
	Requirement() authz.Requirement
}

// selfValidating lets commands add checks beyond struct tags.
type selfValidating interface {
	Validate() error
}

// Env carries the request-scoped values a handler may rely on. TenantID is
// zero unless the command's requirement is tenant scoped.
type Env struct {
	Principal identity.Principal
	TenantID  int64
}

// HandlerFunc executes the business logic of one command.
type HandlerFunc func(ctx context.Context, env Env) (any, error)
