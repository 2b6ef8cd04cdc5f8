package locations

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/fleetops/fleetops/internal/authz"
)

// PositionInput is a caller-supplied position.
type PositionInput struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address" validate:"required,max=500"`
}

// SubmitCommand requests a new location correction.
type SubmitCommand struct {
	JourneyID  int64         `json:"journey_id" validate:"required,gt=0"`
	StopID     int64         `json:"stop_id" validate:"required,gt=0"`
	CustomerID int64         `json:"customer_id" validate:"required,gt=0"`
	Current    PositionInput `json:"current"`
	Requested  PositionInput `json:"requested"`
	Reason     string        `json:"reason" validate:"required,min=3,max=1000"`
}

// CommandName identifies the command in logs and outcomes.
func (SubmitCommand) CommandName() string { return "locations.submit" }

// Requirement declares the access this command demands.
func (SubmitCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDriver).TenantScoped()
}

// Validate normalizes free text and rejects a no-op correction.
func (c *SubmitCommand) Validate() error {
	c.Current.Address = norm.NFC.String(c.Current.Address)
	c.Requested.Address = norm.NFC.String(c.Requested.Address)
	c.Reason = norm.NFC.String(c.Reason)
	if c.Current.Lat == c.Requested.Lat && c.Current.Lng == c.Requested.Lng && c.Current.Address == c.Requested.Address {
		return errors.New("requested position equals current position")
	}
	return nil
}

// ApproveCommand applies a pending correction to the customer record.
type ApproveCommand struct {
	RequestID         uuid.UUID `json:"request_id" validate:"required"`
	UpdateFutureStops bool      `json:"update_future_stops"`
}

// CommandName identifies the command in logs and outcomes.
func (ApproveCommand) CommandName() string { return "locations.approve" }

// Requirement declares the access this command demands.
func (ApproveCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// RejectCommand declines a pending correction.
type RejectCommand struct {
	RequestID uuid.UUID `json:"request_id" validate:"required"`
	Reason    string    `json:"reason" validate:"required,min=3,max=1000"`
}

// CommandName identifies the command in logs and outcomes.
func (RejectCommand) CommandName() string { return "locations.reject" }

// Requirement declares the access this command demands.
func (RejectCommand) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// Validate normalizes the rejection reason.
func (c *RejectCommand) Validate() error {
	c.Reason = norm.NFC.String(c.Reason)
	return nil
}

// ListPendingQuery lists open requests for the caller's tenant.
type ListPendingQuery struct{}

// CommandName identifies the query in logs and outcomes.
func (ListPendingQuery) CommandName() string { return "locations.list_pending" }

// Requirement declares the access this query demands.
func (ListPendingQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// AuditQuery reads the workflow history of one request.
type AuditQuery struct {
	RequestID uuid.UUID `json:"request_id" validate:"required"`
}

// CommandName identifies the query in logs and outcomes.
func (AuditQuery) CommandName() string { return "locations.audit" }

// Requirement declares the access this query demands.
func (AuditQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// ListHistoryQuery lists processed requests, optionally filtered by status.
type ListHistoryQuery struct {
	Status  *Status `json:"status,omitempty"`
	Page    int     `json:"page" validate:"gte=0"`
	PerPage int     `json:"per_page" validate:"gte=0,lte=100"`
}

// CommandName identifies the query in logs and outcomes.
func (ListHistoryQuery) CommandName() string { return "locations.list_history" }

// Requirement declares the access this query demands.
func (ListHistoryQuery) Requirement() authz.Requirement {
	return authz.Require(authz.LevelDispatcher).TenantScoped()
}

// Validate rejects filters that would reintroduce PENDING into history.
func (c *ListHistoryQuery) Validate() error {
	if c.Status != nil {
		if !c.Status.IsValid() || !c.Status.IsTerminal() {
			return errors.New("history filter must be APPROVED or REJECTED")
		}
	}
	return nil
}
