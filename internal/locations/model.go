// Package locations implements the approval workflow for field-submitted
// stop position corrections.
package locations

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a location update request.
type Status string

const (
	StatusPending  Status = "PENDING"  // Awaiting dispatcher review
	StatusApproved Status = "APPROVED" // Terminal, customer position updated
	StatusRejected Status = "REJECTED" // Terminal, customer untouched
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is defined.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Position is a geocoded point with its display address.
type Position struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// UpdateRequest represents a field correction to a stop's geocoded position.
// Once it leaves PENDING it is never mutated again.
type UpdateRequest struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        int64      `json:"tenant_id"`
	JourneyID       int64      `json:"journey_id"`
	StopID          int64      `json:"stop_id"`
	CustomerID      int64      `json:"customer_id"`
	Current         Position   `json:"current"`
	Requested       Position   `json:"requested"`
	Reason          string     `json:"reason"`
	Status          Status     `json:"status"`
	RequestedBy     int64      `json:"requested_by"`
	RequestedByName string     `json:"requested_by_name"`
	ProcessedBy     *int64     `json:"processed_by,omitempty"`
	ProcessedByName *string    `json:"processed_by_name,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}
