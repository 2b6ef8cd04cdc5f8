package locations

import "errors"

// Domain errors for location update requests.
var (
	// ErrJourneyNotFound indicates the journey does not resolve within the
	// caller's tenant.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrCustomerNotFound indicates the customer does not resolve within the
	// caller's tenant.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrNotProcessable is the single combined outcome for approve/reject
	// preconditions: the request does not exist in the caller's tenant or has
	// already left PENDING. Callers cannot distinguish the two; nothing
	// actionable remains either way.
	ErrNotProcessable = errors.New("location update request not found or already processed")

	// ErrDuplicatePending indicates an open request already exists for the stop.
	ErrDuplicatePending = errors.New("a pending location update already exists for this stop")
)

// Internal diagnostics behind ErrNotProcessable; logged, never surfaced.
var (
	errRequestMissing   = errors.New("request missing in tenant")
	errAlreadyProcessed = errors.New("request already processed")
)
