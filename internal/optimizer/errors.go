package optimizer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNoLocations indicates an empty batch; no network call is made.
var ErrNoLocations = errors.New("optimizer: locations must not be empty")

// FatalError is a non-retriable failure of one optimization call. The
// correlation id ties the surfaced error to the diagnostic log entry.
type FatalError struct {
	CorrelationID uuid.UUID
	Cause         error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("optimizer: fatal (correlation %s): %v", e.CorrelationID, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}
