package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Business-rule rejections are
// returned as these typed values so the delivery layer can map them to
// stable API error codes; storage faults are wrapped and treated as
// internal errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals transient transactional contention. Callers may
	// retry the operation as-is.
	ErrConflict = errors.New("transaction conflict")

	ErrOpportunityUnavailable = errors.New("opportunity is no longer accepting volunteers")
	ErrOpportunityLocked      = errors.New("opportunity roster is locked while work is in progress")
	ErrFull                   = errors.New("opportunity is full")
	ErrAlreadyAssigned        = errors.New("volunteer is already assigned")
	ErrNotAssigned            = errors.New("volunteer is not assigned")

	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrNotEligible       = errors.New("volunteer is not eligible for feedback")
	ErrDuplicateFeedback = errors.New("feedback already submitted for this volunteer")

	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidStatus = errors.New("invalid status")
)

// ConsistencyError reports drift between the current_volunteers counter on an
// opportunity and the count of active assignments in the ledger. It is
// surfaced to the caller and never auto-repaired.
type ConsistencyError struct {
	OpportunityID string
	Counter       int
	Ledger        int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("opportunity %s: current_volunteers=%d but ledger has %d active assignments", e.OpportunityID, e.Counter, e.Ledger)
}
