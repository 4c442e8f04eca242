package domain

import (
	"context"
	"time"
)

// Assignment represents a volunteer's claim on one slot of an opportunity.
// History is append-only: leaving sets Active to false and re-joining creates
// a new record. At most one assignment per (opportunity, volunteer) pair may
// be active at any time.
// swagger:model Assignment
type Assignment struct {
	ID            string    `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	VolunteerID   string    `json:"volunteer_id"`
	Active        bool      `json:"active"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// NewAssignment returns a new active Assignment. ID is set by the repository
// on create.
func NewAssignment(opportunityID, volunteerID string, assignedAt time.Time) *Assignment {
	return &Assignment{
		OpportunityID: opportunityID,
		VolunteerID:   volunteerID,
		Active:        true,
		AssignedAt:    assignedAt,
	}
}

// AssignmentRepository defines storage operations for the assignment ledger.
type AssignmentRepository interface {
	Create(ctx context.Context, a *Assignment) error
	GetActiveByOpportunityAndVolunteer(ctx context.Context, opportunityID, volunteerID string) (*Assignment, error)
	// HasAnyByOpportunityAndVolunteer reports whether the volunteer has any
	// assignment record on the opportunity, active or not.
	HasAnyByOpportunityAndVolunteer(ctx context.Context, opportunityID, volunteerID string) (bool, error)
	ListByOpportunityID(ctx context.Context, opportunityID string) ([]*Assignment, error)
	ListActiveWithOpportunitiesByVolunteerID(ctx context.Context, volunteerID string) ([]*AssignmentWithOpportunity, error)
	CountActiveByOpportunityID(ctx context.Context, opportunityID string) (int, error)
	// CountDistinctVolunteersByOpportunityID counts volunteers over the full
	// history, including inactive records.
	CountDistinctVolunteersByOpportunityID(ctx context.Context, opportunityID string) (int, error)
	// Deactivate flips the active flag off; the record itself is never
	// deleted.
	Deactivate(ctx context.Context, id string) error
}

// AssignmentWithOpportunity bundles an assignment with its opportunity.
type AssignmentWithOpportunity struct {
	Assignment  *Assignment  `json:"assignment"`
	Opportunity *Opportunity `json:"opportunity"`
}

// AssignmentService is the single choke point through which volunteer slot
// occupancy changes.
type AssignmentService interface {
	Join(ctx context.Context, opportunityID, volunteerID string) (*Assignment, error)
	Leave(ctx context.Context, opportunityID, volunteerID string) error
	ListMyAssignments(ctx context.Context, volunteerID string) ([]*AssignmentWithOpportunity, error)
}

// LedgerService exposes the assignment ledger as the source of truth for
// consistency checks against the current_volunteers counter.
type LedgerService interface {
	ActiveCount(ctx context.Context, opportunityID string) (int, error)
	// Verify returns a *ConsistencyError when the counter has drifted from
	// the ledger. It never repairs the drift.
	Verify(ctx context.Context, opportunityID string) error
}

// TxManager runs fn inside a storage transaction. Operations on the same
// opportunity row serialize against each other; operations on different
// opportunities do not block. Transient conflicts are retried with backoff
// and reported as ErrConflict once retries are exhausted.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
