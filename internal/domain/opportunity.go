package domain

import (
	"context"
	"time"
)

// Status is the lifecycle state of an opportunity.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	// StatusAssigned is a derived substate of open: all slots are taken.
	// The coordinator sets and clears it in the same transaction that
	// moves the volunteer counter.
	StatusAssigned Status = "assigned"
)

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusWaiting, StatusResolved, StatusClosed, StatusAssigned:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether the status represents finished work.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// IsActive reports whether the status still accepts or is undergoing work.
func (s Status) IsActive() bool {
	return !s.IsTerminal()
}

// Priority is an ordering key for opportunity listings; it carries no
// lifecycle semantics.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority string from an external caller.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", ErrInvalidInput
}

// Opportunity represents a unit of volunteer work with a date, duration,
// location, and a hard capacity limit.
// swagger:model Opportunity
type Opportunity struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	Tags            []string   `json:"tags"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	EventStart      time.Time  `json:"event_start"`
	DurationMinutes int        `json:"duration_minutes"`
	MaxVolunteers   int        `json:"max_volunteers"`
	// CurrentVolunteers must always equal the count of active assignments
	// for this opportunity. It is mutated only inside the coordinator's
	// per-opportunity transaction.
	CurrentVolunteers int        `json:"current_volunteers"`
	OwnerID           string     `json:"owner_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ResolvedAt        *time.Time `json:"resolved_at"`
	ClosedAt          *time.Time `json:"closed_at"`
}

// EventEnd returns the derived end time; it is never stored independently.
func (o *Opportunity) EventEnd() time.Time {
	return o.EventStart.Add(time.Duration(o.DurationMinutes) * time.Minute)
}

// NewOpportunity returns a new Opportunity in status open with an empty
// roster. ID is set by the repository on create.
func NewOpportunity(ownerID, title, description, location string, tags []string, priority Priority, eventStart time.Time, durationMinutes, maxVolunteers int, createdAt time.Time) *Opportunity {
	return &Opportunity{
		Title:           title,
		Description:     description,
		Location:        location,
		Tags:            tags,
		Status:          StatusOpen,
		Priority:        priority,
		EventStart:      eventStart,
		DurationMinutes: durationMinutes,
		MaxVolunteers:   maxVolunteers,
		OwnerID:         ownerID,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

// StatusTimestamps is the pair of terminal timestamps written by a lifecycle
// transition. Entering resolved sets ResolvedAt and clears ClosedAt; entering
// closed does the opposite; re-entering any active status clears both.
type StatusTimestamps struct {
	ResolvedAt *time.Time
	ClosedAt   *time.Time
}

// OpportunityRepository defines storage operations for opportunities.
type OpportunityRepository interface {
	Create(ctx context.Context, o *Opportunity) error
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	// GetByIDForUpdate loads the opportunity row under a row-level lock.
	// Must be called inside a transaction started by TxManager.
	GetByIDForUpdate(ctx context.Context, id string) (*Opportunity, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Opportunity, error)
	// ListOpen returns opportunities in an active status ordered by priority
	// then start time, with the total count for pagination metadata.
	ListOpen(ctx context.Context, params PaginationParams) ([]*Opportunity, int, error)
	UpdateStatus(ctx context.Context, id string, status Status, ts StatusTimestamps) (*Opportunity, error)
	// UpdateCapacityAndStatus writes a new max_volunteers and status in one
	// statement; called under the row lock by the lifecycle service.
	UpdateCapacityAndStatus(ctx context.Context, id string, maxVolunteers int, status Status) (*Opportunity, error)
	// SetVolunteerCount writes the counter and status derived by the
	// coordinator inside its transaction.
	SetVolunteerCount(ctx context.Context, id string, count int, status Status) error
}

// CreateOpportunityInput carries the caller-supplied attributes for Create.
type CreateOpportunityInput struct {
	Title           string
	Description     string
	Location        string
	Tags            []string
	Priority        Priority
	EventStart      time.Time
	DurationMinutes int
	MaxVolunteers   int
}

// OpportunityService defines organization-facing lifecycle operations.
type OpportunityService interface {
	Create(ctx context.Context, actor Actor, input CreateOpportunityInput) (*Opportunity, error)
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	ListByOwner(ctx context.Context, actor Actor) ([]*Opportunity, error)
	ListOpen(ctx context.Context, params PaginationParams) ([]*Opportunity, int, error)
	TransitionStatus(ctx context.Context, opportunityID string, newStatus Status, actor Actor) (*Opportunity, error)
	UpdateCapacity(ctx context.Context, opportunityID string, newMax int, actor Actor) (*Opportunity, error)
}
