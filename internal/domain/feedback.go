package domain

import (
	"context"
	"time"
)

// FeedbackRecord is an organization's post-hoc feedback for one volunteer on
// one opportunity. At most one record per (opportunity, volunteer) pair, and
// only once the opportunity reached a terminal status. Immutable once
// created.
// swagger:model FeedbackRecord
type FeedbackRecord struct {
	ID             string    `json:"id"`
	OpportunityID  string    `json:"opportunity_id"`
	VolunteerID    string    `json:"volunteer_id"`
	OrganizationID string    `json:"organization_id"`
	Rating         int       `json:"rating"`
	Feedback       string    `json:"feedback"`
	Skills         []string  `json:"skills"`
	WouldWorkAgain bool      `json:"would_work_again"`
	CreatedAt      time.Time `json:"created_at"`
}

// FeedbackRepository defines storage operations for feedback records.
type FeedbackRepository interface {
	// Create inserts the record. A duplicate (opportunity, volunteer) pair
	// returns ErrDuplicateFeedback.
	Create(ctx context.Context, rec *FeedbackRecord) error
	CountByOpportunityID(ctx context.Context, opportunityID string) (int, error)
}

// FeedbackInput carries the caller-supplied payload for Submit.
type FeedbackInput struct {
	Rating         int
	Feedback       string
	Skills         []string
	WouldWorkAgain bool
}

// CompletionStatus reports how far feedback collection has progressed for an
// opportunity. Total counts distinct volunteers over the full assignment
// history, not just currently active ones.
type CompletionStatus struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// FeedbackService tracks per-volunteer feedback after an opportunity closes.
type FeedbackService interface {
	Submit(ctx context.Context, opportunityID, volunteerID, organizationID string, input FeedbackInput) (*FeedbackRecord, error)
	CompletionStatus(ctx context.Context, opportunityID string, actor Actor) (*CompletionStatus, error)
}
