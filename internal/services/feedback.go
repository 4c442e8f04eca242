package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/domain"
)

type feedbackService struct {
	opportunityRepo domain.OpportunityRepository
	assignmentRepo  domain.AssignmentRepository
	feedbackRepo    domain.FeedbackRepository
	contextTimeout  time.Duration
}

// NewFeedbackService creates the feedback completion tracker.
func NewFeedbackService(
	opportunityRepo domain.OpportunityRepository,
	assignmentRepo domain.AssignmentRepository,
	feedbackRepo domain.FeedbackRepository,
	timeout time.Duration,
) domain.FeedbackService {
	return &feedbackService{
		opportunityRepo: opportunityRepo,
		assignmentRepo:  assignmentRepo,
		feedbackRepo:    feedbackRepo,
		contextTimeout:  timeout,
	}
}

func (s *feedbackService) Submit(ctx context.Context, opportunityID, volunteerID, organizationID string, input domain.FeedbackInput) (*domain.FeedbackRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	opp, err := s.opportunityRepo.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if opp.OwnerID != organizationID {
		return nil, domain.ErrForbidden
	}
	if !opp.Status.IsTerminal() {
		return nil, domain.ErrNotEligible
	}
	// Any assignment counts, active or withdrawn: a volunteer who left after
	// completing work still gets feedback.
	assigned, err := s.assignmentRepo.HasAnyByOpportunityAndVolunteer(ctx, opportunityID, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("check assignment history: %w", err)
	}
	if !assigned {
		return nil, domain.ErrNotEligible
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, domain.ErrInvalidInput
	}

	rec := &domain.FeedbackRecord{
		OpportunityID:  opportunityID,
		VolunteerID:    volunteerID,
		OrganizationID: organizationID,
		Rating:         input.Rating,
		Feedback:       input.Feedback,
		Skills:         input.Skills,
		WouldWorkAgain: input.WouldWorkAgain,
		CreatedAt:      time.Now(),
	}
	if err := s.feedbackRepo.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateFeedback) {
			return nil, domain.ErrDuplicateFeedback
		}
		return nil, fmt.Errorf("create feedback record: %w", err)
	}
	return rec, nil
}

func (s *feedbackService) CompletionStatus(ctx context.Context, opportunityID string, actor domain.Actor) (*domain.CompletionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	opp, err := s.opportunityRepo.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if !actor.CanManage(opp.OwnerID) {
		return nil, domain.ErrForbidden
	}

	total, err := s.assignmentRepo.CountDistinctVolunteersByOpportunityID(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("count volunteers: %w", err)
	}
	completed, err := s.feedbackRepo.CountByOpportunityID(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("count feedback records: %w", err)
	}
	return &domain.CompletionStatus{Total: total, Completed: completed}, nil
}
