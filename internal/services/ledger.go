package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/domain"
)

// ledgerService checks the current_volunteers counter against the assignment
// ledger, the source of truth. Drift is reported, never repaired here; repair
// is external tooling's job.
type ledgerService struct {
	opportunityRepo domain.OpportunityRepository
	assignmentRepo  domain.AssignmentRepository
	contextTimeout  time.Duration
}

// NewLedgerService creates the consistency-check service.
func NewLedgerService(
	opportunityRepo domain.OpportunityRepository,
	assignmentRepo domain.AssignmentRepository,
	timeout time.Duration,
) domain.LedgerService {
	return &ledgerService{
		opportunityRepo: opportunityRepo,
		assignmentRepo:  assignmentRepo,
		contextTimeout:  timeout,
	}
}

func (s *ledgerService) ActiveCount(ctx context.Context, opportunityID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	count, err := s.assignmentRepo.CountActiveByOpportunityID(ctx, opportunityID)
	if err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}

func (s *ledgerService) Verify(ctx context.Context, opportunityID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	opp, err := s.opportunityRepo.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get opportunity: %w", err)
	}
	count, err := s.assignmentRepo.CountActiveByOpportunityID(ctx, opportunityID)
	if err != nil {
		return fmt.Errorf("count active assignments: %w", err)
	}
	if opp.CurrentVolunteers != count {
		return &domain.ConsistencyError{
			OpportunityID: opportunityID,
			Counter:       opp.CurrentVolunteers,
			Ledger:        count,
		}
	}
	return nil
}
