package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/domain"
)

// assignmentService is the single path through which volunteer slot occupancy
// changes. Join and Leave run their checks and writes inside one transaction
// holding the opportunity row lock, so concurrent calls on the same
// opportunity serialize and the current_volunteers counter never drifts from
// the assignment ledger.
type assignmentService struct {
	opportunityRepo domain.OpportunityRepository
	assignmentRepo  domain.AssignmentRepository
	txManager       domain.TxManager
	notifier        domain.ChangeNotifier
	contextTimeout  time.Duration
}

// NewAssignmentService creates the volunteer-facing assignment coordinator.
func NewAssignmentService(
	opportunityRepo domain.OpportunityRepository,
	assignmentRepo domain.AssignmentRepository,
	txManager domain.TxManager,
	notifier domain.ChangeNotifier,
	timeout time.Duration,
) domain.AssignmentService {
	return &assignmentService{
		opportunityRepo: opportunityRepo,
		assignmentRepo:  assignmentRepo,
		txManager:       txManager,
		notifier:        notifier,
		contextTimeout:  timeout,
	}
}

func (s *assignmentService) Join(ctx context.Context, opportunityID, volunteerID string) (*domain.Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var assignment *domain.Assignment
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		opp, err := s.opportunityRepo.GetByIDForUpdate(ctx, opportunityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get opportunity: %w", err)
		}
		if opp.Status.IsTerminal() {
			return domain.ErrOpportunityUnavailable
		}
		if opp.Status == domain.StatusInProgress {
			return domain.ErrOpportunityLocked
		}
		if _, err := s.assignmentRepo.GetActiveByOpportunityAndVolunteer(ctx, opportunityID, volunteerID); err == nil {
			return domain.ErrAlreadyAssigned
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get assignment: %w", err)
		}
		// Re-checked under the row lock: two concurrent joins on the last
		// slot see the counter serially, so exactly one wins.
		if opp.CurrentVolunteers >= opp.MaxVolunteers {
			return domain.ErrFull
		}

		assignment = domain.NewAssignment(opportunityID, volunteerID, time.Now())
		if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
			if errors.Is(err, domain.ErrAlreadyAssigned) {
				return domain.ErrAlreadyAssigned
			}
			return fmt.Errorf("create assignment: %w", err)
		}

		count := opp.CurrentVolunteers + 1
		status := opp.Status
		if count == opp.MaxVolunteers && status == domain.StatusOpen {
			status = domain.StatusAssigned
		}
		if err := s.opportunityRepo.SetVolunteerCount(ctx, opportunityID, count, status); err != nil {
			return fmt.Errorf("update volunteer count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitAssignmentChanged(opportunityID)
	return assignment, nil
}

func (s *assignmentService) Leave(ctx context.Context, opportunityID, volunteerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		opp, err := s.opportunityRepo.GetByIDForUpdate(ctx, opportunityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get opportunity: %w", err)
		}
		assignment, err := s.assignmentRepo.GetActiveByOpportunityAndVolunteer(ctx, opportunityID, volunteerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotAssigned
			}
			return fmt.Errorf("get assignment: %w", err)
		}
		// The roster freezes while work is underway; the lock lifts when the
		// organization moves the status on.
		if opp.Status == domain.StatusInProgress {
			return domain.ErrOpportunityLocked
		}

		// Deactivate, never delete: the record stays in the ledger history.
		if err := s.assignmentRepo.Deactivate(ctx, assignment.ID); err != nil {
			return fmt.Errorf("deactivate assignment: %w", err)
		}

		count := opp.CurrentVolunteers - 1
		if count < 0 {
			count = 0
		}
		status := opp.Status
		if status == domain.StatusAssigned && count < opp.MaxVolunteers {
			status = domain.StatusOpen
		}
		if err := s.opportunityRepo.SetVolunteerCount(ctx, opportunityID, count, status); err != nil {
			return fmt.Errorf("update volunteer count: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emitAssignmentChanged(opportunityID)
	return nil
}

func (s *assignmentService) ListMyAssignments(ctx context.Context, volunteerID string) ([]*domain.AssignmentWithOpportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	result, err := s.assignmentRepo.ListActiveWithOpportunitiesByVolunteerID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if result == nil {
		result = []*domain.AssignmentWithOpportunity{}
	}
	return result, nil
}

func (s *assignmentService) emitAssignmentChanged(opportunityID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(domain.ChangeEvent{
		Type:          domain.ChangeAssignment,
		OpportunityID: opportunityID,
		OccurredAt:    time.Now(),
	})
}
