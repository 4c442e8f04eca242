package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"volunteerhub/internal/domain"
)

type opportunityService struct {
	opportunityRepo domain.OpportunityRepository
	txManager       domain.TxManager
	notifier        domain.ChangeNotifier
	contextTimeout  time.Duration
}

// NewOpportunityService creates the organization-facing lifecycle service.
func NewOpportunityService(
	opportunityRepo domain.OpportunityRepository,
	txManager domain.TxManager,
	notifier domain.ChangeNotifier,
	timeout time.Duration,
) domain.OpportunityService {
	return &opportunityService{
		opportunityRepo: opportunityRepo,
		txManager:       txManager,
		notifier:        notifier,
		contextTimeout:  timeout,
	}
}

func (s *opportunityService) Create(ctx context.Context, actor domain.Actor, input domain.CreateOpportunityInput) (*domain.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if actor.Role != domain.RoleOrganization && actor.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.MaxVolunteers < 1 {
		return nil, domain.ErrInvalidCapacity
	}
	if input.DurationMinutes < 1 {
		return nil, domain.ErrInvalidInput
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := time.Now()
	opp := domain.NewOpportunity(actor.ID, input.Title, input.Description, input.Location, input.Tags, priority, input.EventStart, input.DurationMinutes, input.MaxVolunteers, now)
	if err := s.opportunityRepo.Create(ctx, opp); err != nil {
		return nil, fmt.Errorf("create opportunity: %w", err)
	}
	s.emitChanged(opp.ID)
	return opp, nil
}

func (s *opportunityService) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	opp, err := s.opportunityRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return opp, nil
}

func (s *opportunityService) ListByOwner(ctx context.Context, actor domain.Actor) ([]*domain.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	opps, err := s.opportunityRepo.ListByOwnerID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	if opps == nil {
		opps = []*domain.Opportunity{}
	}
	return opps, nil
}

func (s *opportunityService) ListOpen(ctx context.Context, params domain.PaginationParams) ([]*domain.Opportunity, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	opps, total, err := s.opportunityRepo.ListOpen(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list open opportunities: %w", err)
	}
	if opps == nil {
		opps = []*domain.Opportunity{}
	}
	return opps, total, nil
}

// TransitionStatus moves an opportunity to newStatus. The state machine
// imposes no ordering constraint beyond the timestamp side effects: entering
// resolved or closed stamps the matching timestamp and clears the other,
// re-entering any active status clears both (reopen semantics). A same-state
// transition is a no-op.
func (s *opportunityService) TransitionStatus(ctx context.Context, opportunityID string, newStatus domain.Status, actor domain.Actor) (*domain.Opportunity, error) {
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
	if opp.Status == newStatus {
		return opp, nil
	}

	ts := transitionTimestamps(opp, newStatus, time.Now())
	updated, err := s.opportunityRepo.UpdateStatus(ctx, opportunityID, newStatus, ts)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.emitChanged(opportunityID)
	return updated, nil
}

func transitionTimestamps(opp *domain.Opportunity, newStatus domain.Status, now time.Time) domain.StatusTimestamps {
	switch newStatus {
	case domain.StatusResolved:
		return domain.StatusTimestamps{ResolvedAt: &now}
	case domain.StatusClosed:
		return domain.StatusTimestamps{ClosedAt: &now}
	default:
		return domain.StatusTimestamps{}
	}
}

// UpdateCapacity changes max_volunteers under the opportunity row lock so the
// committed roster can never exceed the new limit. The derived assigned/open
// substate follows the new headroom.
func (s *opportunityService) UpdateCapacity(ctx context.Context, opportunityID string, newMax int, actor domain.Actor) (*domain.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if newMax < 1 {
		return nil, domain.ErrInvalidCapacity
	}

	var updated *domain.Opportunity
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		opp, err := s.opportunityRepo.GetByIDForUpdate(ctx, opportunityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get opportunity: %w", err)
		}
		if !actor.CanManage(opp.OwnerID) {
			return domain.ErrForbidden
		}
		if newMax < opp.CurrentVolunteers {
			return domain.ErrInvalidCapacity
		}

		status := opp.Status
		switch {
		case status == domain.StatusAssigned && opp.CurrentVolunteers < newMax:
			status = domain.StatusOpen
		case status == domain.StatusOpen && opp.CurrentVolunteers == newMax:
			status = domain.StatusAssigned
		}

		updated, err = s.opportunityRepo.UpdateCapacityAndStatus(ctx, opportunityID, newMax, status)
		if err != nil {
			return fmt.Errorf("update capacity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitChanged(opportunityID)
	return updated, nil
}

func (s *opportunityService) emitChanged(opportunityID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(domain.ChangeEvent{
		Type:          domain.ChangeOpportunity,
		OpportunityID: opportunityID,
		OccurredAt:    time.Now(),
	})
}
