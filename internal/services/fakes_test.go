package services

import (
	"context"
	"fmt"
	"sync"

	"volunteerhub/internal/domain"
)

// fakeTxManager serializes every callback behind one mutex, mimicking the
// row-lock discipline of the real transaction manager.
type fakeTxManager struct {
	mu  sync.Mutex
	err error // if set, WithinTx fails without running fn
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

// fakeNotifier records broadcast events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (n *fakeNotifier) Broadcast(event domain.ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) eventTypes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

// fakeOpportunityRepo is an in-memory OpportunityRepository.
type fakeOpportunityRepo struct {
	byID   map[string]*domain.Opportunity
	nextID int
	err    error // if set, every method returns this error
}

func newFakeOpportunityRepo() *fakeOpportunityRepo {
	return &fakeOpportunityRepo{
		byID:   make(map[string]*domain.Opportunity),
		nextID: 1,
	}
}

func (f *fakeOpportunityRepo) add(o *domain.Opportunity) *domain.Opportunity {
	if o.ID == "" {
		o.ID = fmt.Sprintf("opp-%d", f.nextID)
		f.nextID++
	}
	f.byID[o.ID] = o
	return o
}

func (f *fakeOpportunityRepo) Create(ctx context.Context, o *domain.Opportunity) error {
	if f.err != nil {
		return f.err
	}
	f.add(o)
	return nil
}

func (f *fakeOpportunityRepo) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if o, ok := f.byID[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOpportunityRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Opportunity, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeOpportunityRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Opportunity
	for _, o := range f.byID {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOpportunityRepo) ListOpen(ctx context.Context, params domain.PaginationParams) ([]*domain.Opportunity, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*domain.Opportunity
	for _, o := range f.byID {
		if o.Status.IsActive() {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (f *fakeOpportunityRepo) UpdateStatus(ctx context.Context, id string, status domain.Status, ts domain.StatusTimestamps) (*domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	o.ResolvedAt = ts.ResolvedAt
	o.ClosedAt = ts.ClosedAt
	copied := *o
	return &copied, nil
}

func (f *fakeOpportunityRepo) UpdateCapacityAndStatus(ctx context.Context, id string, maxVolunteers int, status domain.Status) (*domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.MaxVolunteers = maxVolunteers
	o.Status = status
	copied := *o
	return &copied, nil
}

func (f *fakeOpportunityRepo) SetVolunteerCount(ctx context.Context, id string, count int, status domain.Status) error {
	if f.err != nil {
		return f.err
	}
	o, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.CurrentVolunteers = count
	o.Status = status
	return nil
}

// fakeAssignmentRepo is an in-memory AssignmentRepository backing the ledger.
// It enforces the one-active-assignment-per-pair invariant the way the
// partial unique index does.
type fakeAssignmentRepo struct {
	assignments []*domain.Assignment
	nextID      int
	err         error
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{nextID: 1}
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *domain.Assignment) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.assignments {
		if existing.Active && existing.OpportunityID == a.OpportunityID && existing.VolunteerID == a.VolunteerID {
			return domain.ErrAlreadyAssigned
		}
	}
	a.ID = fmt.Sprintf("asg-%d", f.nextID)
	f.nextID++
	f.assignments = append(f.assignments, a)
	return nil
}

func (f *fakeAssignmentRepo) GetActiveByOpportunityAndVolunteer(ctx context.Context, opportunityID, volunteerID string) (*domain.Assignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.assignments {
		if a.Active && a.OpportunityID == opportunityID && a.VolunteerID == volunteerID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAssignmentRepo) HasAnyByOpportunityAndVolunteer(ctx context.Context, opportunityID, volunteerID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, a := range f.assignments {
		if a.OpportunityID == opportunityID && a.VolunteerID == volunteerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssignmentRepo) ListByOpportunityID(ctx context.Context, opportunityID string) ([]*domain.Assignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Assignment
	for _, a := range f.assignments {
		if a.OpportunityID == opportunityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListActiveWithOpportunitiesByVolunteerID(ctx context.Context, volunteerID string) ([]*domain.AssignmentWithOpportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.AssignmentWithOpportunity
	for _, a := range f.assignments {
		if a.Active && a.VolunteerID == volunteerID {
			out = append(out, &domain.AssignmentWithOpportunity{Assignment: a})
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) CountActiveByOpportunityID(ctx context.Context, opportunityID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	count := 0
	for _, a := range f.assignments {
		if a.Active && a.OpportunityID == opportunityID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAssignmentRepo) CountDistinctVolunteersByOpportunityID(ctx context.Context, opportunityID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	seen := make(map[string]struct{})
	for _, a := range f.assignments {
		if a.OpportunityID == opportunityID {
			seen[a.VolunteerID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (f *fakeAssignmentRepo) Deactivate(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	for _, a := range f.assignments {
		if a.ID == id && a.Active {
			a.Active = false
			return nil
		}
	}
	return domain.ErrNotFound
}

// fakeFeedbackRepo is an in-memory FeedbackRepository.
type fakeFeedbackRepo struct {
	records []*domain.FeedbackRecord
	nextID  int
	err     error
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{nextID: 1}
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, rec *domain.FeedbackRecord) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.records {
		if existing.OpportunityID == rec.OpportunityID && existing.VolunteerID == rec.VolunteerID {
			return domain.ErrDuplicateFeedback
		}
	}
	rec.ID = fmt.Sprintf("fb-%d", f.nextID)
	f.nextID++
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeFeedbackRepo) CountByOpportunityID(ctx context.Context, opportunityID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	count := 0
	for _, rec := range f.records {
		if rec.OpportunityID == opportunityID {
			count++
		}
	}
	return count, nil
}
