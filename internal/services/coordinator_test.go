package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"volunteerhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOpportunity(repo *fakeOpportunityRepo, status domain.Status, current, max int) *domain.Opportunity {
	return repo.add(&domain.Opportunity{
		Title:             "Beach cleanup",
		Status:            status,
		Priority:          domain.PriorityMedium,
		MaxVolunteers:     max,
		CurrentVolunteers: current,
		OwnerID:           "org-1",
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	})
}

func TestAssignmentService_Join(t *testing.T) {
	ctx := context.Background()
	timeout := 5 * time.Second

	tests := []struct {
		name          string
		setup         func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string // returns opportunity ID
		volunteerID   string
		wantErr       error
		assert        func(t *testing.T, or *fakeOpportunityRepo, ar *fakeAssignmentRepo, oppID string)
	}{
		{
			name: "success",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusOpen, 0, 3).ID
			},
			volunteerID: "vol-1",
			assert: func(t *testing.T, or *fakeOpportunityRepo, ar *fakeAssignmentRepo, oppID string) {
				opp := or.byID[oppID]
				assert.Equal(t, 1, opp.CurrentVolunteers)
				assert.Equal(t, domain.StatusOpen, opp.Status)
				count, _ := ar.CountActiveByOpportunityID(ctx, oppID)
				assert.Equal(t, 1, count)
			},
		},
		{
			name: "last slot flips status to assigned",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusOpen, 1, 2).ID
			},
			volunteerID: "vol-2",
			assert: func(t *testing.T, or *fakeOpportunityRepo, ar *fakeAssignmentRepo, oppID string) {
				opp := or.byID[oppID]
				assert.Equal(t, 2, opp.CurrentVolunteers)
				assert.Equal(t, domain.StatusAssigned, opp.Status)
			},
		},
		{
			name: "opportunity not found",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return "missing"
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrNotFound,
		},
		{
			name: "resolved opportunity is unavailable",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusResolved, 0, 3).ID
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrOpportunityUnavailable,
		},
		{
			name: "closed opportunity is unavailable",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusClosed, 0, 3).ID
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrOpportunityUnavailable,
		},
		{
			name: "in progress opportunity is locked",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusInProgress, 1, 3).ID
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrOpportunityLocked,
		},
		{
			name: "already assigned",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				opp := seedOpportunity(or, domain.StatusOpen, 1, 3)
				_ = ar.Create(ctx, domain.NewAssignment(opp.ID, "vol-1", time.Now()))
				return opp.ID
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrAlreadyAssigned,
		},
		{
			name: "full",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusWaiting, 2, 2).ID
			},
			volunteerID: "vol-9",
			wantErr:     domain.ErrFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			or := newFakeOpportunityRepo()
			ar := newFakeAssignmentRepo()
			oppID := tt.setup(or, ar)
			notifier := &fakeNotifier{}
			svc := NewAssignmentService(or, ar, &fakeTxManager{}, notifier, timeout)

			assignment, err := svc.Join(ctx, oppID, tt.volunteerID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, notifier.eventTypes())
				return
			}
			require.NoError(t, err)
			require.NotNil(t, assignment)
			assert.True(t, assignment.Active)
			assert.Equal(t, tt.volunteerID, assignment.VolunteerID)
			assert.Equal(t, []string{domain.ChangeAssignment}, notifier.eventTypes())
			tt.assert(t, or, ar, oppID)
		})
	}
}

func TestAssignmentService_JoinConcurrent(t *testing.T) {
	ctx := context.Background()
	or := newFakeOpportunityRepo()
	ar := newFakeAssignmentRepo()
	opp := seedOpportunity(or, domain.StatusOpen, 0, 5)
	svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, 5*time.Second)

	const volunteers = 25
	var wg sync.WaitGroup
	errs := make([]error, volunteers)
	for i := 0; i < volunteers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Join(ctx, opp.ID, fmt.Sprintf("vol-%d", i))
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		require.ErrorIs(t, err, domain.ErrFull)
	}
	assert.Equal(t, 5, joined)
	assert.Equal(t, 5, opp.CurrentVolunteers)
	assert.Equal(t, domain.StatusAssigned, opp.Status)
	active, _ := ar.CountActiveByOpportunityID(ctx, opp.ID)
	assert.Equal(t, opp.CurrentVolunteers, active)
}

func TestAssignmentService_Leave(t *testing.T) {
	ctx := context.Background()
	timeout := 5 * time.Second

	tests := []struct {
		name        string
		setup       func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string
		volunteerID string
		wantErr     error
		assert      func(t *testing.T, or *fakeOpportunityRepo, ar *fakeAssignmentRepo, oppID string)
	}{
		{
			name: "success keeps history record inactive",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				opp := seedOpportunity(or, domain.StatusOpen, 1, 3)
				_ = ar.Create(ctx, domain.NewAssignment(opp.ID, "vol-1", time.Now()))
				return opp.ID
			},
			volunteerID: "vol-1",
			assert: func(t *testing.T, or *fakeOpportunityRepo, ar *fakeAssignmentRepo, oppID string) {
				assert.Equal(t, 0, or.byID[oppID].CurrentVolunteers)
				history, _ := ar.ListByOpportunityID(ctx, oppID)
				require.Len(t, history, 1)
				assert.False(t, history[0].Active)
			},
		},
		{
			name: "leaving a full opportunity reopens it",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				opp := seedOpportunity(or, domain.StatusAssigned, 2, 2)
				_ = ar.Create(ctx, domain.NewAssignment(opp.ID, "vol-1", time.Now()))
				_ = ar.Create(ctx, domain.NewAssignment(opp.ID, "vol-2", time.Now()))
				return opp.ID
			},
			volunteerID: "vol-1",
			assert: func(t *testing.T, or *fakeOpportunityRepo, ar *fakeAssignmentRepo, oppID string) {
				opp := or.byID[oppID]
				assert.Equal(t, 1, opp.CurrentVolunteers)
				assert.Equal(t, domain.StatusOpen, opp.Status)
			},
		},
		{
			name: "opportunity not found",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return "missing"
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrNotFound,
		},
		{
			name: "not assigned",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusOpen, 0, 3).ID
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrNotAssigned,
		},
		{
			name: "never assigned beats the in progress lock",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				return seedOpportunity(or, domain.StatusInProgress, 1, 3).ID
			},
			volunteerID: "vol-9",
			wantErr:     domain.ErrNotAssigned,
		},
		{
			name: "locked while in progress",
			setup: func(or *fakeOpportunityRepo, ar *fakeAssignmentRepo) string {
				opp := seedOpportunity(or, domain.StatusInProgress, 1, 3)
				_ = ar.Create(ctx, domain.NewAssignment(opp.ID, "vol-1", time.Now()))
				return opp.ID
			},
			volunteerID: "vol-1",
			wantErr:     domain.ErrOpportunityLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			or := newFakeOpportunityRepo()
			ar := newFakeAssignmentRepo()
			oppID := tt.setup(or, ar)
			svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, timeout)

			err := svc.Leave(ctx, oppID, tt.volunteerID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.assert(t, or, ar, oppID)
		})
	}
}

// A volunteer who leaves and rejoins gets a fresh ledger record; the old one
// stays as history.
func TestAssignmentService_LeaveThenRejoin(t *testing.T) {
	ctx := context.Background()
	or := newFakeOpportunityRepo()
	ar := newFakeAssignmentRepo()
	opp := seedOpportunity(or, domain.StatusOpen, 0, 3)
	svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, 5*time.Second)

	first, err := svc.Join(ctx, opp.ID, "vol-1")
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, opp.ID, "vol-1"))
	second, err := svc.Join(ctx, opp.ID, "vol-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	history, _ := ar.ListByOpportunityID(ctx, opp.ID)
	require.Len(t, history, 2)
	active, _ := ar.CountActiveByOpportunityID(ctx, opp.ID)
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, opp.CurrentVolunteers)
}

// The roster lock in in_progress lifts once the organization moves the
// opportunity on, and withdrawal works again in terminal states.
func TestAssignmentService_LockLiftsAfterResolve(t *testing.T) {
	ctx := context.Background()
	or := newFakeOpportunityRepo()
	ar := newFakeAssignmentRepo()
	opp := seedOpportunity(or, domain.StatusOpen, 0, 3)
	svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, 5*time.Second)

	_, err := svc.Join(ctx, opp.ID, "vol-1")
	require.NoError(t, err)

	opp.Status = domain.StatusInProgress
	require.ErrorIs(t, svc.Leave(ctx, opp.ID, "vol-1"), domain.ErrOpportunityLocked)

	opp.Status = domain.StatusResolved
	require.NoError(t, svc.Leave(ctx, opp.ID, "vol-1"))
	assert.Equal(t, 0, opp.CurrentVolunteers)
}

// Full walkthrough of capacity admission with max_volunteers = 2.
func TestAssignmentService_CapacityScenario(t *testing.T) {
	ctx := context.Background()
	or := newFakeOpportunityRepo()
	ar := newFakeAssignmentRepo()
	opp := seedOpportunity(or, domain.StatusOpen, 0, 2)
	svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, 5*time.Second)

	_, err := svc.Join(ctx, opp.ID, "vol-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, opp.Status)

	_, err = svc.Join(ctx, opp.ID, "vol-b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, opp.Status)

	_, err = svc.Join(ctx, opp.ID, "vol-c")
	require.ErrorIs(t, err, domain.ErrFull)

	require.NoError(t, svc.Leave(ctx, opp.ID, "vol-a"))
	assert.Equal(t, domain.StatusOpen, opp.Status)

	_, err = svc.Join(ctx, opp.ID, "vol-c")
	require.NoError(t, err)
	assert.Equal(t, 2, opp.CurrentVolunteers)
	assert.Equal(t, domain.StatusAssigned, opp.Status)
}

func TestAssignmentService_ListMyAssignments(t *testing.T) {
	ctx := context.Background()
	or := newFakeOpportunityRepo()
	ar := newFakeAssignmentRepo()
	opp := seedOpportunity(or, domain.StatusOpen, 0, 5)
	other := seedOpportunity(or, domain.StatusOpen, 0, 5)
	svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, 5*time.Second)

	_, err := svc.Join(ctx, opp.ID, "vol-1")
	require.NoError(t, err)
	_, err = svc.Join(ctx, other.ID, "vol-1")
	require.NoError(t, err)
	_, err = svc.Join(ctx, opp.ID, "vol-2")
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, other.ID, "vol-1"))

	mine, err := svc.ListMyAssignments(ctx, "vol-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, opp.ID, mine[0].Assignment.OpportunityID)

	none, err := svc.ListMyAssignments(ctx, "vol-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAssignmentService_RepoErrorIsWrapped(t *testing.T) {
	ctx := context.Background()
	or := newFakeOpportunityRepo()
	ar := newFakeAssignmentRepo()
	opp := seedOpportunity(or, domain.StatusOpen, 0, 3)
	ar.err = errors.New("db error")
	svc := NewAssignmentService(or, ar, &fakeTxManager{}, &fakeNotifier{}, 5*time.Second)

	_, err := svc.Join(ctx, opp.ID, "vol-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
