package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"volunteerhub/internal/domain"
)

type assignmentRepository struct {
	DB *sql.DB
}

func NewAssignmentRepository(db *sql.DB) domain.AssignmentRepository {
	return &assignmentRepository{
		DB: db,
	}
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO assignments (opportunity_id, volunteer_id, active, assigned_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := q(ctx, r.DB).QueryRowContext(ctx, query, a.OpportunityID, a.VolunteerID, a.Active, a.AssignedAt).
		Scan(&a.ID)
	if err != nil {
		// The partial unique index on (opportunity_id, volunteer_id) WHERE
		// active backs the one-active-assignment-per-pair invariant.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrAlreadyAssigned
		}
		return err
	}
	return nil
}

const pqUniqueViolation = "23505"

func (r *assignmentRepository) GetActiveByOpportunityAndVolunteer(ctx context.Context, opportunityID, volunteerID string) (*domain.Assignment, error) {
	query := `
		SELECT id, opportunity_id, volunteer_id, active, assigned_at
		FROM assignments
		WHERE opportunity_id = $1 AND volunteer_id = $2 AND active
	`
	a := &domain.Assignment{}
	err := q(ctx, r.DB).QueryRowContext(ctx, query, opportunityID, volunteerID).
		Scan(&a.ID, &a.OpportunityID, &a.VolunteerID, &a.Active, &a.AssignedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepository) HasAnyByOpportunityAndVolunteer(ctx context.Context, opportunityID, volunteerID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE opportunity_id = $1 AND volunteer_id = $2
		)
	`
	var exists bool
	if err := q(ctx, r.DB).QueryRowContext(ctx, query, opportunityID, volunteerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *assignmentRepository) ListByOpportunityID(ctx context.Context, opportunityID string) ([]*domain.Assignment, error) {
	query := `
		SELECT id, opportunity_id, volunteer_id, active, assigned_at
		FROM assignments
		WHERE opportunity_id = $1
		ORDER BY assigned_at ASC
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a := &domain.Assignment{}
		if err := rows.Scan(&a.ID, &a.OpportunityID, &a.VolunteerID, &a.Active, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *assignmentRepository) ListActiveWithOpportunitiesByVolunteerID(ctx context.Context, volunteerID string) ([]*domain.AssignmentWithOpportunity, error) {
	query := `
		SELECT a.id, a.opportunity_id, a.volunteer_id, a.active, a.assigned_at,
			o.id, o.title, o.description, o.location, o.tags, o.status, o.priority,
			o.event_start, o.duration_minutes, o.max_volunteers, o.current_volunteers,
			o.owner_id, o.created_at, o.updated_at, o.resolved_at, o.closed_at
		FROM assignments a
		JOIN opportunities o ON o.id = a.opportunity_id
		WHERE a.volunteer_id = $1 AND a.active
		ORDER BY a.assigned_at DESC
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.AssignmentWithOpportunity, 0)
	for rows.Next() {
		a := &domain.Assignment{}
		o := &domain.Opportunity{}
		var resolvedNull, closedNull sql.NullTime
		err := rows.Scan(
			&a.ID, &a.OpportunityID, &a.VolunteerID, &a.Active, &a.AssignedAt,
			&o.ID, &o.Title, &o.Description, &o.Location, pq.Array(&o.Tags),
			&o.Status, &o.Priority, &o.EventStart, &o.DurationMinutes,
			&o.MaxVolunteers, &o.CurrentVolunteers, &o.OwnerID,
			&o.CreatedAt, &o.UpdatedAt, &resolvedNull, &closedNull,
		)
		if err != nil {
			return nil, err
		}
		if resolvedNull.Valid {
			o.ResolvedAt = &resolvedNull.Time
		}
		if closedNull.Valid {
			o.ClosedAt = &closedNull.Time
		}
		result = append(result, &domain.AssignmentWithOpportunity{Assignment: a, Opportunity: o})
	}
	return result, rows.Err()
}

func (r *assignmentRepository) CountActiveByOpportunityID(ctx context.Context, opportunityID string) (int, error) {
	query := `
		SELECT count(*)
		FROM assignments
		WHERE opportunity_id = $1 AND active
	`
	var count int
	if err := q(ctx, r.DB).QueryRowContext(ctx, query, opportunityID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *assignmentRepository) CountDistinctVolunteersByOpportunityID(ctx context.Context, opportunityID string) (int, error) {
	query := `
		SELECT count(DISTINCT volunteer_id)
		FROM assignments
		WHERE opportunity_id = $1
	`
	var count int
	if err := q(ctx, r.DB).QueryRowContext(ctx, query, opportunityID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *assignmentRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE assignments
		SET active = FALSE
		WHERE id = $1 AND active
	`
	result, err := q(ctx, r.DB).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
