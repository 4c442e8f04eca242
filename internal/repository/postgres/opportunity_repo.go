package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"volunteerhub/internal/domain"
)

const opportunityColumns = `id, title, description, location, tags, status, priority, event_start, duration_minutes, max_volunteers, current_volunteers, owner_id, created_at, updated_at, resolved_at, closed_at`

type opportunityRepository struct {
	DB *sql.DB
}

func NewOpportunityRepository(db *sql.DB) domain.OpportunityRepository {
	return &opportunityRepository{
		DB: db,
	}
}

func (r *opportunityRepository) Create(ctx context.Context, o *domain.Opportunity) error {
	query := `
		INSERT INTO opportunities (title, description, location, tags, status, priority, event_start, duration_minutes, max_volunteers, current_volunteers, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return q(ctx, r.DB).QueryRowContext(ctx, query,
		o.Title, o.Description, o.Location, pq.Array(o.Tags), o.Status, o.Priority,
		o.EventStart, o.DurationMinutes, o.MaxVolunteers, o.CurrentVolunteers,
		o.OwnerID, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
}

func scanOpportunity(row interface{ Scan(...any) error }) (*domain.Opportunity, error) {
	o := &domain.Opportunity{}
	var resolvedNull, closedNull sql.NullTime
	err := row.Scan(
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
	return o, nil
}

func (r *opportunityRepository) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE id = $1
	`
	o, err := scanOpportunity(q(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *opportunityRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE id = $1
		FOR UPDATE
	`
	o, err := scanOpportunity(q(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *opportunityRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func (r *opportunityRepository) ListOpen(ctx context.Context, params domain.PaginationParams) ([]*domain.Opportunity, int, error) {
	var total int
	countQuery := `
		SELECT count(*)
		FROM opportunities
		WHERE status NOT IN ('resolved', 'closed')
	`
	if err := q(ctx, r.DB).QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE status NOT IN ('resolved', 'closed')
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				ELSE 3
			END,
			event_start ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	opps, err := collectOpportunities(rows)
	if err != nil {
		return nil, 0, err
	}
	return opps, total, nil
}

func collectOpportunities(rows *sql.Rows) ([]*domain.Opportunity, error) {
	opps := make([]*domain.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func (r *opportunityRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, ts domain.StatusTimestamps) (*domain.Opportunity, error) {
	query := `
		UPDATE opportunities
		SET status = $1, resolved_at = $2, closed_at = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + opportunityColumns + `
	`
	var resolvedArg, closedArg any
	if ts.ResolvedAt != nil {
		resolvedArg = *ts.ResolvedAt
	}
	if ts.ClosedAt != nil {
		closedArg = *ts.ClosedAt
	}
	o, err := scanOpportunity(q(ctx, r.DB).QueryRowContext(ctx, query, status, resolvedArg, closedArg, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *opportunityRepository) UpdateCapacityAndStatus(ctx context.Context, id string, maxVolunteers int, status domain.Status) (*domain.Opportunity, error) {
	query := `
		UPDATE opportunities
		SET max_volunteers = $1, status = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + opportunityColumns + `
	`
	o, err := scanOpportunity(q(ctx, r.DB).QueryRowContext(ctx, query, maxVolunteers, status, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *opportunityRepository) SetVolunteerCount(ctx context.Context, id string, count int, status domain.Status) error {
	query := `
		UPDATE opportunities
		SET current_volunteers = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := q(ctx, r.DB).ExecContext(ctx, query, count, status, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
