package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"volunteerhub/internal/domain"
)

// feedback_records carries a unique constraint on (opportunity_id,
// volunteer_id); Create maps its violation to ErrDuplicateFeedback.

type feedbackRepository struct {
	DB *sql.DB
}

func NewFeedbackRepository(db *sql.DB) domain.FeedbackRepository {
	return &feedbackRepository{
		DB: db,
	}
}

func (r *feedbackRepository) Create(ctx context.Context, rec *domain.FeedbackRecord) error {
	query := `
		INSERT INTO feedback_records (opportunity_id, volunteer_id, organization_id, rating, feedback, skills, would_work_again, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := q(ctx, r.DB).QueryRowContext(ctx, query,
		rec.OpportunityID, rec.VolunteerID, rec.OrganizationID,
		rec.Rating, rec.Feedback, pq.Array(rec.Skills), rec.WouldWorkAgain, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrDuplicateFeedback
		}
		return err
	}
	return nil
}

func (r *feedbackRepository) CountByOpportunityID(ctx context.Context, opportunityID string) (int, error) {
	query := `
		SELECT count(*)
		FROM feedback_records
		WHERE opportunity_id = $1
	`
	var count int
	if err := q(ctx, r.DB).QueryRowContext(ctx, query, opportunityID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
