package postgres

import (
	"context"

	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/google/uuid"
)

type creditRequestsRepo struct{ db DB }

const creditRequestCols = `id, user_id, full_name, email, phone, national_id, date_of_birth, monthly_income, status, decision_notes, created_at, updated_at`

func (r *creditRequestsRepo) scan(row interface{ Scan(...any) error }) (models.CreditRequest, error) {
	var cr models.CreditRequest
	err := row.Scan(
		&cr.ID, &cr.UserID,
		&cr.Profile.FullName, &cr.Profile.Email, &cr.Profile.Phone, &cr.Profile.NationalID, &cr.Profile.DateOfBirth,
		&cr.MonthlyIncome, &cr.Status, &cr.DecisionNotes, &cr.CreatedAt, &cr.UpdatedAt,
	)
	if err != nil {
		return models.CreditRequest{}, mapNotFound(err)
	}
	return cr, nil
}

func (r *creditRequestsRepo) Create(ctx context.Context, req models.CreditRequest) (models.CreditRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return r.scan(r.db.QueryRow(ctx,
		`INSERT INTO credit_requests(id, user_id, full_name, email, phone, national_id, date_of_birth, monthly_income, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+creditRequestCols,
		req.ID, req.UserID,
		req.Profile.FullName, req.Profile.Email, req.Profile.Phone, req.Profile.NationalID, req.Profile.DateOfBirth,
		req.MonthlyIncome, req.Status,
	))
}

func (r *creditRequestsRepo) GetByID(ctx context.Context, id string) (models.CreditRequest, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+creditRequestCols+` FROM credit_requests WHERE id=$1`, id))
}

func (r *creditRequestsRepo) ListByUser(ctx context.Context, userID string) ([]models.CreditRequest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+creditRequestCols+` FROM credit_requests WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CreditRequest
	for rows.Next() {
		cr, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// Decide is guarded: an already approved request matches no row.
func (r *creditRequestsRepo) Decide(ctx context.Context, id string, to models.RequestStatus, notes *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credit_requests
		    SET status=$2, decision_notes=$3, updated_at=now()
		  WHERE id=$1 AND status <> $4`,
		id, to, notes, models.RequestApproved,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStale
	}
	return nil
}
