package postgres

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/google/uuid"
)

type cardsRepo struct{ db DB }

const cardCols = `id, request_id, user_id, number, expiry, cvv, credit_limit::text, status, leaked_at, leak_notes, created_at, updated_at`

func (r *cardsRepo) scan(row interface{ Scan(...any) error }) (models.CreditCard, error) {
	var c models.CreditCard
	var limit string
	err := row.Scan(
		&c.ID, &c.RequestID, &c.UserID, &c.Number, &c.Expiry, &c.CVV,
		&limit, &c.Status, &c.LeakedAt, &c.LeakNotes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return models.CreditCard{}, mapNotFound(err)
	}
	c.CreditLimit, err = parseDec(limit)
	return c, err
}

func (r *cardsRepo) Create(ctx context.Context, card models.CreditCard) (models.CreditCard, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	return r.scan(r.db.QueryRow(ctx,
		`INSERT INTO credit_cards(id, request_id, user_id, number, expiry, cvv, credit_limit, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+cardCols,
		card.ID, card.RequestID, card.UserID, card.Number, card.Expiry, card.CVV,
		card.CreditLimit.String(), card.Status,
	))
}

func (r *cardsRepo) GetByID(ctx context.Context, id string) (models.CreditCard, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+cardCols+` FROM credit_cards WHERE id=$1`, id))
}

func (r *cardsRepo) ListByUser(ctx context.Context, userID string) ([]models.CreditCard, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cardCols+` FROM credit_cards WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CreditCard
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkLeaked always re-stamps leaked_at and leak_notes; exposure metadata
// is never cleared and status stays untouched.
func (r *cardsRepo) MarkLeaked(ctx context.Context, id, note string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credit_cards SET leaked_at=$2, leak_notes=$3, updated_at=now() WHERE id=$1`,
		id, at, note,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *cardsRepo) Transition(ctx context.Context, id string, from []models.CardStatus, to models.CardStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credit_cards SET status=$2, updated_at=now() WHERE id=$1 AND status = ANY($3)`,
		id, to, statusStrings(from),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStale
	}
	return nil
}

func statusStrings(in []models.CardStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
