package postgres

import (
	"context"

	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/google/uuid"
)

type ledgerRepo struct{ db DB }

func (r *ledgerRepo) Create(ctx context.Context, t models.LedgerTransaction) (models.LedgerTransaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var amount string
	err := r.db.QueryRow(ctx,
		`INSERT INTO ledger_transactions(id, from_user_id, to_user_id, amount, type, status, description)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id, from_user_id, to_user_id, amount::text, type, status, description, created_at`,
		t.ID, t.FromUserID, t.ToUserID, t.Amount.String(), t.Type, t.Status, t.Description,
	).Scan(&t.ID, &t.FromUserID, &t.ToUserID, &amount, &t.Type, &t.Status, &t.Description, &t.CreatedAt)
	if err != nil {
		return models.LedgerTransaction{}, err
	}
	t.Amount, err = parseDec(amount)
	return t, err
}
