package postgres

import (
	"context"

	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/google/uuid"
)

type fraudTransactionsRepo struct{ db DB }

const fraudCols = `id, session_id, card_id, merchant, amount::text, status, description, created_at`

func (r *fraudTransactionsRepo) scan(row interface{ Scan(...any) error }) (models.FraudTransaction, error) {
	var ft models.FraudTransaction
	var amount string
	err := row.Scan(&ft.ID, &ft.SessionID, &ft.CardID, &ft.Merchant, &amount, &ft.Status, &ft.Description, &ft.CreatedAt)
	if err != nil {
		return models.FraudTransaction{}, mapNotFound(err)
	}
	ft.Amount, err = parseDec(amount)
	return ft, err
}

func (r *fraudTransactionsRepo) Create(ctx context.Context, ft models.FraudTransaction) (models.FraudTransaction, error) {
	if ft.ID == "" {
		ft.ID = uuid.NewString()
	}
	return r.scan(r.db.QueryRow(ctx,
		`INSERT INTO fraud_transactions(id, session_id, card_id, merchant, amount, status, description)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+fraudCols,
		ft.ID, ft.SessionID, ft.CardID, ft.Merchant, ft.Amount.String(), ft.Status, ft.Description,
	))
}

func (r *fraudTransactionsRepo) ListBySession(ctx context.Context, sessionID string) ([]models.FraudTransaction, error) {
	return r.list(ctx,
		`SELECT `+fraudCols+` FROM fraud_transactions WHERE session_id=$1 ORDER BY created_at DESC`,
		sessionID)
}

func (r *fraudTransactionsRepo) List(ctx context.Context, limit, offset int) ([]models.FraudTransaction, error) {
	return r.list(ctx,
		`SELECT `+fraudCols+` FROM fraud_transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (r *fraudTransactionsRepo) list(ctx context.Context, q string, args ...any) ([]models.FraudTransaction, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FraudTransaction
	for rows.Next() {
		ft, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, rows.Err()
}
