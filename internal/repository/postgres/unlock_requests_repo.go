package postgres

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/google/uuid"
)

type unlockRequestsRepo struct{ db DB }

const unlockCols = `id, user_id, card_id, code, status, attempts, expires_at, verified_at, created_at, updated_at`

func (r *unlockRequestsRepo) scan(row interface{ Scan(...any) error }) (models.CardUnlockRequest, error) {
	var u models.CardUnlockRequest
	err := row.Scan(&u.ID, &u.UserID, &u.CardID, &u.Code, &u.Status, &u.Attempts, &u.ExpiresAt, &u.VerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.CardUnlockRequest{}, mapNotFound(err)
	}
	return u, nil
}

func (r *unlockRequestsRepo) Create(ctx context.Context, u models.CardUnlockRequest) (models.CardUnlockRequest, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return r.scan(r.db.QueryRow(ctx,
		`INSERT INTO card_unlock_requests(id, user_id, card_id, code, status, attempts, expires_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+unlockCols,
		u.ID, u.UserID, u.CardID, u.Code, u.Status, u.Attempts, u.ExpiresAt,
	))
}

func (r *unlockRequestsRepo) GetByID(ctx context.Context, id string) (models.CardUnlockRequest, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+unlockCols+` FROM card_unlock_requests WHERE id=$1`, id))
}

func (r *unlockRequestsRepo) FindPending(ctx context.Context, userID, cardID string, now time.Time) (models.CardUnlockRequest, error) {
	return r.scan(r.db.QueryRow(ctx,
		`SELECT `+unlockCols+` FROM card_unlock_requests
		  WHERE user_id=$1 AND card_id=$2 AND status='pending' AND expires_at > $3
		  ORDER BY created_at DESC LIMIT 1`,
		userID, cardID, now,
	))
}

func (r *unlockRequestsRepo) LatestByUserCard(ctx context.Context, userID, cardID string) (models.CardUnlockRequest, error) {
	return r.scan(r.db.QueryRow(ctx,
		`SELECT `+unlockCols+` FROM card_unlock_requests
		  WHERE user_id=$1 AND card_id=$2
		  ORDER BY created_at DESC LIMIT 1`,
		userID, cardID,
	))
}

func (r *unlockRequestsRepo) ExpireLapsed(ctx context.Context, userID, cardID string, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE card_unlock_requests SET status='expired', updated_at=now()
		  WHERE user_id=$1 AND card_id=$2 AND status='pending' AND expires_at <= $3`,
		userID, cardID, now,
	)
	return err
}

func (r *unlockRequestsRepo) MarkVerified(ctx context.Context, id string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE card_unlock_requests SET status='verified', verified_at=$2, updated_at=now()
		  WHERE id=$1 AND status='pending' AND expires_at > $2`,
		id, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStale
	}
	return nil
}

// RecordFailedAttempt counts the miss and applies the hard lockout in one
// statement, so the 5th wrong code and the failed flip are a single write.
func (r *unlockRequestsRepo) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int) (models.CardUnlockRequest, error) {
	u, err := r.scan(r.db.QueryRow(ctx,
		`UPDATE card_unlock_requests
		    SET attempts = attempts + 1,
		        status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE status END,
		        updated_at = now()
		  WHERE id=$1 AND status='pending'
		  RETURNING `+unlockCols,
		id, maxAttempts,
	))
	if err == repo.ErrNotFound {
		return models.CardUnlockRequest{}, repo.ErrStale
	}
	return u, err
}

func (r *unlockRequestsRepo) ExpireSiblings(ctx context.Context, cardID, winnerID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE card_unlock_requests SET status='expired', updated_at=now()
		  WHERE card_id=$1 AND id <> $2 AND status='pending'`,
		cardID, winnerID,
	)
	return err
}
