package postgres

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/google/uuid"
)

type otpSessionsRepo struct{ db DB }

const otpCols = `id, card_id, user_id, code, merchant, amount_target::text, status, attacker_note, defense_action, defense_reason, expires_at, user_shared_at, consumed_at, created_at, updated_at`

func (r *otpSessionsRepo) scan(row interface{ Scan(...any) error }) (models.OtpSession, error) {
	var s models.OtpSession
	var amount string
	err := row.Scan(
		&s.ID, &s.CardID, &s.UserID, &s.Code, &s.Merchant, &amount, &s.Status,
		&s.AttackerNote, &s.DefenseAction, &s.DefenseReason,
		&s.ExpiresAt, &s.UserSharedAt, &s.ConsumedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return models.OtpSession{}, mapNotFound(err)
	}
	s.AmountTarget, err = parseDec(amount)
	return s, err
}

func (r *otpSessionsRepo) Create(ctx context.Context, s models.OtpSession) (models.OtpSession, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return r.scan(r.db.QueryRow(ctx,
		`INSERT INTO otp_sessions(id, card_id, user_id, code, merchant, amount_target, status, attacker_note, expires_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+otpCols,
		s.ID, s.CardID, s.UserID, s.Code, s.Merchant, s.AmountTarget.String(), s.Status, s.AttackerNote, s.ExpiresAt,
	))
}

func (r *otpSessionsRepo) GetByID(ctx context.Context, id string) (models.OtpSession, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+otpCols+` FROM otp_sessions WHERE id=$1`, id))
}

func (r *otpSessionsRepo) FindActiveByCard(ctx context.Context, cardID string, now time.Time) (models.OtpSession, error) {
	return r.scan(r.db.QueryRow(ctx,
		`SELECT `+otpCols+` FROM otp_sessions
		  WHERE card_id=$1 AND status IN ('pending','shared') AND expires_at > $2
		  ORDER BY created_at DESC LIMIT 1`,
		cardID, now,
	))
}

func (r *otpSessionsRepo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.OtpSession, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+otpCols+` FROM otp_sessions
		  WHERE user_id=$1 AND status IN ('pending','shared') AND expires_at > $2
		  ORDER BY created_at DESC`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OtpSession
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *otpSessionsRepo) ExpireLapsed(ctx context.Context, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE otp_sessions SET status='expired', updated_at=now()
		  WHERE status IN ('pending','shared') AND expires_at <= $1`,
		now,
	)
	return err
}

func (r *otpSessionsRepo) MarkShared(ctx context.Context, id string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE otp_sessions SET status='shared', user_shared_at=$2, updated_at=now()
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

// Consume transitions shared -> consumed. The status guard is evaluated
// atomically with the write so only one of consume/report ever commits.
func (r *otpSessionsRepo) Consume(ctx context.Context, id string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE otp_sessions SET status='consumed', consumed_at=$2, updated_at=now()
		  WHERE id=$1 AND status='shared' AND expires_at > $2`,
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

func (r *otpSessionsRepo) ExpireWithDefense(ctx context.Context, id string, now time.Time, action, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE otp_sessions
		    SET status='expired', expires_at=$2, defense_action=$3, defense_reason=$4, updated_at=now()
		  WHERE id=$1 AND status IN ('pending','shared')`,
		id, now, action, reason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStale
	}
	return nil
}
