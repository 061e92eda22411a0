package models

import "time"

type UnlockStatus string

const (
	UnlockPending  UnlockStatus = "pending"
	UnlockVerified UnlockStatus = "verified"
	UnlockExpired  UnlockStatus = "expired"
	UnlockFailed   UnlockStatus = "failed"
)

// MaxUnlockAttempts is the hard lockout threshold for a single request.
const MaxUnlockAttempts = 5

type CardUnlockRequest struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	CardID     string       `json:"card_id"`
	Code       string       `json:"-"`
	Status     UnlockStatus `json:"status"`
	Attempts   int          `json:"attempts"`
	ExpiresAt  time.Time    `json:"expires_at"`
	VerifiedAt *time.Time   `json:"verified_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (r *CardUnlockRequest) Terminal() bool {
	return r.Status != UnlockPending
}

func (r *CardUnlockRequest) ExpiredBy(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
