package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OtpStatus string

const (
	OtpPending  OtpStatus = "pending"
	OtpShared   OtpStatus = "shared"
	OtpConsumed OtpStatus = "consumed"
	OtpExpired  OtpStatus = "expired"
)

const (
	// DefenseReported marks a session expired by the cardholder before
	// the attacker could settle.
	DefenseReported = "reported_by_cardholder"
)

type OtpSession struct {
	ID            string          `json:"id"`
	CardID        string          `json:"card_id"`
	UserID        string          `json:"user_id"`
	Code          string          `json:"-"`
	Merchant      string          `json:"merchant"`
	AmountTarget  decimal.Decimal `json:"amount_target"`
	Status        OtpStatus       `json:"status"`
	AttackerNote  *string         `json:"attacker_note,omitempty"`
	DefenseAction *string         `json:"defense_action,omitempty"`
	DefenseReason *string         `json:"defense_reason,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
	UserSharedAt  *time.Time      `json:"user_shared_at,omitempty"`
	ConsumedAt    *time.Time      `json:"consumed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Terminal reports whether the session accepts further writes.
func (s *OtpSession) Terminal() bool {
	return s.Status == OtpConsumed || s.Status == OtpExpired
}

// ExpiredBy reports whether the TTL has lapsed at the given instant.
// Expiry is lazy: callers flip the row before acting on it.
func (s *OtpSession) ExpiredBy(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
