package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CardStatus string

const (
	CardActive      CardStatus = "active"
	CardBlocked     CardStatus = "blocked"
	CardCompromised CardStatus = "compromised"
)

type CreditCard struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id"`
	UserID      string          `json:"user_id"`
	Number      string          `json:"number"`
	Expiry      string          `json:"expiry"` // MM/YY
	CVV         string          `json:"-"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Status      CardStatus      `json:"status"`
	LeakedAt    *time.Time      `json:"leaked_at,omitempty"`
	LeakNotes   *string         `json:"leak_notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Leaked reports whether the card's details were ever exposed.
// Leaking alone never changes Status; only OTP events do.
func (c *CreditCard) Leaked() bool { return c.LeakedAt != nil }
