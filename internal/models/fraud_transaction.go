package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FraudStatus string

const (
	FraudSuccess FraudStatus = "success"
	FraudFailed  FraudStatus = "failed"
)

// FraudTransaction is the immutable record of a settlement attempt.
// A success row implies money moved; a failed row is either a blocked
// attempt or an explicit defensive block.
type FraudTransaction struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	CardID      string          `json:"card_id"`
	Merchant    string          `json:"merchant"`
	Amount      decimal.Decimal `json:"amount"`
	Status      FraudStatus     `json:"status"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
