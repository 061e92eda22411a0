package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerType string

const (
	LedgerCredit   LedgerType = "credit"
	LedgerDebit    LedgerType = "debit"
	LedgerTransfer LedgerType = "transfer"
)

type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerCompleted LedgerStatus = "completed"
	LedgerFailed    LedgerStatus = "failed"
)

// LedgerTransaction is the double-entry record of a balance change,
// written in the same transaction as the movement it describes.
type LedgerTransaction struct {
	ID          string          `json:"id"`
	FromUserID  *string         `json:"from_user_id,omitempty"`
	ToUserID    *string         `json:"to_user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        LedgerType      `json:"type"`
	Status      LedgerStatus    `json:"status"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
