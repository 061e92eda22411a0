package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStale is returned when a guarded transition matched no row: the
	// status changed under the caller and the operation lost the race.
	ErrStale = errors.New("stale status")
)

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string, balance decimal.Decimal) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// GetOrCreateMerchant resolves the singleton account that receives
	// fraud proceeds, creating it on first use.
	GetOrCreateMerchant(ctx context.Context) (models.User, error)
	// AdjustBalance applies a signed delta and returns the updated row.
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (models.User, error)
}

type CreditRequests interface {
	Create(ctx context.Context, req models.CreditRequest) (models.CreditRequest, error)
	GetByID(ctx context.Context, id string) (models.CreditRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.CreditRequest, error)
	// Decide flips the request to approved/rejected. Guarded: an already
	// approved request matches no row and yields ErrStale.
	Decide(ctx context.Context, id string, to models.RequestStatus, notes *string) error
}

type Cards interface {
	Create(ctx context.Context, card models.CreditCard) (models.CreditCard, error)
	GetByID(ctx context.Context, id string) (models.CreditCard, error)
	ListByUser(ctx context.Context, userID string) ([]models.CreditCard, error)
	// MarkLeaked stamps exposure metadata. Status is never touched here.
	MarkLeaked(ctx context.Context, id, note string, at time.Time) error
	// Transition moves the card to a new status only if the current one
	// is in from; ErrStale otherwise.
	Transition(ctx context.Context, id string, from []models.CardStatus, to models.CardStatus) error
}

type OtpSessions interface {
	Create(ctx context.Context, s models.OtpSession) (models.OtpSession, error)
	GetByID(ctx context.Context, id string) (models.OtpSession, error)
	// FindActiveByCard returns the pending/shared unexpired session for a
	// card, ErrNotFound when there is none. At most one can exist.
	FindActiveByCard(ctx context.Context, cardID string, now time.Time) (models.OtpSession, error)
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.OtpSession, error)
	// ExpireLapsed lazily flips every pending/shared session whose TTL
	// has passed. Read paths call this before evaluating state.
	ExpireLapsed(ctx context.Context, now time.Time) error
	// MarkShared: pending -> shared, guarded on status and TTL.
	MarkShared(ctx context.Context, id string, now time.Time) error
	// Consume: shared -> consumed, guarded on status and TTL. This is the
	// attacker side of the report/consume race.
	Consume(ctx context.Context, id string, now time.Time) error
	// ExpireWithDefense: pending/shared -> expired with the structured
	// defense marker set and the TTL cut to now. The victim side of the race.
	ExpireWithDefense(ctx context.Context, id string, now time.Time, action, reason string) error
}

type FraudTransactions interface {
	Create(ctx context.Context, ft models.FraudTransaction) (models.FraudTransaction, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.FraudTransaction, error)
	List(ctx context.Context, limit, offset int) ([]models.FraudTransaction, error)
}

type UnlockRequests interface {
	Create(ctx context.Context, r models.CardUnlockRequest) (models.CardUnlockRequest, error)
	GetByID(ctx context.Context, id string) (models.CardUnlockRequest, error)
	// FindPending returns the unexpired pending request for (user, card).
	FindPending(ctx context.Context, userID, cardID string, now time.Time) (models.CardUnlockRequest, error)
	LatestByUserCard(ctx context.Context, userID, cardID string) (models.CardUnlockRequest, error)
	ExpireLapsed(ctx context.Context, userID, cardID string, now time.Time) error
	// MarkVerified: pending -> verified, guarded on status and TTL.
	MarkVerified(ctx context.Context, id string, now time.Time) error
	// RecordFailedAttempt increments attempts and flips the request to
	// failed in the same statement once maxAttempts is reached.
	RecordFailedAttempt(ctx context.Context, id string, maxAttempts int) (models.CardUnlockRequest, error)
	// ExpireSiblings invalidates every other still-pending request for
	// the card after one of them wins.
	ExpireSiblings(ctx context.Context, cardID, winnerID string) error
}

type Ledger interface {
	Create(ctx context.Context, t models.LedgerTransaction) (models.LedgerTransaction, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Repositories bundles every aggregate repository bound to one querier,
// either the shared pool or a single transaction.
type Repositories struct {
	Users             Users
	CreditRequests    CreditRequests
	Cards             Cards
	OtpSessions       OtpSessions
	FraudTransactions FraudTransactions
	UnlockRequests    UnlockRequests
	Ledger            Ledger
	AuditLogs         AuditLogs
}

// UnitOfWork runs fn against a transaction-bound Repositories bundle.
// Commit on nil, rollback on error or panic; partial effects are never
// observable outside fn.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(Repositories) error) error
}
