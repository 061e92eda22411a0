package postgres

import (
	"context"
	"fmt"

	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DB is the querier shared by pool- and tx-bound repositories.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Repos returns a bundle bound to the shared pool.
func (s *Store) Repos() repo.Repositories { return bind(s.pool) }

// WithTx opens one serializable transaction, hands fn a tx-bound bundle
// and commits only if fn returns nil. A panic rolls back and re-panics.
func (s *Store) WithTx(ctx context.Context, fn func(repo.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()
	if err := fn(bind(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func bind(q DB) repo.Repositories {
	return repo.Repositories{
		Users:             &usersRepo{q},
		CreditRequests:    &creditRequestsRepo{q},
		Cards:             &cardsRepo{q},
		OtpSessions:       &otpSessionsRepo{q},
		FraudTransactions: &fraudTransactionsRepo{q},
		UnlockRequests:    &unlockRequestsRepo{q},
		Ledger:            &ledgerRepo{q},
		AuditLogs:         &auditLogsRepo{q},
	}
}

// parseDec converts a NUMERIC column selected as text.
func parseDec(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

func mapNotFound(err error) error {
	if err == pgx.ErrNoRows {
		return repo.ErrNotFound
	}
	return err
}
