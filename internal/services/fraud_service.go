package services

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/metrics"
	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/fraudlab/cardsim-backend/internal/notify"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/fraudlab/cardsim-backend/internal/worker"
	"github.com/shopspring/decimal"
)

type FraudService struct {
	uow      repo.UnitOfWork
	r        repo.Repositories
	notifier notify.Notifier
	wp       *worker.Pool
	now      func() time.Time
}

func NewFraudService(uow repo.UnitOfWork, r repo.Repositories, n notify.Notifier, wp *worker.Pool) *FraudService {
	if n == nil {
		n = notify.Noop{}
	}
	return &FraudService{uow: uow, r: r, notifier: n, wp: wp, now: time.Now}
}

// PayResult reports the settlement and both post-transaction balances.
type PayResult struct {
	Transaction     models.FraudTransaction `json:"transaction"`
	Amount          decimal.Decimal         `json:"amount"`
	VictimBalance   decimal.Decimal         `json:"victim_balance"`
	MerchantBalance decimal.Decimal         `json:"merchant_balance"`
}

// Pay settles a captured OTP. Every effect — session consumption, the
// balance movement, the ledger row, the card flip and the audit trail —
// commits in one transaction or not at all.
func (s *FraudService) Pay(ctx context.Context, actorID, sessionID, suppliedCode, merchant string, amount *decimal.Decimal, description string) (PayResult, error) {
	now := s.now()
	var out PayResult
	var victimID string
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		if err := r.OtpSessions.ExpireLapsed(ctx, now); err != nil {
			return err
		}
		sess, err := r.OtpSessions.GetByID(ctx, sessionID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("session_not_found", "unknown otp session")
		}
		if err != nil {
			return err
		}
		card, err := r.Cards.GetByID(ctx, sess.CardID)
		if err != nil {
			return err
		}
		if card.Status == models.CardBlocked {
			return apperr.Forbidden("card_blocked", "card is blocked")
		}
		switch sess.Status {
		case models.OtpConsumed:
			return apperr.Conflict("otp_consumed", "otp already consumed")
		case models.OtpExpired:
			return apperr.Conflict("otp_expired", "otp session expired")
		case models.OtpPending:
			return apperr.Validation("otp_not_shared", "victim has not shared the otp yet")
		}
		if sess.Code != suppliedCode {
			return apperr.Unauthorized("otp_mismatch", "wrong otp code")
		}

		settle := sess.AmountTarget
		if amount != nil {
			settle = *amount
		}
		if !settle.IsPositive() {
			return apperr.Validation("invalid_amount", "amount must be > 0")
		}
		settle = settle.Round(2)

		payee := sess.Merchant
		if merchant != "" {
			payee = merchant
		}

		// Claim the session first. If the cardholder's report won the
		// race this matches no row and the whole settlement aborts.
		if err := r.OtpSessions.Consume(ctx, sessionID, now); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("otp_conflict", "otp session changed state")
			}
			return err
		}

		merchantAcct, err := r.Users.GetOrCreateMerchant(ctx)
		if err != nil {
			return err
		}
		victim, err := r.Users.AdjustBalance(ctx, sess.UserID, settle.Neg())
		if err != nil {
			return err
		}
		victimID = victim.ID
		merchantAcct, err = r.Users.AdjustBalance(ctx, merchantAcct.ID, settle)
		if err != nil {
			return err
		}

		ft, err := r.FraudTransactions.Create(ctx, models.FraudTransaction{
			SessionID:   sessionID,
			CardID:      sess.CardID,
			Merchant:    payee,
			Amount:      settle,
			Status:      models.FraudSuccess,
			Description: description,
		})
		if err != nil {
			return err
		}
		if _, err := r.Ledger.Create(ctx, models.LedgerTransaction{
			FromUserID:  &victim.ID,
			ToUserID:    &merchantAcct.ID,
			Amount:      settle,
			Type:        models.LedgerTransfer,
			Status:      models.LedgerCompleted,
			Description: "fraud settlement " + ft.ID,
		}); err != nil {
			return err
		}
		if err := r.Cards.Transition(ctx, sess.CardID,
			[]models.CardStatus{models.CardActive, models.CardCompromised}, models.CardCompromised); err != nil {
			return err
		}

		for _, entry := range []struct {
			entity, id, action string
			details            map[string]any
		}{
			{"fraud_transaction", ft.ID, "fraud_executed", map[string]any{"amount": settle.String(), "merchant": payee}},
			{"user", victim.ID, "account_debited", map[string]any{"amount": settle.String(), "balance": victim.Balance.String()}},
			{"user", merchantAcct.ID, "merchant_credited", map[string]any{"amount": settle.String(), "balance": merchantAcct.Balance.String()}},
		} {
			if err := auditLog(ctx, r, actorID, entry.entity, entry.id, entry.action, entry.details); err != nil {
				return err
			}
		}

		out = PayResult{
			Transaction:     ft,
			Amount:          settle,
			VictimBalance:   victim.Balance,
			MerchantBalance: merchantAcct.Balance,
		}
		return nil
	})
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues("failed").Inc()
		return PayResult{}, apperr.From(err)
	}

	metrics.SettlementsTotal.WithLabelValues("success").Inc()
	s.publish(notify.Event{
		Kind:   "fraud_settled",
		UserID: victimID,
		CardID: out.Transaction.CardID,
		Details: map[string]any{
			"session_id": sessionID,
			"amount":     out.Amount.String(),
			"merchant":   out.Transaction.Merchant,
		},
	})
	return out, nil
}

func (s *FraudService) ListBySession(ctx context.Context, sessionID string) ([]models.FraudTransaction, error) {
	out, err := s.r.FraudTransactions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *FraudService) ListTransactions(ctx context.Context, limit, offset int) ([]models.FraudTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.r.FraudTransactions.List(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *FraudService) publish(ev notify.Event) {
	if s.wp != nil {
		s.wp.Submit(func() { s.notifier.Publish(ev) })
		return
	}
	s.notifier.Publish(ev)
}
