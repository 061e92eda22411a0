package services

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/cardnum"
	"github.com/fraudlab/cardsim-backend/internal/metrics"
	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/fraudlab/cardsim-backend/internal/notify"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/fraudlab/cardsim-backend/internal/worker"
	"github.com/shopspring/decimal"
)

type OtpService struct {
	uow      repo.UnitOfWork
	r        repo.Repositories
	notifier notify.Notifier
	wp       *worker.Pool
	ttl      time.Duration
	now      func() time.Time
}

func NewOtpService(uow repo.UnitOfWork, r repo.Repositories, n notify.Notifier, wp *worker.Pool, ttl time.Duration) *OtpService {
	if n == nil {
		n = notify.Noop{}
	}
	return &OtpService{uow: uow, r: r, notifier: n, wp: wp, ttl: ttl, now: time.Now}
}

// PendingOtp pairs a session with its code: the simulated SMS the
// cardholder receives. Only non-terminal sessions ever reach this shape.
type PendingOtp struct {
	models.OtpSession
	Code string `json:"code"`
}

// Initiate opens a challenge against a leaked card. If an active session
// already exists it is returned unchanged, so racing attacker scripts
// cannot pile up duplicates.
func (s *OtpService) Initiate(ctx context.Context, actorID, cardID, merchant string, amountTarget decimal.Decimal, note string) (models.OtpSession, error) {
	if merchant == "" {
		return models.OtpSession{}, apperr.Validation("invalid_input", "merchant required")
	}
	if !amountTarget.IsPositive() {
		return models.OtpSession{}, apperr.Validation("invalid_input", "amount_target must be > 0")
	}

	now := s.now()
	var session models.OtpSession
	var deduped bool
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		card, err := r.Cards.GetByID(ctx, cardID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("card_not_found", "unknown card")
		}
		if err != nil {
			return err
		}
		if !card.Leaked() {
			return apperr.Validation("card_not_leaked", "card details have not been leaked")
		}
		if err := r.OtpSessions.ExpireLapsed(ctx, now); err != nil {
			return err
		}
		existing, err := r.OtpSessions.FindActiveByCard(ctx, cardID, now)
		if err == nil {
			session, deduped = existing, true
			return nil
		}
		if err != repo.ErrNotFound {
			return err
		}
		var attackerNote *string
		if note != "" {
			attackerNote = &note
		}
		session, err = r.OtpSessions.Create(ctx, models.OtpSession{
			CardID:       cardID,
			UserID:       card.UserID,
			Code:         cardnum.NewOTP(),
			Merchant:     merchant,
			AmountTarget: amountTarget.Round(2),
			Status:       models.OtpPending,
			AttackerNote: attackerNote,
			ExpiresAt:    now.Add(s.ttl),
		})
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "otp_session", session.ID, "initiated", map[string]any{
			"card_id":  cardID,
			"merchant": merchant,
			"amount":   amountTarget.String(),
		})
	})
	if err != nil {
		return models.OtpSession{}, apperr.From(err)
	}
	if !deduped {
		metrics.OtpSessionsTotal.WithLabelValues("initiated").Inc()
	}
	return session, nil
}

// Share is the victim typing the code back: the only transition that
// makes a later settlement legal.
func (s *OtpService) Share(ctx context.Context, actorID, sessionID, suppliedCode string) (models.OtpSession, error) {
	now := s.now()
	var session models.OtpSession
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		sess, err := r.OtpSessions.GetByID(ctx, sessionID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("session_not_found", "unknown otp session")
		}
		if err != nil {
			return err
		}
		if sess.UserID != actorID {
			return apperr.Forbidden("not_owner", "session belongs to a different cardholder")
		}
		if sess.Terminal() {
			return apperr.Conflict("otp_terminal", "otp session is no longer active")
		}
		if sess.ExpiredBy(now) {
			if err := r.OtpSessions.ExpireLapsed(ctx, now); err != nil {
				return err
			}
			return apperr.Conflict("otp_expired", "otp session expired")
		}
		if sess.Code != suppliedCode {
			return apperr.Unauthorized("otp_mismatch", "wrong otp code")
		}
		if err := r.OtpSessions.MarkShared(ctx, sessionID, now); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("otp_terminal", "otp session is no longer active")
			}
			return err
		}
		session, err = r.OtpSessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "otp_session", sessionID, "shared", nil)
	})
	if err != nil {
		return models.OtpSession{}, apperr.From(err)
	}
	metrics.OtpSessionsTotal.WithLabelValues("shared").Inc()
	return session, nil
}

// Report is the victim's defense. It races Consume on the same shared
// row; the guarded update decides the winner and the loser sees a
// conflict, never a partial effect.
func (s *OtpService) Report(ctx context.Context, actorID, sessionID, reason string) (models.OtpSession, error) {
	now := s.now()
	var session models.OtpSession
	var card models.CreditCard
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		sess, err := r.OtpSessions.GetByID(ctx, sessionID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("session_not_found", "unknown otp session")
		}
		if err != nil {
			return err
		}
		if sess.UserID != actorID {
			return apperr.Forbidden("not_owner", "session belongs to a different cardholder")
		}
		if sess.Status == models.OtpConsumed {
			return apperr.Conflict("otp_consumed", "otp already consumed")
		}
		if sess.Status == models.OtpExpired {
			return apperr.Conflict("otp_expired", "otp session already expired")
		}

		if err := r.OtpSessions.ExpireWithDefense(ctx, sessionID, now, models.DefenseReported, reason); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("otp_consumed", "otp already consumed")
			}
			return err
		}
		card, err = r.Cards.GetByID(ctx, sess.CardID)
		if err != nil {
			return err
		}
		if card.Status != models.CardBlocked {
			if err := r.Cards.Transition(ctx, sess.CardID,
				[]models.CardStatus{models.CardActive, models.CardCompromised}, models.CardBlocked); err != nil {
				return err
			}
			card.Status = models.CardBlocked
		}
		if _, err := r.FraudTransactions.Create(ctx, models.FraudTransaction{
			SessionID:   sessionID,
			CardID:      sess.CardID,
			Merchant:    sess.Merchant,
			Amount:      sess.AmountTarget,
			Status:      models.FraudFailed,
			Description: "blocked by cardholder report: " + reason,
		}); err != nil {
			return err
		}
		if err := auditLog(ctx, r, actorID, "otp_session", sessionID, "reported", map[string]any{"reason": reason}); err != nil {
			return err
		}
		if err := auditLog(ctx, r, actorID, "credit_card", sess.CardID, "holder_notified", map[string]any{
			"merchant": sess.Merchant,
			"amount":   sess.AmountTarget.String(),
		}); err != nil {
			return err
		}
		session, err = r.OtpSessions.GetByID(ctx, sessionID)
		return err
	})
	if err != nil {
		return models.OtpSession{}, apperr.From(err)
	}

	metrics.OtpSessionsTotal.WithLabelValues("reported").Inc()
	metrics.CardsBlockedTotal.Inc()
	s.publish(notify.Event{
		Kind:   "card_blocked",
		UserID: session.UserID,
		CardID: session.CardID,
		Details: map[string]any{
			"session_id": session.ID,
			"reason":     reason,
		},
	})
	return session, nil
}

// PendingForUser lists the actor's active sessions, flipping lapsed ones
// first. Codes are exposed here and only here: this is the simulated SMS.
func (s *OtpService) PendingForUser(ctx context.Context, userID string) ([]PendingOtp, error) {
	now := s.now()
	if err := s.r.OtpSessions.ExpireLapsed(ctx, now); err != nil {
		return nil, apperr.Internal(err)
	}
	sessions, err := s.r.OtpSessions.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]PendingOtp, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, PendingOtp{OtpSession: sess, Code: sess.Code})
	}
	return out, nil
}

func (s *OtpService) publish(ev notify.Event) {
	if s.wp != nil {
		s.wp.Submit(func() { s.notifier.Publish(ev) })
		return
	}
	s.notifier.Publish(ev)
}
