package services

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/cardnum"
	"github.com/fraudlab/cardsim-backend/internal/identity"
	"github.com/fraudlab/cardsim-backend/internal/metrics"
	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/fraudlab/cardsim-backend/internal/notify"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/fraudlab/cardsim-backend/internal/worker"
)

type UnlockService struct {
	uow      repo.UnitOfWork
	r        repo.Repositories
	notifier notify.Notifier
	wp       *worker.Pool
	ttl      time.Duration
	now      func() time.Time
}

func NewUnlockService(uow repo.UnitOfWork, r repo.Repositories, n notify.Notifier, wp *worker.Pool, ttl time.Duration) *UnlockService {
	if n == nil {
		n = notify.Noop{}
	}
	return &UnlockService{uow: uow, r: r, notifier: n, wp: wp, ttl: ttl, now: time.Now}
}

// UnlockStatus is the read shape: the code is exposed only while the
// request is still pending, never after it was used or invalidated.
type UnlockStatus struct {
	models.CardUnlockRequest
	Code string `json:"code,omitempty"`
}

// Request re-verifies identity against the card's originating credit
// request and hands out a fresh challenge, or the existing pending one.
func (s *UnlockService) Request(ctx context.Context, actorID, cardID string, in ProfileInput) (UnlockStatus, error) {
	profile, err := in.Parse()
	if err != nil {
		return UnlockStatus{}, err
	}

	now := s.now()
	var req models.CardUnlockRequest
	err = s.uow.WithTx(ctx, func(r repo.Repositories) error {
		card, err := r.Cards.GetByID(ctx, cardID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("card_not_found", "unknown card")
		}
		if err != nil {
			return err
		}
		if card.UserID != actorID {
			return apperr.Forbidden("not_owner", "card belongs to a different user")
		}
		if card.Status != models.CardBlocked {
			return apperr.Validation("card_not_blocked", "card is not blocked")
		}
		origin, err := r.CreditRequests.GetByID(ctx, card.RequestID)
		if err != nil {
			return err
		}
		if !identity.Match(origin.Profile, profile) {
			return apperr.Forbidden("identity_mismatch", "submitted profile does not match our records")
		}

		if err := r.UnlockRequests.ExpireLapsed(ctx, actorID, cardID, now); err != nil {
			return err
		}
		existing, err := r.UnlockRequests.FindPending(ctx, actorID, cardID, now)
		if err == nil {
			req = existing
			return nil
		}
		if err != repo.ErrNotFound {
			return err
		}
		req, err = r.UnlockRequests.Create(ctx, models.CardUnlockRequest{
			UserID:    actorID,
			CardID:    cardID,
			Code:      cardnum.NewOTP(),
			Status:    models.UnlockPending,
			Attempts:  0,
			ExpiresAt: now.Add(s.ttl),
		})
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "unlock_request", req.ID, "requested", map[string]any{"card_id": cardID})
	})
	if err != nil {
		return UnlockStatus{}, apperr.From(err)
	}
	return UnlockStatus{CardUnlockRequest: req, Code: req.Code}, nil
}

// Verify checks the supplied code. Misses are counted atomically and the
// fifth wrong code flips the request to failed in the same update.
func (s *UnlockService) Verify(ctx context.Context, actorID, requestID, suppliedCode string) (models.CardUnlockRequest, error) {
	now := s.now()
	var out models.CardUnlockRequest
	var outcome string
	var reinstated bool
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		req, err := r.UnlockRequests.GetByID(ctx, requestID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("unlock_not_found", "unknown unlock request")
		}
		if err != nil {
			return err
		}
		if req.UserID != actorID {
			return apperr.Forbidden("not_owner", "unlock request belongs to a different user")
		}
		switch req.Status {
		case models.UnlockVerified:
			// idempotent: re-verifying a verified request succeeds
			out, outcome = req, "verified"
			return nil
		case models.UnlockFailed:
			return apperr.Conflict("unlock_failed", "too many wrong codes, request a new one")
		case models.UnlockExpired:
			return apperr.Conflict("unlock_expired", "unlock request expired, request a new one")
		}
		if req.ExpiredBy(now) {
			if err := r.UnlockRequests.ExpireLapsed(ctx, req.UserID, req.CardID, now); err != nil {
				return err
			}
			outcome = "expired"
			return apperr.Conflict("unlock_expired", "unlock request expired, request a new one")
		}

		if req.Code != suppliedCode {
			updated, err := r.UnlockRequests.RecordFailedAttempt(ctx, requestID, models.MaxUnlockAttempts)
			if err != nil {
				if err == repo.ErrStale {
					return apperr.Conflict("unlock_failed", "too many wrong codes, request a new one")
				}
				return err
			}
			if updated.Status == models.UnlockFailed {
				outcome = "locked_out"
				return apperr.Unauthorized("unlock_locked", "wrong code, request locked, request a new one")
			}
			outcome = "mismatch"
			return apperr.Unauthorized("unlock_mismatch", "wrong code")
		}

		if err := r.UnlockRequests.MarkVerified(ctx, requestID, now); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("unlock_conflict", "unlock request changed state")
			}
			return err
		}
		if err := r.Cards.Transition(ctx, req.CardID,
			[]models.CardStatus{models.CardBlocked}, models.CardActive); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("card_conflict", "card is no longer blocked")
			}
			return err
		}
		// single winner: every sibling pending request dies with this commit
		if err := r.UnlockRequests.ExpireSiblings(ctx, req.CardID, requestID); err != nil {
			return err
		}
		if err := auditLog(ctx, r, actorID, "unlock_request", requestID, "verified", map[string]any{"card_id": req.CardID}); err != nil {
			return err
		}
		out, err = r.UnlockRequests.GetByID(ctx, requestID)
		outcome, reinstated = "verified", true
		return err
	})
	if outcome != "" {
		metrics.UnlockAttemptsTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return models.CardUnlockRequest{}, apperr.From(err)
	}
	if reinstated {
		s.publish(notify.Event{
			Kind:   "card_reinstated",
			UserID: out.UserID,
			CardID: out.CardID,
			Details: map[string]any{
				"unlock_request_id": out.ID,
			},
		})
	}
	return out, nil
}

// Status returns the latest request for (actor, card) after lazy expiry.
func (s *UnlockService) Status(ctx context.Context, actorID, cardID string) (UnlockStatus, error) {
	now := s.now()
	if err := s.r.UnlockRequests.ExpireLapsed(ctx, actorID, cardID, now); err != nil {
		return UnlockStatus{}, apperr.Internal(err)
	}
	req, err := s.r.UnlockRequests.LatestByUserCard(ctx, actorID, cardID)
	if err == repo.ErrNotFound {
		return UnlockStatus{}, apperr.NotFound("unlock_not_found", "no unlock request for this card")
	}
	if err != nil {
		return UnlockStatus{}, apperr.Internal(err)
	}
	st := UnlockStatus{CardUnlockRequest: req}
	if req.Status == models.UnlockPending {
		st.Code = req.Code
	}
	return st, nil
}

func (s *UnlockService) publish(ev notify.Event) {
	if s.wp != nil {
		s.wp.Submit(func() { s.notifier.Publish(ev) })
		return
	}
	s.notifier.Publish(ev)
}
