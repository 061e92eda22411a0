package services

import (
	"context"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/api/validate"
	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/cardnum"
	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type CardService struct {
	uow repo.UnitOfWork
	r   repo.Repositories
	now func() time.Time
}

func NewCardService(uow repo.UnitOfWork, r repo.Repositories) *CardService {
	return &CardService{uow: uow, r: r, now: time.Now}
}

// SubmitRequest records a credit application. The profile captured here is
// the source of truth for every later identity check.
func (s *CardService) SubmitRequest(ctx context.Context, actorID string, in ProfileInput, monthlyIncome int64) (models.CreditRequest, error) {
	profile, err := in.Parse()
	if err != nil {
		return models.CreditRequest{}, err
	}
	if f := validate.MinInt("monthly_income", monthlyIncome, 0); f != nil {
		return models.CreditRequest{}, apperr.Validation("invalid_profile", validate.Errs{*f}.Error())
	}

	var out models.CreditRequest
	err = s.uow.WithTx(ctx, func(r repo.Repositories) error {
		var err error
		out, err = r.CreditRequests.Create(ctx, models.CreditRequest{
			UserID:        actorID,
			Profile:       profile,
			MonthlyIncome: monthlyIncome,
			Status:        models.RequestPending,
		})
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "credit_request", out.ID, "submitted", nil)
	})
	if err != nil {
		return models.CreditRequest{}, apperr.From(err)
	}
	return out, nil
}

func (s *CardService) ListRequestsByUser(ctx context.Context, userID string) ([]models.CreditRequest, error) {
	out, err := s.r.CreditRequests.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *CardService) ListCardsByUser(ctx context.Context, userID string) ([]models.CreditCard, error) {
	out, err := s.r.Cards.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Approve issues the card: generated PAN/CVV, expiry at now+4y, active
// status, 1:1 with the request. Approving twice is rejected, not idempotent.
func (s *CardService) Approve(ctx context.Context, actorID, requestID string, creditLimit decimal.Decimal) (models.CreditCard, error) {
	if !creditLimit.IsPositive() {
		return models.CreditCard{}, apperr.Validation("invalid_limit", "credit_limit must be > 0")
	}

	var card models.CreditCard
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		req, err := r.CreditRequests.GetByID(ctx, requestID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("request_not_found", "unknown credit request")
		}
		if err != nil {
			return err
		}
		if req.Status == models.RequestApproved {
			return apperr.Conflict("already_approved", "request already approved")
		}
		// guarded against a concurrent approval
		if err := r.CreditRequests.Decide(ctx, requestID, models.RequestApproved, nil); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("already_approved", "request already approved")
			}
			return err
		}
		card, err = r.Cards.Create(ctx, models.CreditCard{
			RequestID:   requestID,
			UserID:      req.UserID,
			Number:      cardnum.NewPAN(),
			Expiry:      cardnum.NewExpiry(s.now()),
			CVV:         cardnum.NewCVV(),
			CreditLimit: creditLimit,
			Status:      models.CardActive,
		})
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "credit_card", card.ID, "issued", map[string]any{
			"request_id":   requestID,
			"credit_limit": creditLimit.String(),
		})
	})
	if err != nil {
		return models.CreditCard{}, apperr.From(err)
	}
	return card, nil
}

func (s *CardService) Reject(ctx context.Context, actorID, requestID, reason string) (models.CreditRequest, error) {
	var out models.CreditRequest
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		req, err := r.CreditRequests.GetByID(ctx, requestID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("request_not_found", "unknown credit request")
		}
		if err != nil {
			return err
		}
		if req.Status == models.RequestApproved {
			return apperr.Conflict("already_approved", "approved request cannot be rejected")
		}
		var notes *string
		if reason != "" {
			notes = &reason
		}
		if err := r.CreditRequests.Decide(ctx, requestID, models.RequestRejected, notes); err != nil {
			if err == repo.ErrStale {
				return apperr.Conflict("already_approved", "approved request cannot be rejected")
			}
			return err
		}
		out, err = r.CreditRequests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "credit_request", requestID, "rejected", map[string]any{"reason": reason})
	})
	if err != nil {
		return models.CreditRequest{}, apperr.From(err)
	}
	return out, nil
}

// Leak records exposure metadata. It never blocks the card by itself;
// blocking happens only via the OTP defense path or a settlement.
func (s *CardService) Leak(ctx context.Context, actorID, cardID, note string) (models.CreditCard, error) {
	var card models.CreditCard
	err := s.uow.WithTx(ctx, func(r repo.Repositories) error {
		if err := r.Cards.MarkLeaked(ctx, cardID, note, s.now()); err != nil {
			if err == repo.ErrNotFound {
				return apperr.NotFound("card_not_found", "unknown card")
			}
			return err
		}
		var err error
		card, err = r.Cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		return auditLog(ctx, r, actorID, "credit_card", cardID, "leak_simulated", map[string]any{"note": note})
	})
	if err != nil {
		return models.CreditCard{}, apperr.From(err)
	}
	return card, nil
}

func (s *CardService) GetCard(ctx context.Context, cardID string) (models.CreditCard, error) {
	card, err := s.r.Cards.GetByID(ctx, cardID)
	if err == repo.ErrNotFound {
		return models.CreditCard{}, apperr.NotFound("card_not_found", "unknown card")
	}
	if err != nil {
		return models.CreditCard{}, apperr.Internal(err)
	}
	return card, nil
}
