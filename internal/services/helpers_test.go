package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/cardnum"
	"github.com/fraudlab/cardsim-backend/internal/models"
)

var testCtx = context.Background()

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
}

func testProfile() models.Profile {
	return models.Profile{
		FullName:    "Ada Lovelace",
		Email:       "ada@example.com",
		Phone:       "+90 555 123 4567",
		NationalID:  "12345678901",
		DateOfBirth: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func testProfileInput() ProfileInput {
	return ProfileInput{
		FullName:    "Ada Lovelace",
		Email:       "ada@example.com",
		Phone:       "90 555 123 4567",
		NationalID:  "12345678901",
		DateOfBirth: "1990-03-14",
	}
}

// fixture wires every service against one shared memStore: a victim with
// a leaked active card, and a second account playing the attacker.
type fixture struct {
	store    *memStore
	otp      *OtpService
	fraud    *FraudService
	unlock   *UnlockService
	cards    *CardService
	victim   models.User
	attacker models.User
	request  models.CreditRequest
	card     models.CreditCard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	r := store.repos()

	victim, err := r.Users.Create(testCtx, "ada", "ada@example.com", "hash", models.RoleUser, decimal.NewFromInt(10000))
	require.NoError(t, err)
	attacker, err := r.Users.Create(testCtx, "mallory", "mallory@example.com", "hash", models.RoleUser, decimal.NewFromInt(100))
	require.NoError(t, err)

	req, err := r.CreditRequests.Create(testCtx, models.CreditRequest{
		UserID:        victim.ID,
		Profile:       testProfile(),
		MonthlyIncome: 90000,
		Status:        models.RequestApproved,
	})
	require.NoError(t, err)

	leakedAt := fixedNow().Add(-time.Hour)
	card, err := r.Cards.Create(testCtx, models.CreditCard{
		RequestID:   req.ID,
		UserID:      victim.ID,
		Number:      cardnum.NewPAN(),
		Expiry:      "01/30",
		CVV:         "123",
		CreditLimit: decimal.NewFromInt(5000),
		Status:      models.CardActive,
		LeakedAt:    &leakedAt,
	})
	require.NoError(t, err)

	f := &fixture{store: store, victim: victim, attacker: attacker, request: req, card: card}
	f.otp = NewOtpService(store, r, nil, nil, 5*time.Minute)
	f.otp.now = fixedNow
	f.fraud = NewFraudService(store, r, nil, nil)
	f.fraud.now = fixedNow
	f.unlock = NewUnlockService(store, r, nil, nil, 5*time.Minute)
	f.unlock.now = fixedNow
	f.cards = NewCardService(store, r)
	f.cards.now = fixedNow
	return f
}

// sharedSession runs the attacker/victim handshake up to the point where
// a settlement becomes legal, and returns the session with its code.
func (f *fixture) sharedSession(t *testing.T) models.OtpSession {
	t.Helper()
	sess, err := f.otp.Initiate(testCtx, f.attacker.ID, f.card.ID, "shady-shop", decimal.NewFromInt(250), "phishing drill")
	require.NoError(t, err)
	code := f.store.sessions[sess.ID].Code
	shared, err := f.otp.Share(testCtx, f.victim.ID, sess.ID, code)
	require.NoError(t, err)
	return shared
}

func (f *fixture) blockCard(t *testing.T) {
	t.Helper()
	err := f.store.repos().Cards.Transition(testCtx, f.card.ID,
		[]models.CardStatus{models.CardActive, models.CardCompromised}, models.CardBlocked)
	require.NoError(t, err)
}

func requireAppErr(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, kind, ae.Kind)
	require.Equal(t, code, ae.Code)
}
