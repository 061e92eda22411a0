package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/models"
)

func TestPaySettlesSharedSession(t *testing.T) {
	f := newFixture(t)
	sess := f.sharedSession(t)
	before := f.store.users[f.victim.ID].Balance

	out, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "card-not-present purchase")
	require.NoError(t, err)

	assert.Equal(t, models.FraudSuccess, out.Transaction.Status)
	assert.Equal(t, "shady-shop", out.Transaction.Merchant)
	assert.Equal(t, "250", out.Amount.String())
	assert.Equal(t, before.Sub(decimal.NewFromInt(250)).String(), out.VictimBalance.String())
	assert.Equal(t, "250", out.MerchantBalance.String())

	// money is conserved between victim and merchant
	merchant, err := f.store.repos().Users.GetOrCreateMerchant(testCtx)
	require.NoError(t, err)
	total := f.store.users[f.victim.ID].Balance.Add(merchant.Balance)
	assert.Equal(t, before.String(), total.String())

	assert.Equal(t, models.OtpConsumed, f.store.sessions[sess.ID].Status)
	assert.Equal(t, models.CardCompromised, f.store.cards[f.card.ID].Status)
	require.Len(t, f.store.ledger, 1)
	assert.Equal(t, models.LedgerTransfer, f.store.ledger[0].Type)
	assert.Equal(t, models.LedgerCompleted, f.store.ledger[0].Status)
	require.NotNil(t, f.store.ledger[0].FromUserID)
	assert.Equal(t, f.victim.ID, *f.store.ledger[0].FromUserID)
}

func TestPayOverridesAmountAndMerchant(t *testing.T) {
	f := newFixture(t)
	sess := f.sharedSession(t)

	amount := decimal.RequireFromString("12.345")
	out, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "other-shop", &amount, "")
	require.NoError(t, err)
	assert.Equal(t, "12.35", out.Amount.String())
	assert.Equal(t, "other-shop", out.Transaction.Merchant)
}

func TestPayBlockedCard(t *testing.T) {
	f := newFixture(t)
	sess := f.sharedSession(t)
	_, err := f.otp.Report(testCtx, f.victim.ID, sess.ID, "looked phishy")
	require.NoError(t, err)
	before := f.store.users[f.victim.ID].Balance

	_, err = f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "")
	requireAppErr(t, err, apperr.KindForbidden, "card_blocked")

	assert.Equal(t, before.String(), f.store.users[f.victim.ID].Balance.String())
	assert.Empty(t, f.store.ledger)
	// the only fraud row is the failed one written by the report
	require.Len(t, f.store.frauds, 1)
	assert.Equal(t, models.FraudFailed, f.store.frauds[0].Status)
}

func TestPayRejections(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.fraud.Pay(testCtx, f.attacker.ID, "nope", "123456", "", nil, "")
		requireAppErr(t, err, apperr.KindNotFound, "session_not_found")
	})

	t.Run("pending session is not settleable", func(t *testing.T) {
		f := newFixture(t)
		sess, err := f.otp.Initiate(testCtx, f.attacker.ID, f.card.ID, "shady-shop", decimal.NewFromInt(250), "")
		require.NoError(t, err)
		_, err = f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, f.store.sessions[sess.ID].Code, "", nil, "")
		requireAppErr(t, err, apperr.KindValidation, "otp_not_shared")
	})

	t.Run("wrong code", func(t *testing.T) {
		f := newFixture(t)
		sess := f.sharedSession(t)
		_, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, "------", "", nil, "")
		requireAppErr(t, err, apperr.KindUnauthorized, "otp_mismatch")
		assert.Equal(t, models.OtpShared, f.store.sessions[sess.ID].Status)
	})

	t.Run("lapsed session expires before settling", func(t *testing.T) {
		f := newFixture(t)
		sess := f.sharedSession(t)
		stored := f.store.sessions[sess.ID]
		stored.ExpiresAt = fixedNow().Add(-time.Second)
		f.store.sessions[sess.ID] = stored

		_, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "")
		requireAppErr(t, err, apperr.KindConflict, "otp_expired")
		assert.Equal(t, models.OtpExpired, f.store.sessions[sess.ID].Status)
	})

	t.Run("double settlement", func(t *testing.T) {
		f := newFixture(t)
		sess := f.sharedSession(t)
		_, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "")
		require.NoError(t, err)
		_, err = f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "")
		requireAppErr(t, err, apperr.KindConflict, "otp_consumed")
		assert.Len(t, f.store.ledger, 1)
	})

	t.Run("non-positive override amount", func(t *testing.T) {
		f := newFixture(t)
		sess := f.sharedSession(t)
		zero := decimal.Zero
		_, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", &zero, "")
		requireAppErr(t, err, apperr.KindValidation, "invalid_amount")
	})
}

// The cardholder's report lands between the attacker's status read and
// the consume. The guarded update loses cleanly: no money moves, the
// defense marker stands.
func TestPayLosesReportRace(t *testing.T) {
	f := newFixture(t)
	sess := f.sharedSession(t)
	before := f.store.users[f.victim.ID].Balance

	f.store.beforeConsume = func() {
		f.store.beforeConsume = nil
		_, err := f.otp.Report(testCtx, f.victim.ID, sess.ID, "caught it in time")
		require.NoError(t, err)
	}

	_, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "")
	requireAppErr(t, err, apperr.KindConflict, "otp_conflict")

	assert.Equal(t, before.String(), f.store.users[f.victim.ID].Balance.String())
	assert.Empty(t, f.store.ledger)
	stored := f.store.sessions[sess.ID]
	assert.Equal(t, models.OtpExpired, stored.Status)
	require.NotNil(t, stored.DefenseAction)
	assert.Equal(t, models.DefenseReported, *stored.DefenseAction)
	assert.Equal(t, models.CardBlocked, f.store.cards[f.card.ID].Status)
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	sess := f.sharedSession(t)
	_, err := f.fraud.Pay(testCtx, f.attacker.ID, sess.ID, sess.Code, "", nil, "")
	require.NoError(t, err)

	out, err := f.fraud.ListTransactions(testCtx, 0, -1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.FraudSuccess, out[0].Status)
}
