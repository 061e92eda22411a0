package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
)

// memStore is an in-memory stand-in for the postgres store. Guarded
// transitions keep the same semantics: a write whose precondition does
// not hold returns repo.ErrStale, exactly like a zero-row UPDATE.
type memStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	requests map[string]models.CreditRequest
	cards    map[string]models.CreditCard
	sessions map[string]models.OtpSession
	unlocks  map[string]models.CardUnlockRequest
	frauds   []models.FraudTransaction
	ledger   []models.LedgerTransaction
	audits   []models.AuditLog
	seq      int

	// beforeConsume runs inside Consume, before the status guard is
	// evaluated. Tests use it to lose the report/consume race on purpose.
	beforeConsume func()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]models.User{},
		requests: map[string]models.CreditRequest{},
		cards:    map[string]models.CreditCard{},
		sessions: map[string]models.OtpSession{},
		unlocks:  map[string]models.CardUnlockRequest{},
	}
}

func (m *memStore) nextID() string { m.seq++; return uuid.NewString() }

func (m *memStore) repos() repo.Repositories {
	return repo.Repositories{
		Users:             fakeUsers{m},
		CreditRequests:    fakeCreditRequests{m},
		Cards:             fakeCards{m},
		OtpSessions:       fakeOtpSessions{m},
		FraudTransactions: fakeFraudTransactions{m},
		UnlockRequests:    fakeUnlockRequests{m},
		Ledger:            fakeLedger{m},
		AuditLogs:         fakeAuditLogs{m},
	}
}

// WithTx is a pass-through: the fakes mutate shared state directly, so
// tests observe exactly what the service asked for, in order.
func (m *memStore) WithTx(_ context.Context, fn func(repo.Repositories) error) error {
	return fn(m.repos())
}

type fakeUsers struct{ m *memStore }

func (f fakeUsers) Create(_ context.Context, username, email, hash, role string, balance decimal.Decimal) (models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u := models.User{
		ID:           f.m.nextID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Balance:      balance,
		CreatedAt:    time.Now(),
	}
	f.m.users[u.ID] = u
	return u, nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u, ok := f.m.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (f fakeUsers) GetOrCreateMerchant(_ context.Context) (models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if u.Username == models.MerchantUsername {
			return u, nil
		}
	}
	u := models.User{
		ID:       f.m.nextID(),
		Username: models.MerchantUsername,
		Email:    "merchant@sim.local",
		Role:     models.RoleMerchant,
		Balance:  decimal.Zero,
	}
	f.m.users[u.ID] = u
	return u, nil
}

func (f fakeUsers) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) (models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u, ok := f.m.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	u.Balance = u.Balance.Add(delta)
	f.m.users[id] = u
	return u, nil
}

type fakeCreditRequests struct{ m *memStore }

func (f fakeCreditRequests) Create(_ context.Context, req models.CreditRequest) (models.CreditRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	req.ID = f.m.nextID()
	req.CreatedAt = time.Now()
	f.m.requests[req.ID] = req
	return req, nil
}

func (f fakeCreditRequests) GetByID(_ context.Context, id string) (models.CreditRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	req, ok := f.m.requests[id]
	if !ok {
		return models.CreditRequest{}, repo.ErrNotFound
	}
	return req, nil
}

func (f fakeCreditRequests) ListByUser(_ context.Context, userID string) ([]models.CreditRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.CreditRequest
	for _, req := range f.m.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f fakeCreditRequests) Decide(_ context.Context, id string, to models.RequestStatus, notes *string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	req, ok := f.m.requests[id]
	if !ok || req.Status == models.RequestApproved {
		return repo.ErrStale
	}
	req.Status = to
	req.DecisionNotes = notes
	f.m.requests[id] = req
	return nil
}

type fakeCards struct{ m *memStore }

func (f fakeCards) Create(_ context.Context, card models.CreditCard) (models.CreditCard, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	card.ID = f.m.nextID()
	card.CreatedAt = time.Now()
	f.m.cards[card.ID] = card
	return card, nil
}

func (f fakeCards) GetByID(_ context.Context, id string) (models.CreditCard, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	card, ok := f.m.cards[id]
	if !ok {
		return models.CreditCard{}, repo.ErrNotFound
	}
	return card, nil
}

func (f fakeCards) ListByUser(_ context.Context, userID string) ([]models.CreditCard, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.CreditCard
	for _, card := range f.m.cards {
		if card.UserID == userID {
			out = append(out, card)
		}
	}
	return out, nil
}

func (f fakeCards) MarkLeaked(_ context.Context, id, note string, at time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	card, ok := f.m.cards[id]
	if !ok {
		return repo.ErrNotFound
	}
	card.LeakedAt = &at
	if note != "" {
		card.LeakNotes = &note
	}
	f.m.cards[id] = card
	return nil
}

func (f fakeCards) Transition(_ context.Context, id string, from []models.CardStatus, to models.CardStatus) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	card, ok := f.m.cards[id]
	if !ok {
		return repo.ErrStale
	}
	for _, s := range from {
		if card.Status == s {
			card.Status = to
			f.m.cards[id] = card
			return nil
		}
	}
	return repo.ErrStale
}

type fakeOtpSessions struct{ m *memStore }

func (f fakeOtpSessions) Create(_ context.Context, s models.OtpSession) (models.OtpSession, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s.ID = f.m.nextID()
	s.CreatedAt = time.Now()
	f.m.sessions[s.ID] = s
	return s, nil
}

func (f fakeOtpSessions) GetByID(_ context.Context, id string) (models.OtpSession, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok {
		return models.OtpSession{}, repo.ErrNotFound
	}
	return s, nil
}

func (f fakeOtpSessions) FindActiveByCard(_ context.Context, cardID string, now time.Time) (models.OtpSession, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, s := range f.m.sessions {
		if s.CardID == cardID && active(s.Status) && now.Before(s.ExpiresAt) {
			return s, nil
		}
	}
	return models.OtpSession{}, repo.ErrNotFound
}

func (f fakeOtpSessions) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]models.OtpSession, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.OtpSession
	for _, s := range f.m.sessions {
		if s.UserID == userID && active(s.Status) && now.Before(s.ExpiresAt) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeOtpSessions) ExpireLapsed(_ context.Context, now time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for id, s := range f.m.sessions {
		if active(s.Status) && !now.Before(s.ExpiresAt) {
			s.Status = models.OtpExpired
			f.m.sessions[id] = s
		}
	}
	return nil
}

func (f fakeOtpSessions) MarkShared(_ context.Context, id string, now time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok || s.Status != models.OtpPending || !now.Before(s.ExpiresAt) {
		return repo.ErrStale
	}
	s.Status = models.OtpShared
	s.UserSharedAt = &now
	f.m.sessions[id] = s
	return nil
}

func (f fakeOtpSessions) Consume(_ context.Context, id string, now time.Time) error {
	if f.m.beforeConsume != nil {
		f.m.beforeConsume()
	}
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok || s.Status != models.OtpShared || !now.Before(s.ExpiresAt) {
		return repo.ErrStale
	}
	s.Status = models.OtpConsumed
	s.ConsumedAt = &now
	f.m.sessions[id] = s
	return nil
}

func (f fakeOtpSessions) ExpireWithDefense(_ context.Context, id string, now time.Time, action, reason string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok || !active(s.Status) {
		return repo.ErrStale
	}
	s.Status = models.OtpExpired
	s.DefenseAction = &action
	s.DefenseReason = &reason
	s.ExpiresAt = now
	f.m.sessions[id] = s
	return nil
}

func active(s models.OtpStatus) bool {
	return s == models.OtpPending || s == models.OtpShared
}

type fakeFraudTransactions struct{ m *memStore }

func (f fakeFraudTransactions) Create(_ context.Context, ft models.FraudTransaction) (models.FraudTransaction, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	ft.ID = f.m.nextID()
	ft.CreatedAt = time.Now()
	f.m.frauds = append(f.m.frauds, ft)
	return ft, nil
}

func (f fakeFraudTransactions) ListBySession(_ context.Context, sessionID string) ([]models.FraudTransaction, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.FraudTransaction
	for _, ft := range f.m.frauds {
		if ft.SessionID == sessionID {
			out = append(out, ft)
		}
	}
	return out, nil
}

func (f fakeFraudTransactions) List(_ context.Context, limit, offset int) ([]models.FraudTransaction, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if offset >= len(f.m.frauds) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.m.frauds) {
		end = len(f.m.frauds)
	}
	out := make([]models.FraudTransaction, end-offset)
	copy(out, f.m.frauds[offset:end])
	return out, nil
}

type fakeUnlockRequests struct{ m *memStore }

func (f fakeUnlockRequests) Create(_ context.Context, r models.CardUnlockRequest) (models.CardUnlockRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	r.ID = f.m.nextID()
	r.CreatedAt = time.Now()
	f.m.unlocks[r.ID] = r
	return r, nil
}

func (f fakeUnlockRequests) GetByID(_ context.Context, id string) (models.CardUnlockRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	r, ok := f.m.unlocks[id]
	if !ok {
		return models.CardUnlockRequest{}, repo.ErrNotFound
	}
	return r, nil
}

func (f fakeUnlockRequests) FindPending(_ context.Context, userID, cardID string, now time.Time) (models.CardUnlockRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, r := range f.m.unlocks {
		if r.UserID == userID && r.CardID == cardID && r.Status == models.UnlockPending && now.Before(r.ExpiresAt) {
			return r, nil
		}
	}
	return models.CardUnlockRequest{}, repo.ErrNotFound
}

func (f fakeUnlockRequests) LatestByUserCard(_ context.Context, userID, cardID string) (models.CardUnlockRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var latest models.CardUnlockRequest
	found := false
	for _, r := range f.m.unlocks {
		if r.UserID == userID && r.CardID == cardID {
			if !found || r.CreatedAt.After(latest.CreatedAt) {
				latest, found = r, true
			}
		}
	}
	if !found {
		return models.CardUnlockRequest{}, repo.ErrNotFound
	}
	return latest, nil
}

func (f fakeUnlockRequests) ExpireLapsed(_ context.Context, userID, cardID string, now time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for id, r := range f.m.unlocks {
		if r.UserID == userID && r.CardID == cardID && r.Status == models.UnlockPending && !now.Before(r.ExpiresAt) {
			r.Status = models.UnlockExpired
			f.m.unlocks[id] = r
		}
	}
	return nil
}

func (f fakeUnlockRequests) MarkVerified(_ context.Context, id string, now time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	r, ok := f.m.unlocks[id]
	if !ok || r.Status != models.UnlockPending || !now.Before(r.ExpiresAt) {
		return repo.ErrStale
	}
	r.Status = models.UnlockVerified
	r.VerifiedAt = &now
	f.m.unlocks[id] = r
	return nil
}

func (f fakeUnlockRequests) RecordFailedAttempt(_ context.Context, id string, maxAttempts int) (models.CardUnlockRequest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	r, ok := f.m.unlocks[id]
	if !ok || r.Status != models.UnlockPending {
		return models.CardUnlockRequest{}, repo.ErrStale
	}
	r.Attempts++
	if r.Attempts >= maxAttempts {
		r.Status = models.UnlockFailed
	}
	f.m.unlocks[id] = r
	return r, nil
}

func (f fakeUnlockRequests) ExpireSiblings(_ context.Context, cardID, winnerID string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for id, r := range f.m.unlocks {
		if r.CardID == cardID && r.ID != winnerID && r.Status == models.UnlockPending {
			r.Status = models.UnlockExpired
			f.m.unlocks[id] = r
		}
	}
	return nil
}

type fakeLedger struct{ m *memStore }

func (f fakeLedger) Create(_ context.Context, t models.LedgerTransaction) (models.LedgerTransaction, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	t.ID = f.m.nextID()
	t.CreatedAt = time.Now()
	f.m.ledger = append(f.m.ledger, t)
	return t, nil
}

type fakeAuditLogs struct{ m *memStore }

func (f fakeAuditLogs) Create(_ context.Context, l models.AuditLog) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	l.ID = f.m.nextID()
	l.CreatedAt = time.Now()
	f.m.audits = append(f.m.audits, l)
	return nil
}
