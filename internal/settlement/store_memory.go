package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"amora-platform/internal/callsession"
	"amora-platform/internal/ledger"
	"amora-platform/internal/rates"
	"amora-platform/internal/users"
)

// MemoryStore composes the in-memory session, user and rate stores into a
// settlement store for tests. A single mutex stands in for the database
// transaction; business failures commit through the same captured-result path
// the engine uses against Postgres, and infrastructure errors only occur
// before any mutation, so no rollback machinery is needed.
type MemoryStore struct {
	mu sync.Mutex

	Sessions *callsession.MemoryStore
	Users    *users.MemoryStore
	Rates    *rates.MemoryRepo

	histories    map[string]CallHistory // by history id
	transactions []ledger.Transaction
}

func NewMemoryStore(sessions *callsession.MemoryStore, userStore *users.MemoryStore, rateRepo *rates.MemoryRepo) *MemoryStore {
	return &MemoryStore{
		Sessions:  sessions,
		Users:     userStore,
		Rates:     rateRepo,
		histories: map[string]CallHistory{},
	}
}

func (s *MemoryStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{store: s})
}

func (s *MemoryStore) SetRating(_ context.Context, historyID, receiverID string, stars int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[historyID]
	if !ok || h.ReceiverID != receiverID {
		return ErrHistoryNotFound
	}
	if h.Rating != 0 {
		return ErrAlreadyRated
	}
	h.Rating = stars
	h.RatingLabel = label
	s.histories[historyID] = h
	return nil
}

func (s *MemoryStore) HistoryByCallID(_ context.Context, callID string) (CallHistory, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found CallHistory
	var ok bool
	for _, h := range s.histories {
		if h.CallID == callID && (!ok || h.CreatedAt.After(found.CreatedAt)) {
			found, ok = h, true
		}
	}
	return found, ok, nil
}

// Histories returns all history rows; test helper.
func (s *MemoryStore) Histories() []CallHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallHistory, 0, len(s.histories))
	for _, h := range s.histories {
		out = append(out, h)
	}
	return out
}

// Transactions returns all ledger entries; test helper.
func (s *MemoryStore) Transactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

type memTx struct {
	store *MemoryStore
}

func (t *memTx) ActiveSession(_ context.Context, callID, callerID, receiverID string) (callsession.Session, bool, error) {
	sess, ok := t.store.Sessions.Get(callID)
	if !ok || !sess.IsActive || sess.CallerID != callerID || sess.ReceiverID != receiverID {
		return callsession.Session{}, false, nil
	}
	return sess, true, nil
}

func (t *memTx) DeactivateSession(_ context.Context, callID string) error {
	t.store.Sessions.Deactivate(callID)
	return nil
}

func (t *memTx) CoinBalance(ctx context.Context, userID string) (float64, error) {
	return t.store.Users.CoinBalance(ctx, userID)
}

func (t *memTx) DecrementCoinsIfAtLeast(_ context.Context, userID string, amount float64) (float64, bool, error) {
	after, ok := t.store.Users.DecrementCoinsIfAtLeast(userID, amount)
	return after, ok, nil
}

func (t *memTx) IncrementWallet(_ context.Context, userID string, amount float64) (float64, error) {
	after, ok := t.store.Users.IncrementWallet(userID, amount)
	if !ok {
		return 0, fmt.Errorf("user %s not found", userID)
	}
	return after, nil
}

func (t *memTx) InsertHistory(_ context.Context, h *CallHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	t.store.histories[h.ID] = *h
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, entry ledger.Transaction) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	t.store.transactions = append(t.store.transactions, entry)
	return nil
}

func (t *memTx) AdminConfig(ctx context.Context) (rates.AdminConfig, bool, error) {
	return t.store.Rates.AdminConfig(ctx)
}
