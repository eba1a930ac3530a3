package users

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory user store for tests and early development.
// The settlement engine's memory store mutates balances through the Adjust*
// methods; they mirror the SQL balance updates.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]User
	blocks map[string]map[string]bool // user_id -> blocked_user_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  map[string]User{},
		blocks: map[string]map[string]bool{},
	}
}

func (s *MemoryStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) Block(userID, blockedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocks[userID] == nil {
		s.blocks[userID] = map[string]bool{}
	}
	s.blocks[userID][blockedID] = true
}

func (s *MemoryStore) Get(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) IsBlockedEither(_ context.Context, userID, otherID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[userID][otherID] || s.blocks[otherID][userID], nil
}

func (s *MemoryStore) CoinBalance(_ context.Context, id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	return u.CoinBalance, nil
}

// DecrementCoinsIfAtLeast applies the same compare-and-swap semantics as the
// conditional SQL update: the decrement succeeds only if the balance still
// covers the amount at write time.
func (s *MemoryStore) DecrementCoinsIfAtLeast(id string, amount float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.CoinBalance < amount {
		return 0, false
	}
	u.CoinBalance -= amount
	s.users[id] = u
	return u.CoinBalance, true
}

func (s *MemoryStore) IncrementWallet(id string, amount float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, false
	}
	u.WalletBalance += amount
	s.users[id] = u
	return u.WalletBalance, true
}

// AddScores increments the gamification counters; used by the rewards
// memory store to mirror the SQL update.
func (s *MemoryStore) AddScores(id string, score int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false
	}
	u.TotalScore += score
	u.DailyScore += score
	u.WeeklyScore += score
	s.users[id] = u
	return true
}
