package callsession

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store for tests and early development.
// It mirrors the partial unique index behavior of the Postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session // call_id -> session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}}
}

func (s *MemoryStore) Create(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.IsActive {
		for _, existing := range s.sessions {
			if existing.CallerID == sess.CallerID && existing.IsActive {
				return ErrActiveSessionExists
			}
		}
	}
	s.sessions[sess.CallID] = sess
	return nil
}

func (s *MemoryStore) FindActiveByCaller(_ context.Context, callerID string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.CallerID == callerID && sess.IsActive {
			return sess, true, nil
		}
	}
	return Session{}, false, nil
}

func (s *MemoryStore) DeactivateExpired(_ context.Context, now time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if !sess.IsActive || sess.ExpiresAt.After(now) {
			continue
		}
		sess.IsActive = false
		s.sessions[id] = sess
		n++
		if limit > 0 && n >= int64(limit) {
			break
		}
	}
	return n, nil
}

// Get returns a session by call id; used by the settlement memory store and tests.
func (s *MemoryStore) Get(callID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	return sess, ok
}

// Deactivate flips is_active off; idempotent. Used by the settlement memory store.
func (s *MemoryStore) Deactivate(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[callID]; ok && sess.IsActive {
		sess.IsActive = false
		s.sessions[callID] = sess
	}
}
