package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"amora-platform/internal/ledger"
	"amora-platform/internal/settlement"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development.

type MemoryRepo struct {
	mu sync.Mutex

	Histories []settlement.CallHistory
	Ledgers   []ledger.Transaction
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCallHistory(_ context.Context, userID string, from, to time.Time) ([]settlement.CallHistory, error) {
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]settlement.CallHistory, 0)
	for _, h := range r.Histories {
		if h.CallerID != userID && h.ReceiverID != userID {
			continue
		}
		if !h.CreatedAt.IsZero() {
			if h.CreatedAt.Before(from) || !h.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, h)
	}
	return out, nil
}

func (r *MemoryRepo) ListLedger(_ context.Context, userID string, from, to time.Time) ([]ledger.Transaction, error) {
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Transaction, 0)
	for _, entry := range r.Ledgers {
		if entry.UserID != userID {
			continue
		}
		if !entry.CreatedAt.IsZero() {
			if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
