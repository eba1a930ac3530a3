package settlement

import (
	"context"
	"errors"

	"amora-platform/internal/callsession"
	"amora-platform/internal/ledger"
	"amora-platform/internal/rates"
)

var (
	ErrHistoryNotFound = errors.New("settlement: call history not found")
	ErrAlreadyRated    = errors.New("settlement: call already rated")
)

// Tx is the set of operations the engine performs inside one settlement
// transaction. Either all of them commit or none do; partial credits cannot
// be observed.
type Tx interface {
	// ActiveSession loads the matching active session, locking it against
	// concurrent settlement of the same call.
	ActiveSession(ctx context.Context, callID, callerID, receiverID string) (callsession.Session, bool, error)

	// DeactivateSession flips is_active off; no-op if already inactive.
	DeactivateSession(ctx context.Context, callID string) error

	CoinBalance(ctx context.Context, userID string) (float64, error)

	// DecrementCoinsIfAtLeast applies the conditional debit. ok is false when
	// the balance no longer covers the amount at write time.
	DecrementCoinsIfAtLeast(ctx context.Context, userID string, amount float64) (newBalance float64, ok bool, err error)

	// IncrementWallet credits a withdrawable wallet and returns the new balance.
	IncrementWallet(ctx context.Context, userID string, amount float64) (float64, error)

	// InsertHistory persists the record and fills in its ID.
	InsertHistory(ctx context.Context, h *CallHistory) error

	InsertTransaction(ctx context.Context, t ledger.Transaction) error

	// AdminConfig reads the current margin-split configuration.
	AdminConfig(ctx context.Context) (rates.AdminConfig, bool, error)
}

// Store runs settlement work transactionally and owns the one mutable
// post-settlement field, the rating.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// SetRating sets the one-time rating on a completed call. Fails with
	// ErrHistoryNotFound when no history row belongs to this receiver, or
	// ErrAlreadyRated when a rating is already present.
	SetRating(ctx context.Context, historyID, receiverID string, stars int, label string) error

	// HistoryByCallID is used by the reward trigger and reporting.
	HistoryByCallID(ctx context.Context, callID string) (CallHistory, bool, error)
}
