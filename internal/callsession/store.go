package callsession

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrActiveSessionExists is returned by Create when the caller already
	// has an active session (partial unique index violation).
	ErrActiveSessionExists = errors.New("callsession: caller already has an active session")
)

// Store persists call sessions.
//
// Deactivation on settlement happens inside the settlement engine's
// transaction, not through this interface; Store only covers call start and
// expiry housekeeping.
type Store interface {
	Create(ctx context.Context, s Session) error
	FindActiveByCaller(ctx context.Context, callerID string) (Session, bool, error)

	// DeactivateExpired flips is_active off for sessions whose expiry has
	// passed and returns how many were reclaimed.
	DeactivateExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
