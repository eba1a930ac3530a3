package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

// Store is the read-side contract the call flow needs from user storage.
//
// Balance mutations are intentionally NOT part of this interface: they happen
// only inside the settlement engine's transaction (see internal/settlement),
// so no other code path can move call funds.
type Store interface {
	Get(ctx context.Context, id string) (User, error)

	// IsBlockedEither reports whether either user has blocked the other.
	IsBlockedEither(ctx context.Context, userID, otherID string) (bool, error)

	// CoinBalance is a point-in-time read; authoritative checks happen at
	// settlement time under the conditional decrement.
	CoinBalance(ctx context.Context, id string) (float64, error)
}
