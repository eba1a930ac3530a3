package ledger

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore is the read side of the ledger. Writes happen only inside the
// settlement transaction (see internal/settlement).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListByUser returns a user's ledger entries newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT id, user_id, type, amount, balance_after, COALESCE(call_history_id, ''), COALESCE(description, ''), created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := s.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter, &t.CallHistoryID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumCredits totals a user's credit entries in [from, to); used by earnings
// reporting.
func (s *PostgresStore) SumCredits(ctx context.Context, userID string, from, to time.Time) (float64, error) {
	const q = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE user_id = $1 AND type = 'credit' AND created_at >= $2 AND created_at < $3
`
	var total float64
	err := s.db.QueryRowContext(ctx, q, userID, from, to).Scan(&total)
	return total, err
}
