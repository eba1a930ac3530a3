package users

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore reads user rows via database/sql (pgx stdlib driver).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (User, error) {
	const q = `
SELECT id, role, level, is_online, COALESCE(agency_id, ''), coin_balance, wallet_balance,
       total_score, daily_score, weekly_score, created_at, updated_at
FROM users
WHERE id = $1
`
	var u User
	if err := s.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID,
		&u.Role,
		&u.Level,
		&u.IsOnline,
		&u.AgencyID,
		&u.CoinBalance,
		&u.WalletBalance,
		&u.TotalScore,
		&u.DailyScore,
		&u.WeeklyScore,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) IsBlockedEither(ctx context.Context, userID, otherID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM blocked_users
  WHERE (user_id = $1 AND blocked_user_id = $2)
     OR (user_id = $2 AND blocked_user_id = $1)
)
`
	var blocked bool
	if err := s.db.QueryRowContext(ctx, q, userID, otherID).Scan(&blocked); err != nil {
		return false, err
	}
	return blocked, nil
}

func (s *PostgresStore) CoinBalance(ctx context.Context, id string) (float64, error) {
	const q = `SELECT coin_balance FROM users WHERE id = $1`
	var bal float64
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&bal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return bal, nil
}
