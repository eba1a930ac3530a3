package rewards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"amora-platform/internal/rates"
	"amora-platform/pkg/utils"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ActiveRule(ctx context.Context, ruleType RuleType) (RewardRule, bool, error) {
	const q = `
SELECT id, rule_type, min_count, score, status
FROM reward_rules
WHERE rule_type = $1 AND status = 'active'
LIMIT 1
`
	var rule RewardRule
	err := s.db.QueryRowContext(ctx, q, ruleType).Scan(&rule.ID, &rule.RuleType, &rule.MinCount, &rule.Score, &rule.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RewardRule{}, false, nil
		}
		return RewardRule{}, false, err
	}
	return rule, true, nil
}

func (s *PostgresStore) HasScoreEntry(ctx context.Context, userID string, ruleType RuleType, rewardDate string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM score_history
  WHERE user_id = $1 AND rule_type = $2 AND reward_date = $3
)
`
	var exists bool
	err := s.db.QueryRowContext(ctx, q, userID, ruleType, rewardDate).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) CountCompletedCalls(ctx context.Context, receiverID string, callType rates.CallType, rewardDate string, excludeHistoryID string) (int, error) {
	day, err := time.Parse("2006-01-02", rewardDate)
	if err != nil {
		return 0, fmt.Errorf("bad reward date %q: %w", rewardDate, err)
	}
	from := day
	to := day.AddDate(0, 0, 1)

	const q = `
SELECT COUNT(*)
FROM call_history
WHERE receiver_id = $1 AND call_type = $2 AND status = 'completed'
  AND created_at >= $3 AND created_at < $4
  AND id <> $5
`
	var n int
	err = s.db.QueryRowContext(ctx, q, receiverID, callType, from, to, excludeHistoryID).Scan(&n)
	return n, err
}

// AwardScore inserts the score-history row and bumps the user's score fields
// in one transaction. The unique index on (user_id, rule_type, reward_date)
// resolves concurrent grants; the loser gets ErrAlreadyAwarded.
func (s *PostgresStore) AwardScore(ctx context.Context, entry ScoreHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const insert = `
INSERT INTO score_history (id, user_id, rule_type, reward_date, score, call_history_id, created_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
`
		_, err := tx.ExecContext(ctx, insert,
			entry.ID, entry.UserID, entry.RuleType, entry.RewardDate,
			entry.Score, entry.CallHistoryID, entry.CreatedAt,
		)
		if err != nil {
			if utils.IsUniqueViolation(err) {
				return ErrAlreadyAwarded
			}
			return err
		}

		const bump = `
UPDATE users
SET total_score = total_score + $1,
    daily_score = daily_score + $1,
    weekly_score = weekly_score + $1,
    updated_at = NOW()
WHERE id = $2
`
		_, err = tx.ExecContext(ctx, bump, entry.Score, entry.UserID)
		return err
	})
}
