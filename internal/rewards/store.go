package rewards

import (
	"context"
	"errors"

	"amora-platform/internal/rates"
)

// ErrAlreadyAwarded is the store-level translation of the unique-index
// violation on (user_id, rule_type, reward_date).
var ErrAlreadyAwarded = errors.New("rewards: already awarded for this day")

type Store interface {
	ActiveRule(ctx context.Context, ruleType RuleType) (RewardRule, bool, error)

	HasScoreEntry(ctx context.Context, userID string, ruleType RuleType, rewardDate string) (bool, error)

	// CountCompletedCalls counts the receiver's completed calls of the given
	// type on the given UTC day, excluding one call-history row (the call
	// that just settled, which is counted separately by the caller).
	CountCompletedCalls(ctx context.Context, receiverID string, callType rates.CallType, rewardDate string, excludeHistoryID string) (int, error)

	// AwardScore inserts the score-history row and increments the user's
	// total/daily/weekly scores in one logical operation. Returns
	// ErrAlreadyAwarded when the day's grant already exists.
	AwardScore(ctx context.Context, entry ScoreHistory) error
}
