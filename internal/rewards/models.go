package rewards

import (
	"time"

	"amora-platform/internal/rates"
)

// RuleType identifies a reward rule family. Values match the stored
// reward_rules.rule_type column.
type RuleType string

const (
	RuleDailyAudioCallTarget RuleType = "DAILY_AUDIO_CALL_TARGET"
	RuleDailyVideoCallTarget RuleType = "DAILY_VIDEO_CALL_TARGET"
	RuleDailyLogin           RuleType = "DAILY_LOGIN"
)

// CallTargetRule maps a call type to its daily-target rule.
func CallTargetRule(callType rates.CallType) (RuleType, bool) {
	switch callType {
	case rates.CallTypeAudio:
		return RuleDailyAudioCallTarget, true
	case rates.CallTypeVideo:
		return RuleDailyVideoCallTarget, true
	default:
		return "", false
	}
}

type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
)

// RewardRule is admin-managed configuration for one reward family.
type RewardRule struct {
	ID       string     `json:"id" db:"id"`
	RuleType RuleType   `json:"rule_type" db:"rule_type"`
	MinCount int        `json:"min_count" db:"min_count"`
	Score    int        `json:"score" db:"score"`
	Status   RuleStatus `json:"status" db:"status"`
}

// ScoreHistory records one granted reward. The unique index on
// (user_id, rule_type, reward_date) is the idempotency invariant: at most one
// grant per user per rule per day, race-safe against concurrent completions.
type ScoreHistory struct {
	ID       string   `json:"id" db:"id"`
	UserID   string   `json:"user_id" db:"user_id"`
	RuleType RuleType `json:"rule_type" db:"rule_type"`

	// RewardDate is the UTC day key, formatted 2006-01-02.
	RewardDate string `json:"reward_date" db:"reward_date"`

	Score         int       `json:"score" db:"score"`
	CallHistoryID string    `json:"call_history_id,omitempty" db:"call_history_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// DateKey formats an instant as that day's UTC reward key.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
