package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"amora-platform/internal/rates"
)

// Service evaluates reward rules. All methods are safe to call repeatedly for
// the same day; the unique score-history index makes grants idempotent.
type Service struct {
	store Store

	now func() time.Time
	log *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, now: time.Now, log: log}
}

// WithClock overrides the time source; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ApplyCallTargetReward checks the daily call-target rule for the receiver
// after a completed call. currentHistoryID is the settling call's history
// row; depending on timing it may or may not be visible to the count yet, so
// it is excluded from the query and added back as +1.
//
// Returns (true, nil) when a reward was granted now, (false, nil) when the
// rule is off, the target is not met, or today's grant already exists.
func (s *Service) ApplyCallTargetReward(ctx context.Context, receiverID string, callType rates.CallType, currentHistoryID string) (bool, error) {
	ruleType, ok := CallTargetRule(callType)
	if !ok {
		return false, fmt.Errorf("rewards: no rule for call type %q", callType)
	}

	rule, ok, err := s.store.ActiveRule(ctx, ruleType)
	if err != nil {
		return false, fmt.Errorf("load rule: %w", err)
	}
	if !ok {
		return false, nil
	}

	today := DateKey(s.now())

	awarded, err := s.store.HasScoreEntry(ctx, receiverID, ruleType, today)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	if awarded {
		return false, nil
	}

	count, err := s.store.CountCompletedCalls(ctx, receiverID, callType, today, currentHistoryID)
	if err != nil {
		return false, fmt.Errorf("count calls: %w", err)
	}
	if count+1 < rule.MinCount {
		return false, nil
	}

	err = s.store.AwardScore(ctx, ScoreHistory{
		UserID:        receiverID,
		RuleType:      ruleType,
		RewardDate:    today,
		Score:         rule.Score,
		CallHistoryID: currentHistoryID,
		CreatedAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAwarded) {
			// Lost the race to a concurrent completion; the grant exists.
			return false, nil
		}
		return false, fmt.Errorf("award score: %w", err)
	}

	s.log.Info("call target reward granted",
		"user_id", receiverID,
		"rule_type", string(ruleType),
		"score", rule.Score,
		"reward_date", today,
	)
	return true, nil
}

// ApplyDailyLoginReward grants the daily login reward at most once per UTC day.
func (s *Service) ApplyDailyLoginReward(ctx context.Context, userID string) (bool, error) {
	rule, ok, err := s.store.ActiveRule(ctx, RuleDailyLogin)
	if err != nil {
		return false, fmt.Errorf("load rule: %w", err)
	}
	if !ok {
		return false, nil
	}

	today := DateKey(s.now())

	awarded, err := s.store.HasScoreEntry(ctx, userID, RuleDailyLogin, today)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	if awarded {
		return false, nil
	}

	err = s.store.AwardScore(ctx, ScoreHistory{
		UserID:     userID,
		RuleType:   RuleDailyLogin,
		RewardDate: today,
		Score:      rule.Score,
		CreatedAt:  s.now(),
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAwarded) {
			return false, nil
		}
		return false, fmt.Errorf("award score: %w", err)
	}

	s.log.Info("daily login reward granted", "user_id", userID, "score", rule.Score, "reward_date", today)
	return true, nil
}
