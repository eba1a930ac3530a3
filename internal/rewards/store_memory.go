package rewards

import (
	"context"
	"sync"

	"amora-platform/internal/rates"
	"amora-platform/internal/settlement"
	"amora-platform/internal/users"
)

// MemoryStore is the in-memory reward store for tests. Completed-call counts
// come from the settlement memory store's history rows; score increments go
// through the user memory store, mirroring the SQL transaction.
type MemoryStore struct {
	mu sync.Mutex

	rules   map[RuleType]RewardRule
	granted map[string]ScoreHistory // userID|ruleType|date

	Settlements *settlement.MemoryStore
	Users       *users.MemoryStore
}

func NewMemoryStore(settlements *settlement.MemoryStore, userStore *users.MemoryStore) *MemoryStore {
	return &MemoryStore{
		rules:       map[RuleType]RewardRule{},
		granted:     map[string]ScoreHistory{},
		Settlements: settlements,
		Users:       userStore,
	}
}

func (s *MemoryStore) PutRule(rule RewardRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.Status == "" {
		rule.Status = RuleStatusActive
	}
	s.rules[rule.RuleType] = rule
}

func grantKey(userID string, ruleType RuleType, date string) string {
	return userID + "|" + string(ruleType) + "|" + date
}

func (s *MemoryStore) ActiveRule(_ context.Context, ruleType RuleType) (RewardRule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[ruleType]
	if !ok || rule.Status != RuleStatusActive {
		return RewardRule{}, false, nil
	}
	return rule, true, nil
}

func (s *MemoryStore) HasScoreEntry(_ context.Context, userID string, ruleType RuleType, rewardDate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.granted[grantKey(userID, ruleType, rewardDate)]
	return ok, nil
}

func (s *MemoryStore) CountCompletedCalls(_ context.Context, receiverID string, callType rates.CallType, rewardDate string, excludeHistoryID string) (int, error) {
	var n int
	for _, h := range s.Settlements.Histories() {
		if h.ReceiverID != receiverID || h.CallType != callType || h.Status != settlement.StatusCompleted {
			continue
		}
		if h.ID == excludeHistoryID {
			continue
		}
		if DateKey(h.CreatedAt) != rewardDate {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) AwardScore(_ context.Context, entry ScoreHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := grantKey(entry.UserID, entry.RuleType, entry.RewardDate)
	if _, ok := s.granted[key]; ok {
		return ErrAlreadyAwarded
	}
	s.granted[key] = entry
	s.Users.AddScores(entry.UserID, entry.Score)
	return nil
}

// Grants returns all granted score-history rows; test helper.
func (s *MemoryStore) Grants() []ScoreHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScoreHistory, 0, len(s.granted))
	for _, g := range s.granted {
		out = append(out, g)
	}
	return out
}
