package rewards

import (
	"context"
	"testing"
	"time"

	"amora-platform/internal/callsession"
	"amora-platform/internal/rates"
	"amora-platform/internal/settlement"
	"amora-platform/internal/users"
)

func newRewardFixture(t *testing.T) (*Service, *MemoryStore, *users.MemoryStore) {
	t.Helper()

	userStore := users.NewMemoryStore()
	userStore.Put(users.User{ID: "f1", Role: "female", IsOnline: true})

	settlements := settlement.NewMemoryStore(callsession.NewMemoryStore(), userStore, rates.NewMemoryRepo())
	store := NewMemoryStore(settlements, userStore)
	store.PutRule(RewardRule{RuleType: RuleDailyAudioCallTarget, MinCount: 3, Score: 50})
	store.PutRule(RewardRule{RuleType: RuleDailyLogin, MinCount: 1, Score: 10})

	svc := NewService(store, nil)
	return svc, store, userStore
}

// seedCompletedCall inserts a completed history row directly; reward tests do
// not need the full settlement flow.
func seedCompletedCall(t *testing.T, store *MemoryStore, id, receiverID string, callType rates.CallType, at time.Time) {
	t.Helper()
	err := store.Settlements.InTx(context.Background(), func(tx settlement.Tx) error {
		return tx.InsertHistory(context.Background(), &settlement.CallHistory{
			ID:         id,
			CallID:     "call-" + id,
			CallerID:   "m1",
			ReceiverID: receiverID,
			CallType:   callType,
			Status:     settlement.StatusCompleted,
			CreatedAt:  at,
		})
	})
	if err != nil {
		t.Fatalf("seed history: %v", err)
	}
}

func TestCallTargetReward_BelowThreshold(t *testing.T) {
	svc, store, userStore := newRewardFixture(t)
	now := time.Now().UTC()

	seedCompletedCall(t, store, "h1", "f1", rates.CallTypeAudio, now)

	// One prior call + the current one = 2, below the target of 3.
	granted, err := svc.ApplyCallTargetReward(context.Background(), "f1", rates.CallTypeAudio, "h2")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if granted {
		t.Fatalf("expected no grant below threshold")
	}
	u, _ := userStore.Get(context.Background(), "f1")
	if u.TotalScore != 0 {
		t.Fatalf("expected score 0, got %d", u.TotalScore)
	}
}

func TestCallTargetReward_GrantsOnceAtThreshold(t *testing.T) {
	svc, store, userStore := newRewardFixture(t)
	now := time.Now().UTC()

	seedCompletedCall(t, store, "h1", "f1", rates.CallTypeAudio, now)
	seedCompletedCall(t, store, "h2", "f1", rates.CallTypeAudio, now)
	seedCompletedCall(t, store, "h3", "f1", rates.CallTypeAudio, now)

	// Two prior + current = 3 (h3 excluded as the settling call).
	granted, err := svc.ApplyCallTargetReward(context.Background(), "f1", rates.CallTypeAudio, "h3")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !granted {
		t.Fatalf("expected grant at threshold")
	}
	u, _ := userStore.Get(context.Background(), "f1")
	if u.TotalScore != 50 || u.DailyScore != 50 || u.WeeklyScore != 50 {
		t.Fatalf("expected all scores 50, got %d/%d/%d", u.TotalScore, u.DailyScore, u.WeeklyScore)
	}

	// A fourth completion the same day must be a no-op.
	seedCompletedCall(t, store, "h4", "f1", rates.CallTypeAudio, now)
	granted, err = svc.ApplyCallTargetReward(context.Background(), "f1", rates.CallTypeAudio, "h4")
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if granted {
		t.Fatalf("expected idempotent no-op on second grant attempt")
	}
	u, _ = userStore.Get(context.Background(), "f1")
	if u.TotalScore != 50 {
		t.Fatalf("double grant: score %d", u.TotalScore)
	}
	if got := len(store.Grants()); got != 1 {
		t.Fatalf("expected 1 score-history row, got %d", got)
	}
}

func TestCallTargetReward_CallTypesIndependent(t *testing.T) {
	svc, store, _ := newRewardFixture(t)
	store.PutRule(RewardRule{RuleType: RuleDailyVideoCallTarget, MinCount: 1, Score: 80})
	now := time.Now().UTC()

	seedCompletedCall(t, store, "h1", "f1", rates.CallTypeAudio, now)
	seedCompletedCall(t, store, "h2", "f1", rates.CallTypeAudio, now)

	// Audio calls do not count toward the video target, but the video rule's
	// own threshold of 1 is met by the settling call itself.
	granted, err := svc.ApplyCallTargetReward(context.Background(), "f1", rates.CallTypeVideo, "h3")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !granted {
		t.Fatalf("expected video grant")
	}
}

func TestCallTargetReward_InactiveRule(t *testing.T) {
	svc, store, _ := newRewardFixture(t)
	store.PutRule(RewardRule{RuleType: RuleDailyAudioCallTarget, MinCount: 1, Score: 50, Status: RuleStatusInactive})

	granted, err := svc.ApplyCallTargetReward(context.Background(), "f1", rates.CallTypeAudio, "h1")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if granted {
		t.Fatalf("expected no grant for inactive rule")
	}
}

func TestDailyLoginReward_OncePerDay(t *testing.T) {
	svc, store, userStore := newRewardFixture(t)

	granted, err := svc.ApplyDailyLoginReward(context.Background(), "f1")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !granted {
		t.Fatalf("expected first login grant")
	}

	granted, err = svc.ApplyDailyLoginReward(context.Background(), "f1")
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if granted {
		t.Fatalf("expected second login to no-op")
	}

	u, _ := userStore.Get(context.Background(), "f1")
	if u.TotalScore != 10 {
		t.Fatalf("expected score 10, got %d", u.TotalScore)
	}

	if got := len(store.Grants()); got != 1 {
		t.Fatalf("expected 1 grant, got %d", got)
	}
}

func TestDailyLoginReward_NewDayNewGrant(t *testing.T) {
	svc, store, _ := newRewardFixture(t)

	day1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return day1 })
	if granted, err := svc.ApplyDailyLoginReward(context.Background(), "f1"); err != nil || !granted {
		t.Fatalf("day 1 grant: granted=%v err=%v", granted, err)
	}

	day2 := day1.AddDate(0, 0, 1)
	svc.WithClock(func() time.Time { return day2 })
	if granted, err := svc.ApplyDailyLoginReward(context.Background(), "f1"); err != nil || !granted {
		t.Fatalf("day 2 grant: granted=%v err=%v", granted, err)
	}

	if got := len(store.Grants()); got != 2 {
		t.Fatalf("expected 2 grants across days, got %d", got)
	}
}
