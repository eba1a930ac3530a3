package callsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"amora-platform/internal/rates"
	"amora-platform/internal/users"
)

func newTestService(t *testing.T) (*Service, *users.MemoryStore, *MemoryStore) {
	t.Helper()

	rateRepo := rates.NewMemoryRepo()
	if _, err := rateRepo.UpsertLevelConfig(context.Background(), rates.LevelConfig{
		Level:              0,
		AudioRatePerMinute: 40,
		VideoRatePerMinute: 60,
	}); err != nil {
		t.Fatalf("seed level config: %v", err)
	}
	share := 70.0
	if _, err := rateRepo.UpdateAdminConfig(context.Background(), rates.AdminConfig{
		AdminSharePercentage:             &share,
		MinCallCoins:                     10,
		PlatformMarginAgencyPerMinute:    15,
		PlatformMarginNonAgencyPerMinute: 10,
	}); err != nil {
		t.Fatalf("seed admin config: %v", err)
	}

	userStore := users.NewMemoryStore()
	userStore.Put(users.User{ID: "m1", Role: "male", CoinBalance: 100})
	userStore.Put(users.User{ID: "f1", Role: "female", Level: 0, IsOnline: true})

	sessStore := NewMemoryStore()
	svc := NewService(userStore, rates.NewResolver(rateRepo), sessStore, nil, 2*time.Hour, 30, nil)
	return svc, userStore, sessStore
}

func TestStart_FreezesRatesAndComputesBudget(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.Start(context.Background(), "m1", "f1", rates.CallTypeVideo)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.AlreadyActive {
		t.Fatalf("expected fresh session")
	}
	if got.Session.FemaleRatePerSecond != 1.0 {
		t.Fatalf("expected frozen female rate 1.0/sec, got %v", got.Session.FemaleRatePerSecond)
	}
	// floor(100 / (70/60)) = 85
	if got.MaxSeconds != 85 {
		t.Fatalf("expected max seconds 85, got %d", got.MaxSeconds)
	}
	if !got.Session.IsActive {
		t.Fatalf("expected active session")
	}
	wantExpiry := got.Session.CreatedAt.Add(2 * time.Hour)
	if !got.Session.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, got.Session.ExpiresAt)
	}
}

func TestStart_SelfCallRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Start(context.Background(), "m1", "m1", rates.CallTypeAudio); !errors.Is(err, ErrSelfCall) {
		t.Fatalf("expected ErrSelfCall, got %v", err)
	}
}

func TestStart_ReceiverChecks(t *testing.T) {
	svc, userStore, _ := newTestService(t)

	if _, err := svc.Start(context.Background(), "m1", "ghost", rates.CallTypeAudio); !errors.Is(err, ErrReceiverNotFound) {
		t.Fatalf("expected ErrReceiverNotFound, got %v", err)
	}

	userStore.Put(users.User{ID: "f2", Role: "female", IsOnline: false})
	if _, err := svc.Start(context.Background(), "m1", "f2", rates.CallTypeAudio); !errors.Is(err, ErrReceiverOffline) {
		t.Fatalf("expected ErrReceiverOffline, got %v", err)
	}

	userStore.Block("f1", "m1")
	if _, err := svc.Start(context.Background(), "m1", "f1", rates.CallTypeAudio); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestStart_InsufficientForMinimumBillable(t *testing.T) {
	svc, userStore, _ := newTestService(t)
	userStore.Put(users.User{ID: "m2", Role: "male", CoinBalance: 20})

	_, err := svc.Start(context.Background(), "m2", "f1", rates.CallTypeVideo)
	var insErr *InsufficientBalanceError
	if !errors.As(err, &insErr) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	// ceil(30 * 70/60) = 35
	if insErr.Required != 35 {
		t.Fatalf("expected required 35, got %v", insErr.Required)
	}
	if insErr.Available != 20 {
		t.Fatalf("expected available 20, got %v", insErr.Available)
	}
}

func TestStart_MinCallCoinsFloor(t *testing.T) {
	svc, userStore, _ := newTestService(t)
	userStore.Put(users.User{ID: "m3", Role: "male", CoinBalance: 5})

	_, err := svc.Start(context.Background(), "m3", "f1", rates.CallTypeAudio)
	var insErr *InsufficientBalanceError
	if !errors.As(err, &insErr) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insErr.Required != 10 {
		t.Fatalf("expected anti-spam minimum 10, got %v", insErr.Required)
	}
}

func TestStart_ExistingSessionReturned(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.Start(context.Background(), "m1", "f1", rates.CallTypeAudio)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}

	second, err := svc.Start(context.Background(), "m1", "f1", rates.CallTypeAudio)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !second.AlreadyActive {
		t.Fatalf("expected recovered session")
	}
	if second.Session.CallID != first.Session.CallID {
		t.Fatalf("expected same call id, got %s and %s", first.Session.CallID, second.Session.CallID)
	}
}

func TestDeactivateExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	mustCreate := func(s Session) {
		t.Helper()
		if err := store.Create(context.Background(), s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mustCreate(Session{CallID: "c1", CallerID: "a", IsActive: true, ExpiresAt: now.Add(-time.Minute)})
	mustCreate(Session{CallID: "c2", CallerID: "b", IsActive: true, ExpiresAt: now.Add(time.Hour)})

	n, err := store.DeactivateExpired(context.Background(), now, 100)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed session, got %d", n)
	}
	if _, ok, _ := store.FindActiveByCaller(context.Background(), "a"); ok {
		t.Fatalf("expected expired session to be inactive")
	}
	if _, ok, _ := store.FindActiveByCaller(context.Background(), "b"); !ok {
		t.Fatalf("expected live session to remain active")
	}
}
