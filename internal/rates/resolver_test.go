package rates

import (
	"context"
	"errors"
	"math"
	"testing"
)

func seedRepo(t *testing.T) *MemoryRepo {
	t.Helper()
	repo := NewMemoryRepo()
	_, err := repo.UpsertLevelConfig(context.Background(), LevelConfig{
		Level:              0,
		AudioRatePerMinute: 40,
		VideoRatePerMinute: 60,
	})
	if err != nil {
		t.Fatalf("seed level config: %v", err)
	}
	share := 70.0
	_, err = repo.UpdateAdminConfig(context.Background(), AdminConfig{
		AdminSharePercentage:             &share,
		MinCallCoins:                     0,
		PlatformMarginAgencyPerMinute:    15,
		PlatformMarginNonAgencyPerMinute: 10,
	})
	if err != nil {
		t.Fatalf("seed admin config: %v", err)
	}
	return repo
}

func TestResolve_VideoNonAgency(t *testing.T) {
	r := NewResolver(seedRepo(t))

	got, err := r.Resolve(context.Background(), 0, CallTypeVideo, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.FemaleRatePerSecond != 1.0 {
		t.Fatalf("expected female rate 1.0/sec, got %v", got.FemaleRatePerSecond)
	}
	if math.Abs(got.PlatformRatePerSecond-10.0/60) > 1e-9 {
		t.Fatalf("expected platform rate 0.1667/sec, got %v", got.PlatformRatePerSecond)
	}
	if math.Abs(got.MalePayPerSecond-(1.0+10.0/60)) > 1e-9 {
		t.Fatalf("expected combined rate ~1.1667/sec, got %v", got.MalePayPerSecond)
	}
	if got.IsAgencyFemale {
		t.Fatalf("expected non-agency rates")
	}
}

func TestResolve_AgencySelectsAgencyMargin(t *testing.T) {
	r := NewResolver(seedRepo(t))

	got, err := r.Resolve(context.Background(), 0, CallTypeAudio, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.PlatformMarginPerMinute != 15 {
		t.Fatalf("expected agency margin column, got %v", got.PlatformMarginPerMinute)
	}
	if got.FemaleRatePerMinute != 40 {
		t.Fatalf("expected audio rate 40/min, got %v", got.FemaleRatePerMinute)
	}
	if !got.IsAgencyFemale {
		t.Fatalf("expected agency flag set")
	}
}

func TestResolve_MissingLevelConfig(t *testing.T) {
	repo := NewMemoryRepo()
	share := 70.0
	if _, err := repo.UpdateAdminConfig(context.Background(), AdminConfig{AdminSharePercentage: &share}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewResolver(repo)

	_, err := r.Resolve(context.Background(), 3, CallTypeAudio, false)
	if !errors.Is(err, ErrLevelConfigNotFound) {
		t.Fatalf("expected ErrLevelConfigNotFound, got %v", err)
	}
}

func TestResolve_ZeroRateFails(t *testing.T) {
	repo := seedRepo(t)
	if _, err := repo.UpsertLevelConfig(context.Background(), LevelConfig{Level: 1, AudioRatePerMinute: 0, VideoRatePerMinute: 50}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewResolver(repo)

	if _, err := r.Resolve(context.Background(), 1, CallTypeAudio, false); !errors.Is(err, ErrRateNotSet) {
		t.Fatalf("expected ErrRateNotSet, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), 1, CallTypeVideo, false); err != nil {
		t.Fatalf("video rate is set, got %v", err)
	}
}

func TestResolve_InvalidCallType(t *testing.T) {
	r := NewResolver(seedRepo(t))
	if _, err := r.Resolve(context.Background(), 0, CallType("group"), false); !errors.Is(err, ErrInvalidCallType) {
		t.Fatalf("expected ErrInvalidCallType, got %v", err)
	}
}
