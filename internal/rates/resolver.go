package rates

import (
	"context"
	"errors"
)

// Repository abstracts rate-configuration persistence.
// Implementation can be Postgres, cached, etc.
type Repository interface {
	FindActiveLevelConfig(ctx context.Context, level int) (LevelConfig, bool, error)
	AdminConfig(ctx context.Context) (AdminConfig, bool, error)
}

var (
	ErrLevelConfigNotFound = errors.New("rates: no active level config")
	ErrRateNotSet          = errors.New("rates: rate not set for call type")
	ErrAdminConfigNotFound = errors.New("rates: admin config not found")
	ErrInvalidCallType     = errors.New("rates: invalid call type")
)

// ResolvedRates is the frozen economics snapshot for a call.
// Once copied into a call session these values must never be recomputed:
// mid-call changes to level or admin configuration must not affect an
// in-flight call.
type ResolvedRates struct {
	FemaleRatePerMinute     float64 `json:"female_rate_per_minute"`
	PlatformMarginPerMinute float64 `json:"platform_margin_per_minute"`

	FemaleRatePerSecond   float64 `json:"female_rate_per_second"`
	PlatformRatePerSecond float64 `json:"platform_rate_per_second"`

	// MalePayPerSecond is what the caller pays: female rate + platform margin.
	MalePayPerSecond float64 `json:"male_pay_per_second"`

	IsAgencyFemale bool `json:"is_agency_female"`
}

// Resolver computes per-second call rates from stored configuration.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the rates for a receiver at the given level.
// agencyAffiliated selects the agency or non-agency platform margin column.
func (r *Resolver) Resolve(ctx context.Context, level int, callType CallType, agencyAffiliated bool) (ResolvedRates, error) {
	if !callType.Valid() {
		return ResolvedRates{}, ErrInvalidCallType
	}

	lc, ok, err := r.repo.FindActiveLevelConfig(ctx, level)
	if err != nil {
		return ResolvedRates{}, err
	}
	if !ok {
		return ResolvedRates{}, ErrLevelConfigNotFound
	}

	perMinute := lc.AudioRatePerMinute
	if callType == CallTypeVideo {
		perMinute = lc.VideoRatePerMinute
	}
	if perMinute <= 0 {
		return ResolvedRates{}, ErrRateNotSet
	}

	cfg, ok, err := r.repo.AdminConfig(ctx)
	if err != nil {
		return ResolvedRates{}, err
	}
	if !ok {
		return ResolvedRates{}, ErrAdminConfigNotFound
	}

	margin := cfg.PlatformMarginNonAgencyPerMinute
	if agencyAffiliated {
		margin = cfg.PlatformMarginAgencyPerMinute
	}

	femalePerSec := perMinute / 60
	platformPerSec := margin / 60

	return ResolvedRates{
		FemaleRatePerMinute:     perMinute,
		PlatformMarginPerMinute: margin,
		FemaleRatePerSecond:     femalePerSec,
		PlatformRatePerSecond:   platformPerSec,
		MalePayPerSecond:        femalePerSec + platformPerSec,
		IsAgencyFemale:          agencyAffiliated,
	}, nil
}

// Config exposes the admin configuration for pre-call checks (min coins).
func (r *Resolver) Config(ctx context.Context) (AdminConfig, bool, error) {
	return r.repo.AdminConfig(ctx)
}
