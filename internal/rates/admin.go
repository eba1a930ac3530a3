package rates

import (
	"context"
	"errors"
	"fmt"

	"amora-platform/internal/audit"
)

// AdminRepository extends Repository with the write operations used by the
// admin configuration endpoints.
type AdminRepository interface {
	Repository
	UpsertLevelConfig(ctx context.Context, lc LevelConfig) (LevelConfig, error)
	UpdateAdminConfig(ctx context.Context, cfg AdminConfig) (AdminConfig, error)
}

var ErrInvalidConfig = errors.New("rates: invalid config")

// AdminService applies admin rate-configuration changes with an audit trail.
// Changes never touch in-flight sessions: frozen session rates are the
// authority for settlement.
type AdminService struct {
	repo  AdminRepository
	audit *audit.Service
}

func NewAdminService(repo AdminRepository, auditSvc *audit.Service) *AdminService {
	return &AdminService{repo: repo, audit: auditSvc}
}

func (s *AdminService) SetLevelConfig(ctx context.Context, actorID, actorRole, ip string, lc LevelConfig) (LevelConfig, error) {
	if lc.Level < 0 {
		return LevelConfig{}, ErrInvalidConfig
	}
	if lc.AudioRatePerMinute < 0 || lc.VideoRatePerMinute < 0 {
		return LevelConfig{}, ErrInvalidConfig
	}

	out, err := s.repo.UpsertLevelConfig(ctx, lc)
	if err != nil {
		return LevelConfig{}, err
	}

	if s.audit != nil {
		meta := fmt.Sprintf(`{"audio_rate_per_minute":%g,"video_rate_per_minute":%g}`,
			out.AudioRatePerMinute, out.VideoRatePerMinute)
		// Best-effort; config change already committed.
		_ = s.audit.LogLevelConfigChange(ctx, actorID, actorRole, ip, out.Level, meta)
	}
	return out, nil
}

func (s *AdminService) SetAdminConfig(ctx context.Context, actorID, actorRole, ip string, cfg AdminConfig) (AdminConfig, error) {
	if cfg.AdminSharePercentage != nil {
		if p := *cfg.AdminSharePercentage; p < 0 || p > 100 {
			return AdminConfig{}, ErrInvalidConfig
		}
	}
	if cfg.MinCallCoins < 0 {
		return AdminConfig{}, ErrInvalidConfig
	}
	if cfg.PlatformMarginAgencyPerMinute < 0 || cfg.PlatformMarginNonAgencyPerMinute < 0 {
		return AdminConfig{}, ErrInvalidConfig
	}

	out, err := s.repo.UpdateAdminConfig(ctx, cfg)
	if err != nil {
		return AdminConfig{}, err
	}

	if s.audit != nil {
		meta := fmt.Sprintf(`{"min_call_coins":%g,"platform_margin_agency_per_minute":%g,"platform_margin_non_agency_per_minute":%g}`,
			out.MinCallCoins, out.PlatformMarginAgencyPerMinute, out.PlatformMarginNonAgencyPerMinute)
		_ = s.audit.LogAdminConfigChange(ctx, actorID, actorRole, ip, meta)
	}
	return out, nil
}
