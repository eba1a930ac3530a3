package rates

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PostgresRepo persists rate configuration.
// admin_config is a single-row table (id = TRUE enforced by a check constraint).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) FindActiveLevelConfig(ctx context.Context, level int) (LevelConfig, bool, error) {
	const q = `
SELECT id, level, audio_rate_per_minute, video_rate_per_minute, status, created_at, updated_at
FROM level_configs
WHERE level = $1 AND status = 'active'
LIMIT 1
`
	var lc LevelConfig
	err := r.db.QueryRowContext(ctx, q, level).Scan(
		&lc.ID,
		&lc.Level,
		&lc.AudioRatePerMinute,
		&lc.VideoRatePerMinute,
		&lc.Status,
		&lc.CreatedAt,
		&lc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LevelConfig{}, false, nil
		}
		return LevelConfig{}, false, err
	}
	return lc, true, nil
}

func (r *PostgresRepo) AdminConfig(ctx context.Context) (AdminConfig, bool, error) {
	const q = `
SELECT admin_share_percentage, min_call_coins,
       platform_margin_agency_per_minute, platform_margin_non_agency_per_minute, updated_at
FROM admin_config
LIMIT 1
`
	var cfg AdminConfig
	err := r.db.QueryRowContext(ctx, q).Scan(
		&cfg.AdminSharePercentage,
		&cfg.MinCallCoins,
		&cfg.PlatformMarginAgencyPerMinute,
		&cfg.PlatformMarginNonAgencyPerMinute,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AdminConfig{}, false, nil
		}
		return AdminConfig{}, false, err
	}
	return cfg, true, nil
}

func (r *PostgresRepo) UpsertLevelConfig(ctx context.Context, lc LevelConfig) (LevelConfig, error) {
	now := time.Now().UTC()
	if lc.ID == "" {
		lc.ID = uuid.NewString()
	}
	lc.CreatedAt = now
	lc.UpdatedAt = now
	if lc.Status == "" {
		lc.Status = ConfigStatusActive
	}

	// Deactivate any previous active config for the level, then insert the new
	// row. Sessions already started keep their frozen rates regardless.
	const deactivate = `
UPDATE level_configs SET status = 'inactive', updated_at = $2
WHERE level = $1 AND status = 'active'
`
	const insert = `
INSERT INTO level_configs (id, level, audio_rate_per_minute, video_rate_per_minute, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return LevelConfig{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if lc.Status == ConfigStatusActive {
		if _, err := tx.ExecContext(ctx, deactivate, lc.Level, now); err != nil {
			return LevelConfig{}, err
		}
	}
	if _, err := tx.ExecContext(ctx, insert,
		lc.ID, lc.Level, lc.AudioRatePerMinute, lc.VideoRatePerMinute, lc.Status, lc.CreatedAt, lc.UpdatedAt,
	); err != nil {
		return LevelConfig{}, err
	}
	if err := tx.Commit(); err != nil {
		return LevelConfig{}, err
	}
	return lc, nil
}

func (r *PostgresRepo) UpdateAdminConfig(ctx context.Context, cfg AdminConfig) (AdminConfig, error) {
	cfg.UpdatedAt = time.Now().UTC()
	const q = `
INSERT INTO admin_config (singleton, admin_share_percentage, min_call_coins,
                          platform_margin_agency_per_minute, platform_margin_non_agency_per_minute, updated_at)
VALUES (TRUE, $1, $2, $3, $4, $5)
ON CONFLICT (singleton)
DO UPDATE SET admin_share_percentage = EXCLUDED.admin_share_percentage,
              min_call_coins = EXCLUDED.min_call_coins,
              platform_margin_agency_per_minute = EXCLUDED.platform_margin_agency_per_minute,
              platform_margin_non_agency_per_minute = EXCLUDED.platform_margin_non_agency_per_minute,
              updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		cfg.AdminSharePercentage,
		cfg.MinCallCoins,
		cfg.PlatformMarginAgencyPerMinute,
		cfg.PlatformMarginNonAgencyPerMinute,
		cfg.UpdatedAt,
	)
	if err != nil {
		return AdminConfig{}, err
	}
	return cfg, nil
}
