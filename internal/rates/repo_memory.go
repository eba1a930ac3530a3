package rates

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory rate-config repository for tests and early development.
type MemoryRepo struct {
	mu sync.Mutex

	levels map[int]LevelConfig // active config per level
	admin  *AdminConfig
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{levels: map[int]LevelConfig{}}
}

func (r *MemoryRepo) FindActiveLevelConfig(_ context.Context, level int) (LevelConfig, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lc, ok := r.levels[level]
	if !ok || lc.Status != ConfigStatusActive {
		return LevelConfig{}, false, nil
	}
	return lc, true, nil
}

func (r *MemoryRepo) AdminConfig(_ context.Context) (AdminConfig, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.admin == nil {
		return AdminConfig{}, false, nil
	}
	return *r.admin, true, nil
}

func (r *MemoryRepo) UpsertLevelConfig(_ context.Context, lc LevelConfig) (LevelConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lc.ID == "" {
		lc.ID = uuid.NewString()
	}
	if lc.Status == "" {
		lc.Status = ConfigStatusActive
	}
	lc.UpdatedAt = time.Now().UTC()
	r.levels[lc.Level] = lc
	return lc, nil
}

func (r *MemoryRepo) UpdateAdminConfig(_ context.Context, cfg AdminConfig) (AdminConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.UpdatedAt = time.Now().UTC()
	r.admin = &cfg
	return cfg, nil
}
