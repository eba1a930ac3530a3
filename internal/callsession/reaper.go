package callsession

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically deactivates sessions whose expiry has passed. It is the
// crash-recovery backstop for clients that start a call and never end it.
type Reaper struct {
	store    Store
	interval time.Duration
	batch    int

	now func() time.Time
	log *slog.Logger
}

func NewReaper(store Store, interval time.Duration, log *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{
		store:    store,
		interval: interval,
		batch:    500,
		now:      time.Now,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. Callers run it in its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("session reaper started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("session reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	n, err := r.store.DeactivateExpired(ctx, r.now(), r.batch)
	if err != nil {
		r.log.Error("expired session sweep failed", "error", err)
		return
	}
	if n > 0 {
		r.log.Info("expired sessions deactivated", "count", n)
	}
}
