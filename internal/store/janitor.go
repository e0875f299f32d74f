package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor deletes expired holiday cache rows on a fixed interval so a
// long-running server does not accumulate stale years.
type Janitor struct {
	store    Store
	interval time.Duration
}

// NewJanitor creates a janitor. A non-positive interval defaults to
// 24 hours.
func NewJanitor(s Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Janitor{store: s, interval: interval}
}

// Run sweeps once immediately and then once per interval. It blocks
// until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "store.janitor"))
	log.Info("starting holiday cache janitor", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("holiday cache janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx, log)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context, log *zap.Logger) {
	n, err := j.store.DeleteExpiredHolidays(ctx)
	if err != nil {
		log.Error("janitor: delete expired holiday rows", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("janitor: expired holiday rows deleted", zap.Int("rows", n))
	}
}
