package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/pkg/holiday"
)

// DefaultHolidayTTL is how long cached holiday lookups stay fresh.
// Published holiday calendars rarely change, but corrections happen.
const DefaultHolidayTTL = 90 * 24 * time.Hour

// HolidayCache adapts a Store to the holiday.Cache interface. Cache
// trouble must never fail a classification run, so errors degrade to
// cache misses and a warning.
type HolidayCache struct {
	store Store
	ttl   time.Duration
}

// NewHolidayCache wraps a store as a holiday cache. A non-positive ttl
// falls back to DefaultHolidayTTL.
func NewHolidayCache(s Store, ttl time.Duration) *HolidayCache {
	if ttl <= 0 {
		ttl = DefaultHolidayTTL
	}
	return &HolidayCache{store: s, ttl: ttl}
}

func (c *HolidayCache) Get(ctx context.Context, j holiday.Jurisdiction, year int) ([]time.Time, bool) {
	days, ok, err := c.store.GetHolidays(ctx, j.String(), year)
	if err != nil {
		zap.L().Warn("holiday cache read failed",
			zap.String("jurisdiction", j.String()),
			zap.Int("year", year),
			zap.Error(err))
		return nil, false
	}
	return days, ok
}

func (c *HolidayCache) Put(ctx context.Context, j holiday.Jurisdiction, year int, days []time.Time) {
	if err := c.store.SetHolidays(ctx, j.String(), year, days, c.ttl); err != nil {
		zap.L().Warn("holiday cache write failed",
			zap.String("jurisdiction", j.String()),
			zap.Int("year", year),
			zap.Error(err))
	}
}
