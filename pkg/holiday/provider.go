// Package holiday resolves official public-holiday calendars for a
// jurisdiction via an embedded calendar registry (primary) and the
// Nager.Date API (optional fallback).
package holiday

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Jurisdiction identifies a public-holiday calendar: an ISO 3166-1
// country code plus an optional subdivision code.
type Jurisdiction struct {
	State    string // e.g. "DE", "US"
	Province string // e.g. "BY"; empty selects the national calendar
}

func (j Jurisdiction) String() string {
	if j.Province == "" {
		return j.State
	}
	return j.State + "-" + j.Province
}

// ErrUnknownJurisdiction marks a state/province pair that no provider
// can resolve.
var ErrUnknownJurisdiction = eris.New("holiday: unknown jurisdiction")

// Provider represents a single holiday-calendar backend.
type Provider interface {
	Name() string
	// Resolve returns the official holiday dates for the span
	// [fromYear, toYear], both ends inclusive, as midnight UTC markers.
	Resolve(ctx context.Context, j Jurisdiction, fromYear, toYear int) ([]time.Time, error)
	Available() bool
}

// Cascade tries providers in order until one resolves, consulting the
// cache per year first. A provider error falls through to the next
// provider; only when every provider has failed does Resolve fail.
type Cascade struct {
	providers []Provider
	cache     Cache
}

// CascadeOption configures the Cascade.
type CascadeOption func(*Cascade)

// WithCache sets the per-year calendar cache.
func WithCache(cache Cache) CascadeOption {
	return func(c *Cascade) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// NewCascade creates a Cascade that tries providers in order.
func NewCascade(providers []Provider, opts ...CascadeOption) *Cascade {
	c := &Cascade{providers: providers, cache: NopCache{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Provider.
func (c *Cascade) Name() string { return "cascade" }

// Available implements Provider.
func (c *Cascade) Available() bool { return len(c.providers) > 0 }

// Resolve implements Provider.
func (c *Cascade) Resolve(ctx context.Context, j Jurisdiction, fromYear, toYear int) ([]time.Time, error) {
	if fromYear > toYear {
		return nil, eris.Errorf("holiday: inverted year span %d..%d", fromYear, toYear)
	}

	var days []time.Time
	for year := fromYear; year <= toYear; year++ {
		if cached, ok := c.cache.Get(ctx, j, year); ok {
			days = append(days, cached...)
			continue
		}
		resolved, err := c.resolveYear(ctx, j, year)
		if err != nil {
			return nil, err
		}
		c.cache.Put(ctx, j, year, resolved)
		days = append(days, resolved...)
	}

	sort.Slice(days, func(i, k int) bool { return days[i].Before(days[k]) })
	return days, nil
}

func (c *Cascade) resolveYear(ctx context.Context, j Jurisdiction, year int) ([]time.Time, error) {
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		days, err := p.Resolve(ctx, j, year, year)
		if err != nil {
			zap.L().Debug("holiday cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Stringer("jurisdiction", j),
				zap.Int("year", year),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		return days, nil
	}
	if lastErr == nil {
		lastErr = eris.Wrap(ErrUnknownJurisdiction, "no provider available")
	}
	return nil, eris.Wrapf(lastErr, "holiday: resolve %s %d", j, year)
}
