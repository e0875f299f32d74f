// Package store persists imported location points and cached holiday
// lookups in SQLite or PostgreSQL.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wherewasi/wherewasi/internal/model"
)

// ErrNotFound reports a lookup that matched no row. Both backends wrap
// it, so callers test with eris.Is.
var ErrNotFound = eris.New("not found")

// Import records one archive ingestion. Points and Skipped stay zero
// until FinishImport seals the run.
type Import struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Points     int64      `json:"points"`
	Skipped    int64      `json:"skipped"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the import has been sealed.
func (i Import) Finished() bool { return i.FinishedAt != nil }

// PointFilter narrows a point query. Zero time bounds mean unbounded;
// a non-positive limit returns everything, since classification needs
// the full import.
type PointFilter struct {
	ImportID string    `json:"import_id,omitempty"`
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// Store defines the persistence interface shared by the SQLite and
// PostgreSQL backends.
type Store interface {
	// Imports
	CreateImport(ctx context.Context, source string) (*Import, error)
	FinishImport(ctx context.Context, importID string, points, skipped int64) error
	GetImport(ctx context.Context, importID string) (*Import, error)
	ListImports(ctx context.Context, limit int) ([]Import, error)

	// Points
	AddPoints(ctx context.Context, importID string, points []model.Point) (int64, error)
	Points(ctx context.Context, filter PointFilter) ([]model.Point, error)
	CountPoints(ctx context.Context, importID string) (int64, error)

	// Holiday cache
	GetHolidays(ctx context.Context, jurisdiction string, year int) ([]time.Time, bool, error)
	SetHolidays(ctx context.Context, jurisdiction string, year int, days []time.Time, ttl time.Duration) error
	DeleteExpiredHolidays(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
