package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/store"
)

const testArchive = `{
  "locations": [
    {"latitudeE7": 480000000, "longitudeE7": 115000000, "accuracy": 10, "timestamp": "2024-03-05T09:00:00Z"},
    {"latitudeE7": 481000000, "longitudeE7": 115500000, "accuracy": 12, "timestamp": "2024-03-05T10:00:00Z"},
    {"latitudeE7": 482000000, "longitudeE7": 116000000, "accuracy": 8}
  ]
}`

// writeArchive drops an archive fixture into a temp dir.
func writeArchive(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "takeout.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestStore opens a throwaway SQLite store with migrations applied.
func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestYearSpan_ExplicitYearWins(t *testing.T) {
	points := []model.Point{
		{Time: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	from, to := yearSpan(2024, points)
	assert.Equal(t, 2024, from)
	assert.Equal(t, 2024, to)
}

func TestYearSpan_DerivedFromData(t *testing.T) {
	points := []model.Point{
		{Time: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2023, 8, 15, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	from, to := yearSpan(0, points)
	assert.Equal(t, 2023, from)
	assert.Equal(t, 2025, to)
}

func TestYearSpan_IgnoresZeroTimes(t *testing.T) {
	points := []model.Point{
		{},
		{Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}

	from, to := yearSpan(0, points)
	assert.Equal(t, 2024, from)
	assert.Equal(t, 2024, to)
}

func TestYearSpan_EmptyFallsBackToCurrentYear(t *testing.T) {
	now := time.Now().UTC().Year()

	from, to := yearSpan(0, nil)
	assert.Equal(t, now, from)
	assert.Equal(t, now, to)
}

func TestLoadPoints_RequiresSource(t *testing.T) {
	st := newTestStore(t)

	_, err := loadPoints(context.Background(), st, "", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestLoadPoints_RejectsBothSources(t *testing.T) {
	st := newTestStore(t)

	_, err := loadPoints(context.Background(), st, "some-id", "some-file", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestLoadPoints_FromArchiveFile(t *testing.T) {
	st := newTestStore(t)
	path := writeArchive(t, testArchive)

	points, err := loadPoints(context.Background(), st, "", path, 0)
	require.NoError(t, err)

	// The record without a timestamp stays as a zero point so
	// classification counts the skip.
	require.Len(t, points, 3)
	assert.Equal(t, 48.0, points[0].Lat)
	assert.Equal(t, 11.5, points[0].Lng)
	assert.False(t, points[2].TimeValid())
}

func TestLoadPoints_FromArchiveFileWithYear(t *testing.T) {
	st := newTestStore(t)
	path := writeArchive(t, `{
  "locations": [
    {"latitudeE7": 480000000, "longitudeE7": 115000000, "timestamp": "2023-12-31T23:00:00Z"},
    {"latitudeE7": 481000000, "longitudeE7": 115500000, "timestamp": "2024-03-05T09:00:00Z"},
    {"latitudeE7": 482000000, "longitudeE7": 116000000}
  ]
}`)

	points, err := loadPoints(context.Background(), st, "", path, 2024)
	require.NoError(t, err)

	// The 2023 point is dropped; the timestamp-less record stays so
	// classification counts the skip.
	require.Len(t, points, 2)
	assert.Equal(t, 48.1, points[0].Lat)
	assert.False(t, points[1].TimeValid())
}

func TestFilterYear_ZeroKeepsEverything(t *testing.T) {
	points := []model.Point{
		{Time: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	assert.Len(t, filterYear(points, 0), 2)
}

func TestLoadPoints_FromImport(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	imp, err := st.CreateImport(ctx, "takeout.json")
	require.NoError(t, err)

	_, err = st.AddPoints(ctx, imp.ID, []model.Point{
		{Time: time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), Lat: 48, Lng: 11.5},
		{Time: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), Lat: 48.1, Lng: 11.55},
	})
	require.NoError(t, err)

	all, err := loadPoints(ctx, st, imp.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := loadPoints(ctx, st, imp.ID, "", 2024)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, 48.1, scoped[0].Lat)
}

func TestCollectArchivePoints_BadJSON(t *testing.T) {
	path := writeArchive(t, `{"locations": [{"latitudeE7": `)

	_, err := readArchivePoints(context.Background(), path)
	require.Error(t, err)
}
