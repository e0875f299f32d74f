package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/pkg/holiday"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func pt(t *testing.T, ts string, lat, lng float64) model.Point {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	return model.Point{Time: parsed, Lat: lat, Lng: lng, Accuracy: 10}
}

// --- Imports ---

func TestSQLite_ImportLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "takeout-2024.json")
	require.NoError(t, err)
	require.NotEmpty(t, imp.ID)
	assert.False(t, imp.Finished())

	got, err := st.GetImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, "takeout-2024.json", got.Source)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, st.FinishImport(ctx, imp.ID, 120, 3))

	got, err = st.GetImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got.Points)
	assert.Equal(t, int64(3), got.Skipped)
	assert.True(t, got.Finished())
}

func TestSQLite_FinishImport_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishImport(context.Background(), "no-such-import", 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_GetImport_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetImport(context.Background(), "no-such-import")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListImports_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateImport(ctx, "first.json")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.CreateImport(ctx, "second.json")
	require.NoError(t, err)

	imports, err := st.ListImports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, second.ID, imports[0].ID)
	assert.Equal(t, first.ID, imports[1].ID)

	limited, err := st.ListImports(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

// --- Points ---

func TestSQLite_AddPointsAndQuery(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "takeout.json")
	require.NoError(t, err)

	n, err := st.AddPoints(ctx, imp.ID, []model.Point{
		pt(t, "2024-03-05T10:00:00Z", 48.1, 11.5),
		pt(t, "2024-03-05T09:00:00Z", 48.2, 11.6),
		pt(t, "2024-03-05T11:00:00Z", 48.3, 11.7),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	points, err := st.Points(ctx, PointFilter{ImportID: imp.ID})
	require.NoError(t, err)
	require.Len(t, points, 3)

	// Returned in timestamp order regardless of insert order.
	assert.Equal(t, "2024-03-05T09:00:00Z", points[0].Time.Format(time.RFC3339))
	assert.Equal(t, "2024-03-05T10:00:00Z", points[1].Time.Format(time.RFC3339))
	assert.Equal(t, "2024-03-05T11:00:00Z", points[2].Time.Format(time.RFC3339))
	assert.InDelta(t, 48.2, points[0].Lat, 1e-9)
	assert.Equal(t, 10, points[0].Accuracy)

	count, err := st.CountPoints(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLite_AddPoints_SecondBatchContinuesSequence(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "takeout.json")
	require.NoError(t, err)

	_, err = st.AddPoints(ctx, imp.ID, []model.Point{
		pt(t, "2024-03-05T09:00:00Z", 48.1, 11.5),
		pt(t, "2024-03-05T10:00:00Z", 48.1, 11.5),
	})
	require.NoError(t, err)

	_, err = st.AddPoints(ctx, imp.ID, []model.Point{
		pt(t, "2024-03-05T11:00:00Z", 48.1, 11.5),
	})
	require.NoError(t, err)

	count, err := st.CountPoints(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLite_Points_TimeRange(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "takeout.json")
	require.NoError(t, err)

	_, err = st.AddPoints(ctx, imp.ID, []model.Point{
		pt(t, "2024-03-04T10:00:00Z", 48.1, 11.5),
		pt(t, "2024-03-05T10:00:00Z", 48.1, 11.5),
		pt(t, "2024-03-06T10:00:00Z", 48.1, 11.5),
	})
	require.NoError(t, err)

	from, _ := time.Parse(time.RFC3339, "2024-03-05T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2024-03-06T00:00:00Z")

	points, err := st.Points(ctx, PointFilter{ImportID: imp.ID, From: from, To: to})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-03-05T10:00:00Z", points[0].Time.Format(time.RFC3339))
}

func TestSQLite_Points_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	points, err := st.Points(context.Background(), PointFilter{ImportID: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSQLite_AddPoints_EmptySlice(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.AddPoints(context.Background(), "whatever", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

// --- Holiday cache ---

func TestSQLite_HolidayCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	days := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.SetHolidays(ctx, "DE-BY", 2024, days, time.Hour))

	got, ok, err := st.GetHolidays(ctx, "DE-BY", 2024)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, days, got)
}

func TestSQLite_HolidayCache_Miss(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, ok, err := st.GetHolidays(context.Background(), "FR", 2024)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_HolidayCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	days := []time.Time{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, st.SetHolidays(ctx, "DE", 2023, days, -time.Hour))

	_, ok, err := st.GetHolidays(ctx, "DE", 2023)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := st.DeleteExpiredHolidays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestSQLite_HolidayCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetHolidays(ctx, "US", 2024,
		[]time.Time{time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)}, time.Hour))
	require.NoError(t, st.SetHolidays(ctx, "US", 2024,
		[]time.Time{time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)}, time.Hour))

	got, ok, err := st.GetHolidays(ctx, "US", 2024)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

// --- holiday.Cache adapter ---

func TestHolidayCache_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	cache := NewHolidayCache(st, time.Hour)

	j := holiday.Jurisdiction{State: "DE", Province: "BY"}
	days := []time.Time{time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)}

	_, ok := cache.Get(ctx, j, 2024)
	assert.False(t, ok)

	cache.Put(ctx, j, 2024, days)

	got, ok := cache.Get(ctx, j, 2024)
	require.True(t, ok)
	assert.Equal(t, days, got)
}

func TestHolidayCache_ErrorsDegradeToMiss(t *testing.T) {
	st := newTestSQLiteStore(t)
	cache := NewHolidayCache(st, time.Hour)
	require.NoError(t, st.Close())

	// A closed store errors underneath; the cache treats that as a miss.
	_, ok := cache.Get(context.Background(), holiday.Jurisdiction{State: "DE"}, 2024)
	assert.False(t, ok)
	cache.Put(context.Background(), holiday.Jurisdiction{State: "DE"}, 2024, nil)
}
