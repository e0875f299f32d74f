package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/visit"
)

func TestWritePointsCSV(t *testing.T) {
	points := []model.ClassifiedPoint{
		{
			Point: model.Point{
				Time:     time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
				Lat:      48.1374,
				Lng:      11.5755,
				Accuracy: 12,
			},
			DayType:  model.DayWorkday,
			WorkHour: true,
			Area:     "office",
		},
		{
			Point: model.Point{
				Time: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
				Lat:  47.5,
				Lng:  10.5,
			},
			DayType: model.DayWeekend,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePointsCSV(&buf, points))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, pointColumns, rows[0])
	assert.Equal(t, []string{
		"2024-03-05T10:00:00Z", "48.1374", "11.5755", "12", "workday", "true", "office",
	}, rows[1])
	assert.Equal(t, []string{
		"2024-03-09T14:30:00Z", "47.5", "10.5", "0", "weekend", "false", "",
	}, rows[2])
}

func TestWritePointsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePointsCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pointColumns, rows[0])
}

func TestWriteVisitsCSV(t *testing.T) {
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	visits := []visit.Visit{
		{Area: "office", Date: "2024-03-05", Start: start, End: start.Add(4 * time.Hour), Points: 16},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteVisitsCSV(&buf, visits))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, visitColumns, rows[0])
	assert.Equal(t, []string{
		"office", "2024-03-05", "2024-03-05T09:00:00Z", "2024-03-05T13:00:00Z", "4h0m0s", "16",
	}, rows[1])
}
