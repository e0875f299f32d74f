// Package export renders classified points, visits, and areas as CSV,
// XLSX, and GeoJSON.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/visit"
)

// pointColumns defines the ordered classified-point CSV output columns.
var pointColumns = []string{
	"time",
	"lat",
	"lng",
	"accuracy",
	"day_type",
	"work_hour",
	"area",
}

// WritePointsCSV writes classified points as CSV with a header row.
func WritePointsCSV(w io.Writer, points []model.ClassifiedPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(pointColumns); err != nil {
		return eris.Wrap(err, "export: write points header")
	}

	for _, p := range points {
		row := []string{
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			strconv.FormatFloat(p.Lng, 'f', -1, 64),
			strconv.Itoa(p.Accuracy),
			string(p.DayType),
			strconv.FormatBool(p.WorkHour),
			p.Area,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write point row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush points")
}

// visitColumns defines the ordered visit CSV output columns.
var visitColumns = []string{
	"area",
	"date",
	"start",
	"end",
	"stay",
	"points",
}

// WriteVisitsCSV writes visits as CSV with a header row.
func WriteVisitsCSV(w io.Writer, visits []visit.Visit) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(visitColumns); err != nil {
		return eris.Wrap(err, "export: write visits header")
	}

	for _, v := range visits {
		row := []string{
			v.Area,
			v.Date,
			v.Start.UTC().Format(time.RFC3339),
			v.End.UTC().Format(time.RFC3339),
			v.Stay().String(),
			strconv.Itoa(v.Points),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write visit row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush visits")
}
