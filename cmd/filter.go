package main

import (
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/wherewasi/wherewasi/internal/model"
)

// dayTypes lists the accepted --day-type and day_type values.
var dayTypes = []model.DayType{
	model.DayWorkday,
	model.DayWeekend,
	model.DayHoliday,
	model.DayVacation,
	model.DayExtraWorkday,
}

// parseDayType validates a user-supplied day type label.
func parseDayType(s string) (model.DayType, error) {
	for _, dt := range dayTypes {
		if string(dt) == s {
			return dt, nil
		}
	}
	return "", eris.Errorf("unknown day type %q (want workday, weekend, holiday, vacation, or extra_workday)", s)
}

// pointFilter narrows classified output to the labels a search asks
// for. Zero fields leave their label unconstrained.
type pointFilter struct {
	DayType  model.DayType
	WorkHour *bool
	Area     string
}

func (f pointFilter) active() bool {
	return f.DayType != "" || f.WorkHour != nil || f.Area != ""
}

// Match reports whether a classified point satisfies every constraint.
func (f pointFilter) Match(cp model.ClassifiedPoint) bool {
	if f.DayType != "" && cp.DayType != f.DayType {
		return false
	}
	if f.WorkHour != nil && cp.WorkHour != *f.WorkHour {
		return false
	}
	if f.Area != "" && cp.Area != f.Area {
		return false
	}
	return true
}

// Apply filters classified points, preserving order.
func (f pointFilter) Apply(points []model.ClassifiedPoint) []model.ClassifiedPoint {
	if !f.active() {
		return points
	}
	out := make([]model.ClassifiedPoint, 0, len(points))
	for _, cp := range points {
		if f.Match(cp) {
			out = append(out, cp)
		}
	}
	return out
}

// filterParams reads the day_type, work_hours, and area query
// parameters of a classify request.
func filterParams(r *http.Request) (pointFilter, error) {
	f := pointFilter{Area: r.URL.Query().Get("area")}

	if q := r.URL.Query().Get("day_type"); q != "" {
		dt, err := parseDayType(q)
		if err != nil {
			return pointFilter{}, err
		}
		f.DayType = dt
	}
	if q := r.URL.Query().Get("work_hours"); q != "" {
		b, err := strconv.ParseBool(q)
		if err != nil {
			return pointFilter{}, eris.New("work_hours must be a boolean")
		}
		f.WorkHour = &b
	}
	return f, nil
}
