package visit

import (
	"sort"
	"time"
)

// DayStay names the area where the longest single visit of a date
// happened.
type DayStay struct {
	Date   string        `json:"date"`
	Area   string        `json:"area"`
	Stay   time.Duration `json:"stay"`
	Visits int           `json:"visits"` // all visits on that date, any area
}

// Summary aggregates visits per calendar date and per area.
type Summary struct {
	// Longest holds one entry per date that has at least one visit,
	// in date order. Ties on stay duration go to the earlier visit.
	Longest []DayStay `json:"longest"`
	// DaysInArea counts, per area, the dates on which that area had
	// the longest stay.
	DaysInArea map[string]int `json:"days_in_area"`
	// TotalStay sums all visit durations per area.
	TotalStay map[string]time.Duration `json:"total_stay"`
}

// Summarize computes per-date longest stays and per-area day counts
// from a visit list.
func Summarize(visits []Visit) Summary {
	perDate := make(map[string]*DayStay)
	var dates []string

	s := Summary{
		DaysInArea: make(map[string]int),
		TotalStay:  make(map[string]time.Duration),
	}
	for _, v := range visits {
		s.TotalStay[v.Area] += v.Stay()

		cur, ok := perDate[v.Date]
		if !ok {
			perDate[v.Date] = &DayStay{Date: v.Date, Area: v.Area, Stay: v.Stay(), Visits: 1}
			dates = append(dates, v.Date)
			continue
		}
		cur.Visits++
		if v.Stay() > cur.Stay {
			cur.Area = v.Area
			cur.Stay = v.Stay()
		}
	}

	sort.Strings(dates)
	for _, d := range dates {
		ds := perDate[d]
		s.Longest = append(s.Longest, *ds)
		s.DaysInArea[ds.Area]++
	}
	return s
}
