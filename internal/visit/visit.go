// Package visit groups consecutive same-area points into visits and
// aggregates per-day and per-area stay statistics.
package visit

import (
	"time"

	"github.com/wherewasi/wherewasi/internal/model"
)

// Visit is a run of consecutive points inside one area on one civil
// date. A date change splits a visit, so an overnight stay counts
// toward both days.
type Visit struct {
	Area   string    `json:"area"`
	Date   string    `json:"date"` // YYYY-MM-DD in the segmenter's timezone
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Points int       `json:"points"`
}

// Stay returns the visit duration. A single-point visit has zero stay.
func (v Visit) Stay() time.Duration { return v.End.Sub(v.Start) }

// Segmenter accumulates classified points into visits. Points must
// arrive in timestamp order; a point outside every area closes the
// current visit.
type Segmenter struct {
	loc     *time.Location
	visits  []Visit
	current *Visit
}

// NewSegmenter creates a Segmenter that dates visits in the given
// timezone. A nil location means UTC.
func NewSegmenter(loc *time.Location) *Segmenter {
	if loc == nil {
		loc = time.UTC
	}
	return &Segmenter{loc: loc}
}

// Add feeds the next point in timestamp order.
func (s *Segmenter) Add(cp model.ClassifiedPoint) {
	if cp.Area == "" {
		s.flush()
		return
	}

	date := cp.Time.In(s.loc).Format(time.DateOnly)
	if s.current != nil && (s.current.Area != cp.Area || s.current.Date != date) {
		s.flush()
	}
	if s.current == nil {
		s.current = &Visit{Area: cp.Area, Date: date, Start: cp.Time}
	}
	s.current.End = cp.Time
	s.current.Points++
}

// Finish closes any open visit and returns all visits in input order.
// The Segmenter is spent afterward.
func (s *Segmenter) Finish() []Visit {
	s.flush()
	return s.visits
}

func (s *Segmenter) flush() {
	if s.current != nil {
		s.visits = append(s.visits, *s.current)
		s.current = nil
	}
}

// Collect drains a classified stream into visits.
func Collect(in <-chan model.ClassifiedPoint, loc *time.Location) []Visit {
	s := NewSegmenter(loc)
	for cp := range in {
		s.Add(cp)
	}
	return s.Finish()
}
