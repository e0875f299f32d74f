package calendar

import (
	"time"

	"github.com/wherewasi/wherewasi/internal/model"
)

// DayClassifier resolves timestamps to civil dates in a fixed timezone
// and labels them via a RuleSet. It is kept separate from the work
// window so day typing stays testable independent of time-of-day logic.
type DayClassifier struct {
	rules *RuleSet
	loc   *time.Location
}

// NewDayClassifier creates a classifier for the given timezone. A nil
// location means UTC.
func NewDayClassifier(rs *RuleSet, loc *time.Location) DayClassifier {
	if loc == nil {
		loc = time.UTC
	}
	return DayClassifier{rules: rs, loc: loc}
}

// Date returns t's civil date in the classifier timezone, normalized to
// a midnight UTC marker so dates compare cleanly.
func (c DayClassifier) Date(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// Classify labels the timestamp's civil date.
func (c DayClassifier) Classify(t time.Time) model.DayType {
	return c.rules.Classify(c.Date(t))
}

// Location returns the classifier's timezone.
func (c DayClassifier) Location() *time.Location { return c.loc }
