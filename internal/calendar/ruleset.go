// Package calendar expands rule-file date expressions into concrete
// per-date lookups and labels dates and timestamps against them.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/rules"
	"github.com/wherewasi/wherewasi/pkg/holiday"
)

// RuleSet holds the expanded calendar date sets plus the weekly workday
// pattern. It is built once per rule file and read-only afterward, so a
// single RuleSet is safe to share across concurrent classification
// runs.
type RuleSet struct {
	holidays      map[string]struct{}
	vacation      map[string]struct{}
	extraWorkdays map[string]struct{}
	workdays      map[time.Weekday]bool
}

// Build expands every date rule into concrete dates and merges the
// jurisdiction's official holidays for [fromYear, toYear] when the rule
// file names one. An unknown jurisdiction surfaces as a
// rules.ValidationError so the user sees which field to fix.
func Build(ctx context.Context, r *rules.Rules, provider holiday.Provider, fromYear, toYear int) (*RuleSet, error) {
	if fromYear > toYear {
		return nil, eris.Errorf("calendar: inverted year span %d..%d", fromYear, toYear)
	}

	rs := &RuleSet{
		holidays:      dateSet(r.BankHolidays.Extra),
		vacation:      dateSet(r.Vacation),
		extraWorkdays: dateSet(r.ExtraWorkdays),
		workdays:      r.WorkdaySet(),
	}

	if r.BankHolidays.State != "" {
		if provider == nil {
			return nil, eris.New("calendar: bank_holidays.state is set but no holiday provider is configured")
		}
		j := holiday.Jurisdiction{State: r.BankHolidays.State, Province: r.BankHolidays.Province}
		days, err := provider.Resolve(ctx, j, fromYear, toYear)
		if err != nil {
			if eris.Is(err, holiday.ErrUnknownJurisdiction) {
				return nil, &rules.ValidationError{
					Field:  "bank_holidays.state",
					Reason: fmt.Sprintf("unknown jurisdiction %s", j),
				}
			}
			return nil, eris.Wrap(err, "calendar: resolve jurisdiction holidays")
		}
		for _, d := range days {
			rs.holidays[d.Format(time.DateOnly)] = struct{}{}
		}
		zap.L().Debug("calendar: jurisdiction holidays merged",
			zap.Stringer("jurisdiction", j),
			zap.Int("from_year", fromYear),
			zap.Int("to_year", toYear),
			zap.Int("days", len(days)),
		)
	}

	return rs, nil
}

// Classify returns the day type of a civil date under fixed precedence:
// extra workday beats holiday beats vacation beats the weekly pattern.
// The date's clock time and zone are ignored; only year, month, and day
// matter.
func (s *RuleSet) Classify(date time.Time) model.DayType {
	key := date.Format(time.DateOnly)
	if _, ok := s.extraWorkdays[key]; ok {
		return model.DayExtraWorkday
	}
	if _, ok := s.holidays[key]; ok {
		return model.DayHoliday
	}
	if _, ok := s.vacation[key]; ok {
		return model.DayVacation
	}
	if s.workdays[date.Weekday()] {
		return model.DayWorkday
	}
	return model.DayWeekend
}

// Holidays returns the expanded holiday dates, sorted.
func (s *RuleSet) Holidays() []time.Time { return sortedDates(s.holidays) }

// VacationDays returns the expanded vacation dates, sorted.
func (s *RuleSet) VacationDays() []time.Time { return sortedDates(s.vacation) }

// ExtraWorkdays returns the expanded extra-workday dates, sorted.
func (s *RuleSet) ExtraWorkdays() []time.Time { return sortedDates(s.extraWorkdays) }

// ActualVacationDays returns the vacation dates that consume vacation
// allowance: days that still classify as vacation after precedence and
// fall on a configured workday. Vacation booked across a weekend or a
// public holiday costs nothing.
func (s *RuleSet) ActualVacationDays() []time.Time {
	var out []time.Time
	for key := range s.vacation {
		d, err := time.ParseInLocation(time.DateOnly, key, time.UTC)
		if err != nil {
			continue
		}
		if s.Classify(d) == model.DayVacation && s.workdays[d.Weekday()] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Before(out[k]) })
	return out
}

func dateSet(drs []rules.DateRule) map[string]struct{} {
	set := make(map[string]struct{})
	for _, dr := range drs {
		for _, d := range dr.Dates() {
			set[d.Format(time.DateOnly)] = struct{}{}
		}
	}
	return set
}

func sortedDates(set map[string]struct{}) []time.Time {
	out := make([]time.Time, 0, len(set))
	for key := range set {
		if d, err := time.ParseInLocation(time.DateOnly, key, time.UTC); err == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Before(out[k]) })
	return out
}
