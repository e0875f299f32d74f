package rules

import (
	"fmt"
	"math"
	"time"
)

// ValidationError reports exactly which rule-file field is invalid so
// the user can fix it without guessing.
type ValidationError struct {
	Field  string // dotted path into the rule file, e.g. "vacation[2]" or "worktimes"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rules: invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the rule file for internal consistency and caches the
// parsed timezone and work window. It must succeed before the rules are
// handed to the calendar or geofence builders.
func (r *Rules) Validate() error {
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return invalid("timezone", "unknown IANA timezone %q", r.Timezone)
	}
	r.loc = loc

	if len(r.Workdays) == 0 {
		return invalid("workdays", "at least one weekday index is required")
	}
	for i, wd := range r.Workdays {
		if wd < 0 || wd > 6 {
			return invalid(fmt.Sprintf("workdays[%d]", i), "weekday index %d out of range [0,6] (0 = Sunday)", wd)
		}
	}

	if len(r.Worktimes) != 2 {
		return invalid("worktimes", "expected exactly [start, end], got %d entries", len(r.Worktimes))
	}
	start, err := ParseClock(r.Worktimes[0])
	if err != nil {
		return invalid("worktimes[0]", "%q is not a HH:MM clock time", r.Worktimes[0])
	}
	end, err := ParseClock(r.Worktimes[1])
	if err != nil {
		return invalid("worktimes[1]", "%q is not a HH:MM clock time", r.Worktimes[1])
	}
	if start >= end {
		return invalid("worktimes", "start %s must be before end %s", r.Worktimes[0], r.Worktimes[1])
	}
	r.workStart, r.workEnd = start, end

	if r.BankHolidays.State == "" && r.BankHolidays.Province != "" {
		return invalid("bank_holidays.province", "province %q given without a state", r.BankHolidays.Province)
	}
	if err := checkRules("bank_holidays.extra", r.BankHolidays.Extra); err != nil {
		return err
	}
	if err := checkRules("vacation", r.Vacation); err != nil {
		return err
	}
	if err := checkRules("extra_workdays", r.ExtraWorkdays); err != nil {
		return err
	}

	for i, a := range r.Areas {
		field := fmt.Sprintf("areas[%d]", i)
		if a.Tag == "" {
			return invalid(field+".tag", "tag must not be empty")
		}
		if math.IsNaN(a.Lat) || math.IsInf(a.Lat, 0) || a.Lat < -90 || a.Lat > 90 {
			return invalid(field+".lat", "latitude %v out of range [-90,90]", a.Lat)
		}
		if math.IsNaN(a.Lng) || math.IsInf(a.Lng, 0) || a.Lng < -180 || a.Lng > 180 {
			return invalid(field+".lng", "longitude %v out of range [-180,180]", a.Lng)
		}
		if math.IsNaN(a.Radius) || a.Radius <= 0 {
			return invalid(field+".radius", "radius must be a positive number of meters, got %v", a.Radius)
		}
	}

	return nil
}

func checkRules(field string, rules []DateRule) error {
	for i, dr := range rules {
		if dr.From.IsZero() || dr.To.IsZero() {
			return invalid(fmt.Sprintf("%s[%d]", field, i), "missing date")
		}
		if dr.To.Before(dr.From) {
			return invalid(fmt.Sprintf("%s[%d]", field, i),
				"range end %s is before start %s",
				dr.To.Format(time.DateOnly), dr.From.Format(time.DateOnly))
		}
	}
	return nil
}

// ParseClock parses a "HH:MM" clock time into minutes past midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
