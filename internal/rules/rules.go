package rules

import (
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the user-authored rule file: the weekly work schedule,
// calendar exceptions, and geofenced areas.
type Rules struct {
	Timezone      string       `yaml:"timezone"` // IANA name, defaults to UTC
	Workdays      []int        `yaml:"workdays"`
	Worktimes     []string     `yaml:"worktimes"` // [start, end] as "HH:MM"
	BankHolidays  BankHolidays `yaml:"bank_holidays"`
	Vacation      []DateRule   `yaml:"vacation"`
	ExtraWorkdays []DateRule   `yaml:"extra_workdays"`
	Areas         []Area       `yaml:"areas"`

	loc       *time.Location
	workStart int
	workEnd   int
}

// BankHolidays selects a jurisdiction's official holiday calendar and
// layers ad-hoc dates on top of it. State and province are jurisdiction
// codes understood by the holiday provider (e.g. "DE" / "BY").
type BankHolidays struct {
	State    string     `yaml:"state"`
	Province string     `yaml:"province"`
	Extra    []DateRule `yaml:"extra"`
}

// Area is a circular geofence around a center coordinate. Areas are
// matched in file order, so an earlier area shadows later overlapping
// ones.
type Area struct {
	Tag    string  `yaml:"tag"`
	Lat    float64 `yaml:"lat"`
	Lng    float64 `yaml:"lng"`
	Radius float64 `yaml:"radius"` // meters
}

// DateRule is a single calendar date or an inclusive date range. A
// single date decodes with From == To.
type DateRule struct {
	From time.Time
	To   time.Time
}

// UnmarshalYAML accepts either a bare date scalar ("2024-07-01") or a
// {from, to} mapping.
func (d *DateRule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		t, err := parseDate(value.Value)
		if err != nil {
			return err
		}
		d.From, d.To = t, t
		return nil
	case yaml.MappingNode:
		var span struct {
			From string `yaml:"from"`
			To   string `yaml:"to"`
		}
		if err := value.Decode(&span); err != nil {
			return eris.Wrap(err, "rules: decode date range")
		}
		from, err := parseDate(span.From)
		if err != nil {
			return err
		}
		to, err := parseDate(span.To)
		if err != nil {
			return err
		}
		d.From, d.To = from, to
		return nil
	default:
		return eris.Errorf("rules: line %d: date rule must be a date or a {from, to} mapping", value.Line)
	}
}

// Dates expands the rule into its concrete dates, both ends inclusive.
// Dates are midnight UTC markers; only the civil date matters.
func (d DateRule) Dates() []time.Time {
	var out []time.Time
	for t := d.From; !t.After(d.To); t = t.AddDate(0, 0, 1) {
		out = append(out, t)
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "rules: date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// Location returns the rule file's timezone. Valid after Validate;
// falls back to UTC before that.
func (r *Rules) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// WorkWindow returns the validated work window as minutes past
// midnight, start inclusive, end exclusive.
func (r *Rules) WorkWindow() (start, end int) {
	return r.workStart, r.workEnd
}

// WorkdaySet returns the weekly workday pattern keyed by time.Weekday.
func (r *Rules) WorkdaySet() map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(r.Workdays))
	for _, wd := range r.Workdays {
		set[time.Weekday(wd)] = true
	}
	return set
}
