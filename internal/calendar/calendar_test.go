package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/rules"
	"github.com/wherewasi/wherewasi/pkg/holiday"
)

type fakeProvider struct {
	days  []time.Time
	err   error
	calls int
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Available() bool { return true }

func (f *fakeProvider) Resolve(_ context.Context, _ holiday.Jurisdiction, _, _ int) ([]time.Time, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.days, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	require.NoError(t, err)
	return d
}

func parseRules(t *testing.T, yaml string) *rules.Rules {
	t.Helper()
	r, err := rules.Parse([]byte(yaml))
	require.NoError(t, err)
	return r
}

func TestClassifyPrecedence(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  extra:
    - 2024-05-01
    - 2024-05-04
vacation:
  - {from: 2024-05-01, to: 2024-05-05}
extra_workdays:
  - 2024-05-04
`)
	rs, err := Build(context.Background(), r, nil, 2024, 2024)
	require.NoError(t, err)

	tests := []struct {
		name string
		date string
		want model.DayType
	}{
		{name: "extra workday overrides holiday", date: "2024-05-04", want: model.DayExtraWorkday},
		{name: "holiday overrides vacation", date: "2024-05-01", want: model.DayHoliday},
		{name: "vacation on a weekday", date: "2024-05-02", want: model.DayVacation},
		{name: "vacation over a weekend stays vacation", date: "2024-05-05", want: model.DayVacation},
		{name: "plain weekday", date: "2024-05-07", want: model.DayWorkday},
		{name: "plain weekend", date: "2024-05-11", want: model.DayWeekend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rs.Classify(day(t, tt.date)))
		})
	}
}

func TestClassifyIgnoresClockTime(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
vacation: [2024-07-01]
`)
	rs, err := Build(context.Background(), r, nil, 2024, 2024)
	require.NoError(t, err)

	noon := time.Date(2024, time.July, 1, 12, 30, 9, 0, time.UTC)
	assert.Equal(t, model.DayVacation, rs.Classify(noon))
	assert.Equal(t, rs.Classify(noon), rs.Classify(noon))
}

func TestBuildExpandsVacationRange(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
vacation:
  - {from: 2024-07-01, to: 2024-07-03}
`)
	rs, err := Build(context.Background(), r, nil, 2024, 2024)
	require.NoError(t, err)

	assert.Equal(t, model.DayVacation, rs.Classify(day(t, "2024-07-01")))
	assert.Equal(t, model.DayVacation, rs.Classify(day(t, "2024-07-02")))
	assert.Equal(t, model.DayVacation, rs.Classify(day(t, "2024-07-03")))

	// Range boundaries are tight.
	assert.NotEqual(t, model.DayVacation, rs.Classify(day(t, "2024-06-30")))
	assert.NotEqual(t, model.DayVacation, rs.Classify(day(t, "2024-07-04")))

	assert.Equal(t, []time.Time{
		day(t, "2024-07-01"), day(t, "2024-07-02"), day(t, "2024-07-03"),
	}, rs.VacationDays())
}

func TestBuildMergesJurisdictionHolidays(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  state: DE
  province: BY
  extra: [2024-12-24]
`)
	provider := &fakeProvider{days: []time.Time{day(t, "2024-01-01"), day(t, "2024-10-03")}}

	rs, err := Build(context.Background(), r, provider, 2024, 2024)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, model.DayHoliday, rs.Classify(day(t, "2024-01-01")))
	assert.Equal(t, model.DayHoliday, rs.Classify(day(t, "2024-10-03")))
	assert.Equal(t, model.DayHoliday, rs.Classify(day(t, "2024-12-24")))
	assert.Len(t, rs.Holidays(), 3)
}

func TestBuildUnknownJurisdiction(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  state: XX
`)
	provider := &fakeProvider{err: eris.Wrap(holiday.ErrUnknownJurisdiction, "state XX")}

	_, err := Build(context.Background(), r, provider, 2024, 2024)
	require.Error(t, err)

	var verr *rules.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "bank_holidays.state", verr.Field)
}

func TestBuildProviderFailureIsNotAValidationError(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  state: DE
`)
	provider := &fakeProvider{err: eris.New("upstream timeout")}

	_, err := Build(context.Background(), r, provider, 2024, 2024)
	require.Error(t, err)

	var verr *rules.ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestBuildWithoutStateSkipsProvider(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
vacation: [2024-07-01]
`)
	provider := &fakeProvider{}

	_, err := Build(context.Background(), r, provider, 2024, 2024)
	require.NoError(t, err)
	assert.Zero(t, provider.calls)
}

func TestBuildStateWithoutProvider(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  state: DE
`)
	_, err := Build(context.Background(), r, nil, 2024, 2024)
	require.Error(t, err)
}

func TestBuildInvertedYearSpan(t *testing.T) {
	r := parseRules(t, `
workdays: [1]
worktimes: ["09:00", "17:00"]
`)
	_, err := Build(context.Background(), r, nil, 2025, 2024)
	require.Error(t, err)
}

func TestActualVacationDays(t *testing.T) {
	// Vacation booked Mon 2024-07-01 through Sun 2024-07-07, with a
	// holiday on Wed 2024-07-03. Only Mon, Tue, Thu, Fri consume
	// vacation allowance.
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  extra: [2024-07-03]
vacation:
  - {from: 2024-07-01, to: 2024-07-07}
`)
	rs, err := Build(context.Background(), r, nil, 2024, 2024)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		day(t, "2024-07-01"),
		day(t, "2024-07-02"),
		day(t, "2024-07-04"),
		day(t, "2024-07-05"),
	}, rs.ActualVacationDays())
}

func TestEveryDateGetsExactlyOneType(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
bank_holidays:
  extra: [2024-01-01]
vacation:
  - {from: 2024-01-08, to: 2024-01-10}
extra_workdays: [2024-01-06]
`)
	rs, err := Build(context.Background(), r, nil, 2024, 2024)
	require.NoError(t, err)

	want := map[string]model.DayType{
		"2024-01-01": model.DayHoliday,
		"2024-01-02": model.DayWorkday,
		"2024-01-03": model.DayWorkday,
		"2024-01-04": model.DayWorkday,
		"2024-01-05": model.DayWorkday,
		"2024-01-06": model.DayExtraWorkday,
		"2024-01-07": model.DayWeekend,
		"2024-01-08": model.DayVacation,
		"2024-01-09": model.DayVacation,
		"2024-01-10": model.DayVacation,
		"2024-01-11": model.DayWorkday,
		"2024-01-12": model.DayWorkday,
		"2024-01-13": model.DayWeekend,
		"2024-01-14": model.DayWeekend,
	}

	for d := day(t, "2024-01-01"); !d.After(day(t, "2024-01-14")); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		assert.Equal(t, want[key], rs.Classify(d), "date %s", key)
	}
}

func TestDayClassifierLocalizesBeforeDating(t *testing.T) {
	r := parseRules(t, `
workdays: [1, 2, 3, 4, 5]
worktimes: ["09:00", "17:00"]
vacation: [2024-03-06]
`)
	rs, err := Build(context.Background(), r, nil, 2024, 2024)
	require.NoError(t, err)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 23:30 UTC on the 5th is already the 6th in Berlin (CET, +1).
	ts := time.Date(2024, time.March, 5, 23, 30, 0, 0, time.UTC)

	utcClassifier := NewDayClassifier(rs, nil)
	assert.Equal(t, day(t, "2024-03-05"), utcClassifier.Date(ts))
	assert.Equal(t, model.DayWorkday, utcClassifier.Classify(ts))

	berlinClassifier := NewDayClassifier(rs, berlin)
	assert.Equal(t, day(t, "2024-03-06"), berlinClassifier.Date(ts))
	assert.Equal(t, model.DayVacation, berlinClassifier.Classify(ts))
}

func TestWindowBoundaries(t *testing.T) {
	w := NewWindow(9*60, 17*60)

	at := func(hour, minute, sec int) time.Time {
		return time.Date(2024, time.March, 5, hour, minute, sec, 0, time.UTC)
	}

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{name: "start is inclusive", ts: at(9, 0, 0), want: true},
		{name: "end is exclusive", ts: at(17, 0, 0), want: false},
		{name: "just before start", ts: at(8, 59, 59), want: false},
		{name: "just before end", ts: at(16, 59, 59), want: true},
		{name: "midday", ts: at(12, 30, 0), want: true},
		{name: "midnight", ts: at(0, 0, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.ts))
		})
	}
}

func TestWindowOf(t *testing.T) {
	r := parseRules(t, `
workdays: [1]
worktimes: ["08:30", "16:15"]
`)
	w := WindowOf(r)
	assert.Equal(t, "08:30-16:15", w.String())
	assert.True(t, w.Contains(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 1, 1, 16, 15, 0, 0, time.UTC)))
}
