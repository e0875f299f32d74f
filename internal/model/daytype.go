package model

// DayType labels a calendar date for classification purposes.
type DayType string

const (
	DayWorkday      DayType = "workday"
	DayWeekend      DayType = "weekend"
	DayHoliday      DayType = "holiday"
	DayVacation     DayType = "vacation"
	DayExtraWorkday DayType = "extra_workday"
)

// Working reports whether the day type counts as a working day
// (a regular workday or an explicitly scheduled extra workday).
func (d DayType) Working() bool {
	return d == DayWorkday || d == DayExtraWorkday
}
