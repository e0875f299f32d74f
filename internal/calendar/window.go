package calendar

import (
	"fmt"
	"time"

	"github.com/wherewasi/wherewasi/internal/rules"
)

// Window is a daily work window in minutes past midnight, start
// inclusive, end exclusive. A 09:00-17:00 window contains 09:00:00 and
// 16:59:59 but not 17:00:00.
type Window struct {
	start int
	end   int
}

// NewWindow builds a window from validated minute offsets.
func NewWindow(startMin, endMin int) Window {
	return Window{start: startMin, end: endMin}
}

// WindowOf builds the work window configured in a rule file.
func WindowOf(r *rules.Rules) Window {
	start, end := r.WorkWindow()
	return NewWindow(start, end)
}

// Contains reports whether t's clock time falls inside the window.
// Callers localize t to the schedule's timezone first.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.start && m < w.end
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.start/60, w.start%60, w.end/60, w.end%60)
}
