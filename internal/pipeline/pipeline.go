// Package pipeline labels location points with day type, work hour,
// and area tag.
package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/calendar"
	"github.com/wherewasi/wherewasi/internal/geofence"
	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/rules"
	"github.com/wherewasi/wherewasi/pkg/holiday"
)

// SkipReason says why a point was dropped instead of classified.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipBadTimestamp
	SkipBadCoordinates
)

// Stats counts a classification run. Counters are atomic so a consumer
// may inspect them while the run is still in flight.
type Stats struct {
	Processed      atomic.Int64
	Skipped        atomic.Int64
	BadTimestamps  atomic.Int64
	BadCoordinates atomic.Int64
}

func (s *Stats) count(reason SkipReason) {
	switch reason {
	case SkipNone:
		s.Processed.Add(1)
	case SkipBadTimestamp:
		s.Skipped.Add(1)
		s.BadTimestamps.Add(1)
	case SkipBadCoordinates:
		s.Skipped.Add(1)
		s.BadCoordinates.Add(1)
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Processed      int64 `json:"processed"`
	Skipped        int64 `json:"skipped"`
	BadTimestamps  int64 `json:"bad_timestamps"`
	BadCoordinates int64 `json:"bad_coordinates"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Processed:      s.Processed.Load(),
		Skipped:        s.Skipped.Load(),
		BadTimestamps:  s.BadTimestamps.Load(),
		BadCoordinates: s.BadCoordinates.Load(),
	}
}

// Classifier labels points against immutable calendar and geofence
// state. Build it once per rule file; it is read-only afterward and
// safe to share across concurrent runs.
type Classifier struct {
	days   calendar.DayClassifier
	window calendar.Window
	areas  *geofence.Index
}

// New assembles a Classifier from prebuilt components.
func New(days calendar.DayClassifier, window calendar.Window, areas *geofence.Index) *Classifier {
	return &Classifier{days: days, window: window, areas: areas}
}

// FromRules builds all classifier components from a validated rule
// file. The year span bounds the jurisdiction holiday resolution.
func FromRules(ctx context.Context, r *rules.Rules, provider holiday.Provider, fromYear, toYear int) (*Classifier, error) {
	rs, err := calendar.Build(ctx, r, provider, fromYear, toYear)
	if err != nil {
		return nil, err
	}
	days := calendar.NewDayClassifier(rs, r.Location())
	return New(days, calendar.WindowOf(r), geofence.Build(r.Areas)), nil
}

// Point classifies a single point. A malformed point returns a non-zero
// SkipReason instead of a label. Pure: identical input yields identical
// output.
func (c *Classifier) Point(p model.Point) (model.ClassifiedPoint, SkipReason) {
	if !p.TimeValid() {
		return model.ClassifiedPoint{}, SkipBadTimestamp
	}
	if !p.CoordsValid() {
		return model.ClassifiedPoint{}, SkipBadCoordinates
	}

	cp := model.ClassifiedPoint{Point: p, DayType: c.days.Classify(p.Time)}
	if cp.DayType == model.DayWorkday {
		cp.WorkHour = c.window.Contains(p.Time.In(c.days.Location()))
	}
	if tag, ok := c.areas.Resolve(p.Lat, p.Lng); ok {
		cp.Area = tag
	}
	return cp, SkipNone
}

// Run classifies a stream lazily, one output per well-formed input, in
// input order. Malformed points are skipped and counted, never fatal.
// The output channel closes when the input closes or ctx is cancelled;
// a consumer that stops early cancels ctx to release the goroutine.
func (c *Classifier) Run(ctx context.Context, in <-chan model.Point) (<-chan model.ClassifiedPoint, *Stats) {
	out := make(chan model.ClassifiedPoint, 64)
	stats := &Stats{}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-in:
				if !ok {
					snap := stats.Snapshot()
					zap.L().Debug("pipeline: run complete",
						zap.Int64("processed", snap.Processed),
						zap.Int64("skipped", snap.Skipped),
					)
					return
				}
				cp, reason := c.Point(p)
				stats.count(reason)
				if reason != SkipNone {
					continue
				}
				select {
				case out <- cp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, stats
}

// Slice classifies an in-memory slice, preserving order.
func (c *Classifier) Slice(points []model.Point) ([]model.ClassifiedPoint, Snapshot) {
	stats := &Stats{}
	out := make([]model.ClassifiedPoint, 0, len(points))
	for _, p := range points {
		cp, reason := c.Point(p)
		stats.count(reason)
		if reason == SkipNone {
			out = append(out, cp)
		}
	}
	return out, stats.Snapshot()
}
