package model

import (
	"math"
	"time"
)

// Point is a single timestamped coordinate from a location-history archive.
// Points are immutable once decoded; classification produces a new record.
type Point struct {
	Time     time.Time `json:"time"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Accuracy int       `json:"accuracy,omitempty"` // reported GPS accuracy in meters, 0 when absent
}

// CoordsValid reports whether both coordinates are finite and within
// the WGS84 domain (lat in [-90,90], lng in [-180,180]).
func (p Point) CoordsValid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// TimeValid reports whether the timestamp carries a usable instant.
func (p Point) TimeValid() bool {
	return !p.Time.IsZero()
}

// ClassifiedPoint is a Point enriched with its calendar and geofence labels.
type ClassifiedPoint struct {
	Point
	DayType  DayType `json:"day_type"`
	WorkHour bool    `json:"work_hour"`
	Area     string  `json:"area,omitempty"` // empty when no configured area contains the point
}
