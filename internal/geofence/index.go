// Package geofence resolves coordinates against user-configured
// circular areas.
package geofence

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/wherewasi/wherewasi/internal/rules"
)

// EarthRadiusMeters is the mean earth radius of the spherical model
// used for all distance computations.
const EarthRadiusMeters = 6371000.0

// prefilterThreshold is the area count above which the index builds s2
// bounding caps so most areas are rejected without distance math.
const prefilterThreshold = 16

type region struct {
	area   rules.Area
	center s2.LatLng
	bound  s2.Cap
}

// Index resolves a coordinate to the first configured area containing
// it. Configuration order is the priority order: a small area listed
// before a larger overlapping one wins for points inside both. An Index
// is built once and read-only afterward, safe for concurrent use.
type Index struct {
	regions   []region
	prefilter bool
}

// Build stores areas in configuration order.
func Build(areas []rules.Area) *Index {
	idx := &Index{
		regions:   make([]region, 0, len(areas)),
		prefilter: len(areas) >= prefilterThreshold,
	}
	for _, a := range areas {
		r := region{area: a, center: s2.LatLngFromDegrees(a.Lat, a.Lng)}
		if idx.prefilter {
			// Caps are inflated 0.1% so borderline points are never
			// pruned before the exact distance check.
			angle := s1.Angle(a.Radius * 1.001 / EarthRadiusMeters)
			r.bound = s2.CapFromCenterAngle(s2.PointFromLatLng(r.center), angle)
		}
		idx.regions = append(idx.regions, r)
	}
	return idx
}

// Resolve returns the tag of the first area, in configuration order,
// whose radius covers the point, and whether any area matched. A point
// exactly on an area's boundary matches.
func (x *Index) Resolve(lat, lng float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return "", false
	}
	ll := s2.LatLngFromDegrees(lat, lng)
	var pt s2.Point
	if x.prefilter {
		pt = s2.PointFromLatLng(ll)
	}
	for _, r := range x.regions {
		if x.prefilter && !r.bound.ContainsPoint(pt) {
			continue
		}
		if Distance(ll, r.center) <= r.area.Radius {
			return r.area.Tag, true
		}
	}
	return "", false
}

// Size returns the number of configured areas.
func (x *Index) Size() int { return len(x.regions) }

// Areas returns the configured areas in resolution order.
func (x *Index) Areas() []rules.Area {
	out := make([]rules.Area, len(x.regions))
	for i, r := range x.regions {
		out[i] = r.area
	}
	return out
}

// Distance returns the great-circle distance between two coordinates in
// meters, using the haversine formula on the spherical model.
func Distance(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// DistanceDegrees is Distance over raw degree pairs.
func DistanceDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	return Distance(s2.LatLngFromDegrees(lat1, lng1), s2.LatLngFromDegrees(lat2, lng2))
}
