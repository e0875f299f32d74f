package geofence

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/rules"
)

// LoadShapefile converts shapefile records into circular areas. Point
// records become circles of defaultRadius meters; polygon records
// become circles covering the polygon (bounding-box center, radius out
// to the farthest vertex). Tags come from the named DBF attribute;
// records without one get a positional tag. Unsupported or broken
// shapes are skipped and counted, never fatal.
func LoadShapefile(path, tagField string, defaultRadius float64) ([]rules.Area, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geofence: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	tagIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, tagField) {
			tagIdx = i
			break
		}
	}

	var areas []rules.Area
	var skipped int
	record := -1

	for reader.Next() {
		record++
		_, shape := reader.Shape()

		var area rules.Area
		switch s := shape.(type) {
		case *shp.Point:
			area = rules.Area{Lat: s.Y, Lng: s.X, Radius: defaultRadius}
		case *shp.PointZ:
			area = rules.Area{Lat: s.Y, Lng: s.X, Radius: defaultRadius}
		case *shp.Polygon:
			a, ok := polygonArea(s.Points, defaultRadius)
			if !ok {
				skipped++
				continue
			}
			area = a
		case *shp.PolygonZ:
			a, ok := polygonArea(s.Points, defaultRadius)
			if !ok {
				skipped++
				continue
			}
			area = a
		default:
			skipped++
			continue
		}

		area.Tag = recordTag(reader, tagIdx, record)
		areas = append(areas, area)
	}

	if skipped > 0 {
		zap.L().Debug("geofence: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return areas, nil
}

// polygonArea collapses a polygon's vertices into a covering circle.
func polygonArea(points []shp.Point, defaultRadius float64) (rules.Area, bool) {
	if len(points) == 0 {
		return rules.Area{}, false
	}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	bounds := geom.NewLineStringFlat(geom.XY, flat).Bounds()

	centerLng := (bounds.Min(0) + bounds.Max(0)) / 2
	centerLat := (bounds.Min(1) + bounds.Max(1)) / 2

	radius := 0.0
	for _, p := range points {
		if d := DistanceDegrees(centerLat, centerLng, p.Y, p.X); d > radius {
			radius = d
		}
	}
	if radius == 0 {
		radius = defaultRadius
	}

	return rules.Area{Lat: centerLat, Lng: centerLng, Radius: radius}, true
}

func recordTag(reader *shp.Reader, tagIdx, record int) string {
	if tagIdx >= 0 {
		tag := strings.TrimSpace(strings.TrimRight(reader.Attribute(tagIdx), "\x00"))
		if tag != "" {
			return tag
		}
	}
	return fmt.Sprintf("area-%d", record)
}
