package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/wherewasi/wherewasi/internal/rules"
)

// AreasFeatureCollection converts configured areas into a GeoJSON
// FeatureCollection of points carrying tag and radius properties.
// Coordinates follow GeoJSON order, longitude first.
func AreasFeatureCollection(areas []rules.Area) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, a := range areas {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       a.Tag,
			Geometry: geom.NewPointFlat(geom.XY, []float64{a.Lng, a.Lat}),
			Properties: map[string]any{
				"tag":      a.Tag,
				"radius_m": a.Radius,
			},
		})
	}
	return fc
}

// MarshalAreasGeoJSON renders areas as an indented GeoJSON document.
func MarshalAreasGeoJSON(areas []rules.Area) ([]byte, error) {
	data, err := json.MarshalIndent(AreasFeatureCollection(areas), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal areas geojson")
	}
	return data, nil
}

// ExportAreasGeoJSON writes areas as a GeoJSON file.
func ExportAreasGeoJSON(path string, areas []rules.Area) error {
	data, err := MarshalAreasGeoJSON(areas)
	if err != nil {
		return err
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "export: write %s", path)
}
