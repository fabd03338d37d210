package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rizkyfirmansyah/glad-alerts/internal/vector"
)

// Region is the area of interest alerts are clipped to.
type Region struct {
	Geometry orb.MultiPolygon
}

// GeoJSON returns the region as a GeoJSON geometry string.
func (r *Region) GeoJSON() (string, error) {
	data, err := geojson.NewGeometry(r.Geometry).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal region: %w", err)
	}
	return string(data), nil
}

// LoadRegion reads every polygon of the AOI file into one region.
func LoadRegion(path string, driver vector.Driver) (*Region, error) {
	features, err := driver.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read aoi %s: %w", path, err)
	}
	return RegionFromFeatures(features)
}

// RegionFromFeatures collects the polygons of features into one region.
func RegionFromFeatures(features []vector.Feature) (*Region, error) {
	var mp orb.MultiPolygon
	for i, f := range features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		case orb.Bound:
			mp = append(mp, g.ToPolygon())
		default:
			return nil, fmt.Errorf("aoi feature %d: unsupported geometry %T", i, f.Geometry)
		}
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("aoi has no polygons")
	}
	return &Region{Geometry: mp}, nil
}
