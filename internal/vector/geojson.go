package vector

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
)

// GeoJSON reads and writes GeoJSON feature collections.
type GeoJSON struct{}

// Ext returns ".geojson".
func (GeoJSON) Ext() string { return ".geojson" }

// Read parses a FeatureCollection.
func (GeoJSON) Read(path string) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	feats := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		feats = append(feats, Feature{Geometry: f.Geometry, Properties: props})
	}
	return feats, nil
}

// Write writes feats as a FeatureCollection named layer. With a schema,
// only the schema's properties are kept.
func (GeoJSON) Write(path, layer string, feats []Feature, schema Schema) error {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{"name": layer}

	for _, f := range feats {
		gf := geojson.NewFeature(f.Geometry)
		if len(schema) == 0 {
			for k, v := range f.Properties {
				gf.Properties[k] = v
			}
		} else {
			for _, field := range schema {
				if v, ok := f.Properties[field.Name]; ok {
					gf.Properties[field.Name] = v
				}
			}
		}
		fc.Append(gf)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
