package vector

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb/encoding/wkb"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(func() {
		godal.RegisterAll()
		// Exports can arrive without their .shx index.
		godal.SetConfigOption("SHAPE_RESTORE_SHX", "YES")
	})
}

// sidecars are the files that make up one shapefile.
var sidecars = []string{".shp", ".shx", ".dbf", ".prj", ".cpg", ".qix"}

// Shapefile reads and writes ESRI Shapefiles through GDAL. Output is
// always EPSG:4326.
type Shapefile struct{}

// ShapefileAvailable reports whether the GDAL shapefile driver is registered.
func ShapefileAvailable() bool {
	register()
	_, ok := godal.VectorDriver(godal.Shapefile)
	return ok
}

// Ext returns ".shp".
func (Shapefile) Ext() string { return ".shp" }

// Read returns the features of the first layer.
func (Shapefile) Read(path string) ([]Feature, error) {
	register()

	ds, err := godal.Open(path, godal.VectorOnly(), godal.ErrLogger(ignoreWarnings))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	layers := ds.Layers()
	if len(layers) == 0 {
		return nil, fmt.Errorf("open %s: no layers", path)
	}
	layer := layers[0]
	layer.ResetReading()

	var feats []Feature
	for {
		feat := layer.NextFeature()
		if feat == nil {
			break
		}
		f, err := readFeature(feat)
		feat.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s feature %d: %w", path, len(feats), err)
		}
		feats = append(feats, f)
	}
	return feats, nil
}

func readFeature(feat *godal.Feature) (Feature, error) {
	props := make(map[string]any)
	for name, field := range feat.Fields() {
		switch field.Type() {
		case godal.FTInt, godal.FTInt64:
			props[name] = field.Int()
		case godal.FTReal:
			props[name] = field.Float()
		default:
			props[name] = field.String()
		}
	}

	geom := feat.Geometry()
	if geom == nil || geom.Empty() {
		return Feature{Properties: props}, nil
	}
	defer geom.Close()

	raw, err := geom.WKB()
	if err != nil {
		return Feature{}, fmt.Errorf("geometry to wkb: %w", err)
	}
	g, err := wkb.Unmarshal(raw)
	if err != nil {
		return Feature{}, fmt.Errorf("parse wkb: %w", err)
	}
	return Feature{Geometry: g, Properties: props}, nil
}

// Write replaces path with a polygon layer holding feats.
func (Shapefile) Write(path, layerName string, feats []Feature, schema Schema) error {
	register()

	if err := removeShapefile(path); err != nil {
		return err
	}

	ds, err := godal.CreateVector(godal.Shapefile, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	closed := false
	defer func() {
		if !closed {
			ds.Close()
		}
	}()

	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return fmt.Errorf("spatial ref: %w", err)
	}
	defer sr.Close()

	var opts []godal.CreateLayerOption
	for _, field := range schema {
		opts = append(opts, godal.NewFieldDefinition(field.Name, gdalFieldType(field.Type)))
	}
	layer, err := ds.CreateLayer(layerName, sr, godal.GTPolygon, opts...)
	if err != nil {
		return fmt.Errorf("create layer %s: %w", layerName, err)
	}

	for i, f := range feats {
		if err := writeFeature(layer, sr, f, schema); err != nil {
			return fmt.Errorf("write %s feature %d: %w", path, i, err)
		}
	}

	closed = true
	if err := ds.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeFeature(layer godal.Layer, sr *godal.SpatialRef, f Feature, schema Schema) error {
	raw, err := wkb.Marshal(f.Geometry)
	if err != nil {
		return fmt.Errorf("geometry to wkb: %w", err)
	}
	geom, err := godal.NewGeometryFromWKB(raw, sr)
	if err != nil {
		return fmt.Errorf("parse wkb: %w", err)
	}
	defer geom.Close()

	feat, err := layer.NewFeature(geom)
	if err != nil {
		return err
	}
	defer feat.Close()

	fields := feat.Fields()
	for _, field := range schema {
		v, ok := f.Properties[field.Name]
		if !ok || v == nil {
			continue
		}
		gf, ok := fields[field.Name]
		if !ok {
			return fmt.Errorf("field %s missing from layer", field.Name)
		}
		value, err := convertValue(v, field.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if err := feat.SetFieldValue(gf, value); err != nil {
			return fmt.Errorf("set field %s: %w", field.Name, err)
		}
	}
	return layer.UpdateFeature(feat)
}

func gdalFieldType(t FieldType) godal.FieldType {
	switch t {
	case FieldInt:
		return godal.FTInt64
	case FieldFloat:
		return godal.FTReal
	default:
		return godal.FTString
	}
}

// convertValue coerces v to the Go type GDAL expects for t.
func convertValue(v any, t FieldType) (any, error) {
	switch t {
	case FieldInt:
		n, err := ToInt(v)
		return int64(n), err
	case FieldFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		default:
			n, err := ToInt(v)
			return float64(n), err
		}
	default:
		return fmt.Sprint(v), nil
	}
}

// removeShapefile deletes path and its sidecar files.
func removeShapefile(path string) error {
	base := strings.TrimSuffix(path, ".shp")
	for _, ext := range sidecars {
		if err := os.Remove(base + ext); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", base+ext, err)
		}
	}
	return nil
}

func ignoreWarnings(ec godal.ErrorCategory, code int, msg string) error {
	if ec == godal.CE_Warning {
		return nil
	}
	return errors.New(msg)
}
