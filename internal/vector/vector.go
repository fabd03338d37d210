package vector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// Feature is one vector record.
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// FieldType is the attribute type of a Field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldFloat
)

// Field is a named, typed attribute column.
type Field struct {
	Name string
	Type FieldType
}

// Schema lists the attribute columns written for each feature, in order.
type Schema []Field

// Driver reads and writes one vector file format.
type Driver interface {
	// Read returns every feature of the file's first layer.
	Read(path string) ([]Feature, error)

	// Write replaces path with a single layer holding feats.
	Write(path, layer string, feats []Feature, schema Schema) error

	// Ext returns the main file extension including the dot.
	Ext() string
}

// Format names accepted by ByName.
const (
	FormatShapefile = "shapefile"
	FormatGeoJSON   = "geojson"
)

// ByName returns the driver for a configured output format.
func ByName(format string) (Driver, error) {
	switch strings.ToLower(format) {
	case FormatShapefile, "shp", "esri shapefile":
		return Shapefile{}, nil
	case FormatGeoJSON, "json":
		return GeoJSON{}, nil
	default:
		return nil, fmt.Errorf("vector: unknown format %q", format)
	}
}

// ForPath returns the driver matching the file's extension.
func ForPath(path string) (Driver, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return Shapefile{}, nil
	case ".geojson", ".json":
		return GeoJSON{}, nil
	default:
		return nil, fmt.Errorf("vector: no driver for %s", path)
	}
}
