package vector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

var (
	squareA = orb.Polygon{{{100, 0}, {101, 0}, {101, 1}, {100, 1}, {100, 0}}}
	squareB = orb.Polygon{{{102, 0}, {103, 0}, {103, 1}, {102, 1}, {102, 0}}}
)

var alertSchema = Schema{
	{Name: "conf", Type: FieldInt},
	{Name: "alert_date", Type: FieldInt},
	{Name: "date", Type: FieldString},
}

func TestByName(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"shapefile", ".shp"},
		{"SHP", ".shp"},
		{"ESRI Shapefile", ".shp"},
		{"geojson", ".geojson"},
		{"json", ".geojson"},
	}
	for _, tt := range tests {
		d, err := ByName(tt.format)
		if err != nil {
			t.Errorf("ByName(%q): %v", tt.format, err)
			continue
		}
		if d.Ext() != tt.ext {
			t.Errorf("ByName(%q).Ext() = %q, want %q", tt.format, d.Ext(), tt.ext)
		}
	}
	if _, err := ByName("kml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestForPath(t *testing.T) {
	if d, err := ForPath("aoi/Riau.SHP"); err != nil || d.Ext() != ".shp" {
		t.Errorf("unexpected driver %v, %v", d, err)
	}
	if d, err := ForPath("aoi.geojson"); err != nil || d.Ext() != ".geojson" {
		t.Errorf("unexpected driver %v, %v", d, err)
	}
	if _, err := ForPath("aoi.gpkg"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestGeoJSONWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.geojson")
	feats := []Feature{
		{Geometry: squareA, Properties: map[string]any{"conf": 2, "alert_date": 45, "date": "02-14-2023", "extra": "dropped"}},
		{Geometry: squareB, Properties: map[string]any{"conf": 3, "alert_date": 46, "date": "02-15-2023"}},
	}

	d := GeoJSON{}
	if err := d.Write(path, "glad_alerts", feats, alertSchema); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"name":"glad_alerts"`) {
		t.Errorf("expected layer name in output: %s", raw)
	}

	got, err := d.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 features, got %d", len(got))
	}
	if _, ok := got[0].Properties["extra"]; ok {
		t.Error("expected properties outside the schema to be dropped")
	}
	if n, err := ToInt(got[1].Properties["alert_date"]); err != nil || n != 46 {
		t.Errorf("expected alert_date 46, got %v (%v)", got[1].Properties["alert_date"], err)
	}
	if !orb.Equal(got[0].Geometry, squareA) {
		t.Errorf("geometry changed: %v", got[0].Geometry)
	}
}

func TestGeoJSONWithoutSchemaKeepsAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoi.geojson")
	d := GeoJSON{}
	if err := d.Write(path, "aoi", []Feature{{Geometry: squareA, Properties: map[string]any{"name": "Riau"}}}, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := d.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0].Properties["name"] != "Riau" {
		t.Errorf("expected name property, got %v", got[0].Properties)
	}
}

func TestGeoJSONReadErrors(t *testing.T) {
	dir := t.TempDir()
	d := GeoJSON{}
	if _, err := d.Read(filepath.Join(dir, "missing.geojson")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.geojson")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := d.Read(bad); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{45, 45, false},
		{int64(366), 366, false},
		{int32(7), 7, false},
		{float64(12), 12, false},
		{float32(3), 3, false},
		{"23", 23, false},
		{1.5, 0, true},
		{"x", 0, true},
		{nil, 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := ToInt(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ToInt(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ToInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestShapefileWriteRead(t *testing.T) {
	if !ShapefileAvailable() {
		t.Skip("GDAL shapefile driver not available")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.shp")
	feats := []Feature{
		{Geometry: squareA, Properties: map[string]any{"conf": 2, "alert_date": 45.0, "date": "02-14-2023"}},
		{Geometry: orb.MultiPolygon{squareA, squareB}, Properties: map[string]any{"conf": int64(3), "alert_date": 46, "date": "02-15-2023"}},
	}

	d := Shapefile{}
	if err := d.Write(path, "alerts", feats, alertSchema); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if _, err := os.Stat(filepath.Join(dir, "alerts"+ext)); err != nil {
			t.Errorf("expected %s sidecar: %v", ext, err)
		}
	}

	// Overwrite in place.
	if err := d.Write(path, "alerts", feats, alertSchema); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := d.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 features, got %d", len(got))
	}
	if n, _ := ToInt(got[0].Properties["alert_date"]); n != 45 {
		t.Errorf("expected alert_date 45, got %v", got[0].Properties["alert_date"])
	}
	if got[1].Properties["date"] != "02-15-2023" {
		t.Errorf("expected date 02-15-2023, got %v", got[1].Properties["date"])
	}
	if got[0].Geometry.Bound() != squareA.Bound() {
		t.Errorf("geometry changed: %v", got[0].Geometry)
	}
}

func TestShapefileRestoresMissingIndex(t *testing.T) {
	if !ShapefileAvailable() {
		t.Skip("GDAL shapefile driver not available")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.shp")
	feats := []Feature{{Geometry: squareA, Properties: map[string]any{"conf": 2, "alert_date": 45, "date": "02-14-2023"}}}
	if err := (Shapefile{}).Write(path, "alerts", feats, alertSchema); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "alerts.shx")); err != nil {
		t.Fatal(err)
	}

	got, err := (Shapefile{}).Read(path)
	if err != nil {
		t.Fatalf("Read without .shx: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 feature, got %d", len(got))
	}
}
