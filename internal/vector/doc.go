// Package vector reads and writes vector files as orb geometries with a
// property map.
//
// GeoJSON is pure Go. Shapefile goes through GDAL (airbusgeo/godal); its
// geometries cross the cgo boundary as WKB.
//
//	driver, err := vector.ByName(cfg.OutputFormat)
//	feats, err := driver.Read("temp_download/glad_alerts_riau_01_07.shp")
//	err = driver.Write("glad_alerts.shp", "glad_alerts", feats, schema)
package vector
