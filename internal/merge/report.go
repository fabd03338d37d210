package merge

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/parquet-go/parquet-go"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/rizkyfirmansyah/glad-alerts/internal/vector"
)

// ReportRow is one line of the attribute report.
type ReportRow struct {
	UUID      string `csv:"uuid" parquet:"uuid"`
	Date      string `csv:"date" parquet:"date"`
	Year      int64  `csv:"year" parquet:"year"`
	AlertDate int64  `csv:"alert_date" parquet:"alert_date"`
	Conf      int64  `csv:"conf" parquet:"conf"`
	WKT       string `csv:"wkt" parquet:"wkt"`
}

// ReportRows flattens merged records into report rows.
func ReportRows(records []vector.Feature) []ReportRow {
	rows := make([]ReportRow, 0, len(records))
	for _, r := range records {
		row := ReportRow{
			UUID: fmt.Sprint(r.Properties[FieldUUID]),
			Date: fmt.Sprint(r.Properties[FieldDate]),
		}
		if n, err := vector.ToInt(r.Properties[FieldYear]); err == nil {
			row.Year = int64(n)
		}
		if n, err := vector.ToInt(r.Properties[FieldAlertDate]); err == nil {
			row.AlertDate = int64(n)
		}
		if n, err := vector.ToInt(r.Properties[FieldConf]); err == nil {
			row.Conf = int64(n)
		}
		if r.Geometry != nil {
			row.WKT = wkt.MarshalString(r.Geometry)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteReport writes the records as base.csv or base.parquet and returns
// the path written.
func WriteReport(records []vector.Feature, base, format string) (string, error) {
	rows := ReportRows(records)

	switch format {
	case ReportCSV:
		path := base + ".csv"
		file, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("create report: %w", err)
		}
		defer file.Close()
		if err := gocsv.MarshalFile(&rows, file); err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
		return path, file.Close()

	case ReportParquet:
		path := base + ".parquet"
		if err := parquet.WriteFile(path, rows); err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
		return path, nil

	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}
