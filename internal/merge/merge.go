package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/vector"
)

// Attribute names of a merged record.
const (
	FieldConf      = "conf"
	FieldAlertDate = "alert_date"
	FieldYear      = "year"
	FieldDate      = "date"
	FieldUUID      = "uuid"
)

// Report formats.
const (
	ReportNone    = "none"
	ReportCSV     = "csv"
	ReportParquet = "parquet"
)

// Options configures Merge.
type Options struct {
	// Year is the two-digit alert year; records get 2000+Year.
	Year int

	// RemoveDuplicates dissolves records with identical geometry.
	RemoveDuplicates bool

	// Input reads the downloaded files.
	// Default: vector.Shapefile
	Input vector.Driver

	// Output writes the merged file.
	// Default: vector.Shapefile
	Output vector.Driver

	OutputDir  string
	OutputName string

	// Report writes an attribute table next to the output: none, csv or
	// parquet.
	Report string

	// NewID generates the random part of each record uuid.
	// Default: uuid.NewString
	NewID func() string
}

// Result summarizes a merge.
type Result struct {
	Inputs     []string
	Read       int
	Duplicates int
	Records    int
	Output     string
	Report     string
}

// Merge reads every input file in dir, tags and optionally dissolves the
// records, and writes them to a single output file.
func Merge(ctx context.Context, dir string, opts Options) (Result, error) {
	if opts.Input == nil {
		opts.Input = vector.Shapefile{}
	}
	if opts.Output == nil {
		opts.Output = vector.Shapefile{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := logctx.FromContext(ctx)

	var result Result
	inputs, err := filepath.Glob(filepath.Join(dir, "*"+opts.Input.Ext()))
	if err != nil {
		return result, fmt.Errorf("list inputs: %w", err)
	}
	sort.Strings(inputs)
	result.Inputs = inputs

	if len(inputs) == 0 {
		logger.Warn().Str("dir", dir).Msg("No files to merge")
		return result, nil
	}

	year := FullYear(opts.Year)
	var records []vector.Feature
	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		logger.Info().Str("file", filepath.Base(path)).Msg("Merging file")

		feats, err := opts.Input.Read(path)
		if err != nil {
			return result, err
		}
		for _, f := range feats {
			if f.Properties == nil {
				f.Properties = make(map[string]any)
			}
			f.Properties[FieldYear] = year
			records = append(records, f)
		}
	}
	result.Read = len(records)

	if opts.RemoveDuplicates {
		logger.Info().Str("output", opts.OutputName).Msgf("Removing possible duplicate of %s", opts.OutputName)
		records = Dissolve(records)
		result.Duplicates = result.Read - len(records)
	}

	for i := range records {
		if err := annotate(&records[i], year, opts.NewID); err != nil {
			return result, fmt.Errorf("record %d: %w", i, err)
		}
	}
	result.Records = len(records)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return result, fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(opts.OutputDir, opts.OutputName+opts.Output.Ext())
	if err := opts.Output.Write(out, opts.OutputName, records, outputSchema(records)); err != nil {
		return result, fmt.Errorf("write output: %w", err)
	}
	result.Output = out

	if opts.Report != "" && opts.Report != ReportNone {
		report, err := WriteReport(records, filepath.Join(opts.OutputDir, opts.OutputName), opts.Report)
		if err != nil {
			return result, err
		}
		result.Report = report
	}

	logger.Info().
		Int("inputs", len(inputs)).
		Int("records", result.Records).
		Int("duplicates", result.Duplicates).
		Str("output", out).
		Msg("Merge complete")
	return result, nil
}

// Dissolve keeps one record per distinct geometry, compared as WKT. The
// first record of each group is kept with its attributes, and groups keep
// the order of their first appearance.
func Dissolve(records []vector.Feature) []vector.Feature {
	seen := make(map[string]bool, len(records))
	out := make([]vector.Feature, 0, len(records))
	for _, r := range records {
		key := ""
		if r.Geometry != nil {
			key = wkt.MarshalString(r.Geometry)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// annotate derives the date and uuid attributes of a record.
func annotate(r *vector.Feature, year int, newID func() string) error {
	raw, ok := r.Properties[FieldAlertDate]
	if !ok {
		return errors.New("missing alert_date")
	}
	doy, err := vector.ToInt(raw)
	if err != nil {
		return fmt.Errorf("alert_date: %w", err)
	}
	date, err := DateFromDayOfYear(year, doy)
	if err != nil {
		return err
	}

	r.Properties[FieldAlertDate] = doy
	r.Properties[FieldDate] = date
	r.Properties[FieldUUID] = fmt.Sprintf("%d%d%s", doy, year, newID())
	return nil
}

// outputSchema lists the fixed alert columns followed by any other
// attribute found in the inputs, as strings.
func outputSchema(records []vector.Feature) vector.Schema {
	schema := vector.Schema{
		{Name: FieldConf, Type: vector.FieldInt},
		{Name: FieldAlertDate, Type: vector.FieldInt},
		{Name: FieldYear, Type: vector.FieldInt},
		{Name: FieldDate, Type: vector.FieldString},
		{Name: FieldUUID, Type: vector.FieldString},
	}
	known := make(map[string]bool, len(schema))
	for _, f := range schema {
		known[f.Name] = true
	}

	var extra []string
	for _, r := range records {
		for k := range r.Properties {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		schema = append(schema, vector.Field{Name: k, Type: vector.FieldString})
	}
	return schema
}
