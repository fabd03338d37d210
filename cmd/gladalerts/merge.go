package main

import (
	"context"

	"github.com/rizkyfirmansyah/glad-alerts/internal/config"
	"github.com/rizkyfirmansyah/glad-alerts/internal/merge"
	"github.com/rizkyfirmansyah/glad-alerts/internal/vector"
)

func runMerge(args []string) int {
	a, code := setup("merge", `Usage: gladalerts merge [options]

Merge every shapefile in temp_download into final_path/final_name, then
empty temp_download.`, args)
	if a == nil {
		return code
	}
	defer a.close()

	if _, err := mergeDownloads(a.ctx, &a.cfg); err != nil {
		a.logger.Error().Err(err).Msg("Merge failed")
		return ExitMergeFailed
	}
	return ExitSuccess
}

// mergeDownloads merges cfg.TempDownload and always empties it afterwards.
func mergeDownloads(ctx context.Context, cfg *config.Config) (merge.Result, error) {
	out, err := vector.ByName(cfg.OutputFormat)
	if err != nil {
		return merge.Result{}, err
	}
	return merge.MergeAndCleanup(ctx, cfg.TempDownload, mergeOptions(cfg, out))
}

func mergeOptions(cfg *config.Config, out vector.Driver) merge.Options {
	return merge.Options{
		Year:             cfg.Year,
		RemoveDuplicates: cfg.RemoveDuplicates,
		Input:            vector.Shapefile{},
		Output:           out,
		OutputDir:        cfg.FinalPath,
		OutputName:       cfg.FinalName,
		Report:           cfg.ReportFormat,
	}
}
