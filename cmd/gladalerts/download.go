package main

import (
	"context"
	"strings"

	"golang.org/x/oauth2/google"

	"github.com/rizkyfirmansyah/glad-alerts/internal/config"
	"github.com/rizkyfirmansyah/glad-alerts/internal/downloader"
	"github.com/rizkyfirmansyah/glad-alerts/internal/gauth"
	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/progress"
	"github.com/rizkyfirmansyah/glad-alerts/internal/remote"
)

func runDownload(args []string) int {
	a, code := setup("download", `Usage: gladalerts download [options]

Download every file of the export folder into temp_download, deleting each
remote file once its local copy is complete.`, args)
	if a == nil {
		return code
	}
	defer a.close()

	summary, err := drainFolders(a.ctx, &a.cfg)
	if err != nil {
		a.logger.Error().Err(err).Msg("Download failed")
		return ExitStorageError
	}
	a.logger.Info().
		Int("files", summary.Files).
		Str("bytes", progress.FormatBytes(summary.Bytes)).
		Msg("Download complete")
	return ExitSuccess
}

// drainFolders downloads every configured folder into cfg.TempDownload and
// returns the combined summary.
func drainFolders(ctx context.Context, cfg *config.Config) (downloader.Summary, error) {
	var creds *google.Credentials
	if cfg.Storage == config.StorageDrive {
		var err error
		creds, err = loadCredentials(ctx, cfg, gauth.ScopeDrive)
		if err != nil {
			return downloader.Summary{}, err
		}
	}

	store, err := remote.Open(ctx, cfg, creds)
	if err != nil {
		return downloader.Summary{}, err
	}
	defer store.Close()

	reporter := progress.NewReporter(progress.Options{Hidden: !cfg.Progress})
	defer reporter.Finish()

	folders := cfg.DrainFolders()
	summaries, err := downloader.DrainAll(ctx, store, folders, cfg.TempDownload, downloader.Options{
		Workers:   cfg.Workers,
		ChunkSize: cfg.ChunkSize,
		PageSize:  cfg.PageSize,
		Retry:     cfg.Retry.Policy(),
		Progress:  reporter,
	})

	total := downloader.Summary{Folder: strings.Join(folders, ","), NotFound: true}
	for _, s := range summaries {
		total.NotFound = total.NotFound && s.NotFound
		total.Pages += s.Pages
		total.Files += s.Files
		total.Bytes += s.Bytes
	}

	logger := logctx.FromContext(ctx)
	logger.Info().
		Int("folders", len(summaries)).
		Int("files", total.Files).
		Dur("elapsed", reporter.Elapsed()).
		Msg("Drain finished")
	return total, err
}
