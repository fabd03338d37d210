package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rizkyfirmansyah/glad-alerts/internal/config"
	gladhttp "github.com/rizkyfirmansyah/glad-alerts/internal/http"
	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/merge"
	"github.com/rizkyfirmansyah/glad-alerts/internal/notify"
	"github.com/rizkyfirmansyah/glad-alerts/internal/progress"
)

func runPipeline(args []string) int {
	a, code := setup("run", `Usage: gladalerts run [options]

Export the latest alert days over the AOI, download the exports, merge them
into one output file and empty the download directory.`, args)
	if a == nil {
		return code
	}
	defer a.close()

	return pipeline(a.ctx, &a.cfg, exportAlerts)
}

// pipeline runs export, drain and merge. An export failure is logged and
// the remaining steps still run; whatever was exported before the failure is
// collected. A drain failure skips the merge but still empties the download
// directory.
func pipeline(ctx context.Context, cfg *config.Config, exportFn func(context.Context, *config.Config) error) int {
	logger := logctx.FromContext(ctx)
	notifier := newNotifier(cfg)

	if err := exportFn(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Export failed, collecting what was exported")
	}

	summary, err := drainFolders(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Download failed")
		if cerr := merge.Cleanup(context.WithoutCancel(ctx), cfg.TempDownload); cerr != nil {
			err = errors.Join(err, fmt.Errorf("cleanup: %w", cerr))
			logger.Error().Err(cerr).Msg("Cleanup failed")
		}
		sendNotification(ctx, notifier, notify.Message{
			Title: "GLAD alerts download failed",
			Text:  err.Error(),
		})
		return ExitStorageError
	}
	if summary.NotFound || summary.Files == 0 {
		logger.Info().Msg("Nothing was downloaded")
	}

	result, err := mergeDownloads(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Merge failed")
		sendNotification(ctx, notifier, notify.Message{
			Title: "GLAD alerts merge failed",
			Text:  err.Error(),
		})
		return ExitMergeFailed
	}

	logger.Info().
		Int("files", summary.Files).
		Int("records", result.Records).
		Int("duplicates", result.Duplicates).
		Str("output", result.Output).
		Msg("Pipeline complete")
	sendNotification(ctx, notifier, notify.Message{
		Title:   "GLAD alerts updated",
		Text:    summaryText(summary.Files, summary.Bytes, result),
		Success: true,
	})
	return ExitSuccess
}

func newNotifier(cfg *config.Config) *notify.Notifier {
	opts := gladhttp.DefaultOptions()
	opts.Retry = cfg.Retry.Policy()
	return notify.New(cfg.NotifyURL, gladhttp.NewClient(opts))
}

// sendNotification logs a failed notification instead of failing the run.
func sendNotification(ctx context.Context, n *notify.Notifier, msg notify.Message) {
	if err := n.Send(ctx, msg); err != nil {
		logger := logctx.FromContext(ctx)
		logger.Warn().Err(err).Msg("Notification failed")
	}
}

func summaryText(files int, bytes int64, result merge.Result) string {
	if result.Output == "" {
		return fmt.Sprintf("Downloaded %d files (%s), nothing to merge.", files, progress.FormatBytes(bytes))
	}
	return fmt.Sprintf("Downloaded %d files (%s). Merged %d records (%d duplicates removed) into %s.",
		files, progress.FormatBytes(bytes), result.Records, result.Duplicates, result.Output)
}
