package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/remote"
	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// Summary reports what a drain did.
type Summary struct {
	Folder   string
	NotFound bool
	Pages    int
	Files    int
	Bytes    int64
}

// Drain downloads every file in the named folder into dir, page by page,
// deleting each remote file after its download completes. A folder that
// does not exist yields an empty summary and no error.
func Drain(ctx context.Context, store remote.Store, folder, dir string, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	ctx = logctx.WithStr(ctx, "folder", folder)
	logger := logctx.FromContext(ctx)

	summary := Summary{Folder: folder}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return summary, fmt.Errorf("create download dir: %w", err)
	}

	var folderID string
	err := retry.Do(ctx, opts.Retry, func(ctx context.Context, attempt int) error {
		id, err := store.FindFolder(ctx, folder)
		if err != nil {
			return remote.Classify(err)
		}
		folderID = id
		return nil
	})
	if errors.Is(err, remote.ErrFolderNotFound) {
		logger.Info().Msg("Folder not found, nothing to download")
		summary.NotFound = true
		return summary, nil
	}
	if err != nil {
		return summary, fmt.Errorf("find folder %s: %w", folder, err)
	}

	seen := make(map[string]string)
	token := ""
	for {
		var page remote.Page
		err := retry.Do(ctx, opts.Retry, func(ctx context.Context, attempt int) error {
			p, err := store.ListPage(ctx, folderID, token, opts.PageSize)
			if err != nil {
				return remote.Classify(err)
			}
			page = p
			return nil
		})
		if err != nil {
			return summary, fmt.Errorf("list page %d: %w", summary.Pages+1, err)
		}
		summary.Pages++

		if len(page.Files) > 0 {
			if err := checkSeen(seen, page.Files); err != nil {
				return summary, err
			}

			pageCtx := logctx.WithInt(ctx, "page", summary.Pages)
			pageLogger := logctx.FromContext(pageCtx)
			pageLogger.Info().Int("files", len(page.Files)).Msg("Downloading batch")
			opts.Progress.AddFiles(len(page.Files))

			res, err := FetchBatchWithRetry(pageCtx, store, page.Files, dir, opts)
			summary.Files += len(res.Fetched)
			summary.Bytes += res.Bytes()
			if err != nil {
				return summary, fmt.Errorf("page %d: %w", summary.Pages, err)
			}
			for _, f := range page.Files {
				seen[f.Name] = f.ID
			}
		}

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	logger.Info().
		Int("pages", summary.Pages).
		Int("files", summary.Files).
		Int64("bytes", summary.Bytes).
		Msg("Folder drained")
	return summary, nil
}

// DrainAll drains each folder in order and stops at the first error.
func DrainAll(ctx context.Context, store remote.Store, folders []string, dir string, opts Options) ([]Summary, error) {
	var summaries []Summary
	for _, folder := range folders {
		s, err := Drain(ctx, store, folder, dir, opts)
		summaries = append(summaries, s)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// checkSeen rejects a page containing a name already downloaded this run.
func checkSeen(seen map[string]string, files []remote.RemoteFile) error {
	for _, f := range files {
		if id, ok := seen[f.Name]; ok && id != f.ID {
			return retry.Permanent(fmt.Errorf("%w: %s (ids %s, %s)", ErrNameCollision, f.Name, id, f.ID))
		}
	}
	return nil
}
