package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/progress"
	"github.com/rizkyfirmansyah/glad-alerts/internal/remote"
	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// Common errors.
var (
	// ErrNameCollision is returned when two remote files map to the same
	// local path within one run.
	ErrNameCollision = errors.New("downloader: name collision")

	// ErrInvalidName is returned for names that would escape the download
	// directory.
	ErrInvalidName = errors.New("downloader: invalid file name")

	// ErrIncomplete is returned when a download ends before the reported size.
	ErrIncomplete = errors.New("downloader: incomplete download")
)

// Options configures the downloader.
type Options struct {
	// Workers is the number of parallel downloads per batch.
	// Default: runtime.NumCPU()
	Workers int

	// ChunkSize is the number of bytes copied per progress step.
	// Default: 100 MiB
	ChunkSize int64

	// PageSize is the number of files requested per listing page.
	// Default: 10
	PageSize int

	// Retry is applied once per batch and once per listing call.
	Retry retry.Policy

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 100 * 1024 * 1024
	}
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.Retry.Attempts <= 0 {
		o.Retry = retry.DefaultPolicy()
	}
	return o
}

// Fetched describes one file that was downloaded and removed remotely.
type Fetched struct {
	File  remote.RemoteFile
	Path  string
	Bytes int64
}

// Result lists the files a batch completed. It is populated even when the
// batch returns an error.
type Result struct {
	Fetched []Fetched

	// Undeleted holds files whose local copy is complete and synced but
	// whose remote delete failed. They must not be downloaded again.
	Undeleted []Fetched
}

// Bytes returns the total bytes downloaded.
func (r Result) Bytes() int64 {
	var n int64
	for _, f := range r.Fetched {
		n += f.Bytes
	}
	return n
}

// FetchBatch downloads every file into dir in parallel and deletes each
// remote copy once its local copy is complete and synced. It makes a single
// attempt; the first failure cancels the remaining downloads.
func FetchBatch(ctx context.Context, store remote.Store, files []remote.RemoteFile, dir string, opts Options) (Result, error) {
	opts = opts.withDefaults()

	if err := validateBatch(files); err != nil {
		return Result{}, err
	}

	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, f := range files {
		f := f
		g.Go(func() error {
			fetched, err := fetchFile(gctx, store, f, dir, opts)
			if err != nil {
				if fetched.Path != "" {
					mu.Lock()
					result.Undeleted = append(result.Undeleted, fetched)
					mu.Unlock()
				}
				return err
			}
			mu.Lock()
			result.Fetched = append(result.Fetched, fetched)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return result, err
}

// FetchBatchWithRetry runs FetchBatch under opts.Retry. Files completed by a
// failed attempt are not requested again; files downloaded but not yet
// deleted only have their delete retried.
func FetchBatchWithRetry(ctx context.Context, store remote.Store, files []remote.RemoteFile, dir string, opts Options) (Result, error) {
	opts = opts.withDefaults()

	var total Result
	pending := files

	err := retry.Do(ctx, opts.Retry, func(ctx context.Context, attempt int) error {
		var errs []error
		undeleted := total.Undeleted
		total.Undeleted = nil
		for _, f := range undeleted {
			if err := deleteRemote(ctx, store, f.File); err != nil {
				total.Undeleted = append(total.Undeleted, f)
				errs = append(errs, err)
				continue
			}
			opts.Progress.FileCompleted()
			total.Fetched = append(total.Fetched, f)
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}

		res, err := FetchBatch(ctx, store, pending, dir, opts)
		total.Fetched = append(total.Fetched, res.Fetched...)
		total.Undeleted = append(total.Undeleted, res.Undeleted...)
		pending = remaining(pending, res.Fetched, res.Undeleted)
		return err
	})
	return total, err
}

// remaining returns the files present in none of done.
func remaining(files []remote.RemoteFile, done ...[]Fetched) []remote.RemoteFile {
	seen := make(map[string]bool)
	for _, list := range done {
		for _, f := range list {
			seen[f.File.ID] = true
		}
	}
	if len(seen) == 0 {
		return files
	}
	var out []remote.RemoteFile
	for _, f := range files {
		if !seen[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// validateBatch rejects names that collide or escape the directory.
func validateBatch(files []remote.RemoteFile) error {
	seen := make(map[string]string, len(files))
	for _, f := range files {
		if err := validateName(f.Name); err != nil {
			return err
		}
		if id, ok := seen[f.Name]; ok {
			return retry.Permanent(fmt.Errorf("%w: %s (ids %s, %s)", ErrNameCollision, f.Name, id, f.ID))
		}
		seen[f.Name] = f.ID
	}
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return retry.Permanent(fmt.Errorf("%w: %q", ErrInvalidName, name))
	}
	return nil
}

// fetchFile downloads one file and then deletes it remotely. A partial local
// file is removed on failure and the remote copy is left in place. When only
// the delete fails the returned Fetched is filled in along with the error.
func fetchFile(ctx context.Context, store remote.Store, f remote.RemoteFile, dir string, opts Options) (Fetched, error) {
	ctx = logctx.WithStr(ctx, "file", f.Name)
	ctx = logctx.WithStr(ctx, "file_id", f.ID)
	logger := logctx.FromContext(ctx)

	path := filepath.Join(dir, f.Name)
	opts.Progress.FileStarted()

	written, err := download(ctx, store, f, path, opts)
	if err != nil {
		opts.Progress.FileFailed()
		return Fetched{}, err
	}
	logger.Info().Int64("bytes", written).Msg("Download 100%")

	fetched := Fetched{File: f, Path: path, Bytes: written}
	if err := deleteRemote(ctx, store, f); err != nil {
		logger.Warn().Err(err).Msg("Downloaded but remote delete failed")
		return fetched, err
	}

	opts.Progress.FileCompleted()
	return fetched, nil
}

// deleteRemote removes f from the store. It is only called once the local
// copy is synced, so an object that is already gone counts as deleted.
func deleteRemote(ctx context.Context, store remote.Store, f remote.RemoteFile) error {
	logger := logctx.FromContext(ctx)
	err := store.Delete(ctx, f.ID)
	if remote.IsNotFound(err) {
		logger.Debug().Str("file_id", f.ID).Msg("Remote file already deleted")
		return nil
	}
	if err != nil {
		return remote.Classify(fmt.Errorf("delete %s: %w", f.Name, err))
	}
	logger.Debug().Str("file_id", f.ID).Msg("Deleted remote file")
	return nil
}

// download copies the remote content to path in chunks and syncs it.
func download(ctx context.Context, store remote.Store, f remote.RemoteFile, path string, opts Options) (written int64, err error) {
	src, err := store.Open(ctx, f.ID)
	if err != nil {
		return 0, remote.Classify(err)
	}
	defer src.Close()

	out, err := os.Create(path)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("create %s: %w", path, err))
	}
	closed := false
	defer func() {
		if !closed {
			out.Close()
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	logger := logctx.FromContext(ctx)
	size := src.Size()
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, cerr := io.CopyN(out, src, opts.ChunkSize)
		written += n
		opts.Progress.ChunkWritten(n)
		if size > 0 {
			logger.Debug().Msgf("Download %d%%", written*100/size)
		}

		if errors.Is(cerr, io.EOF) {
			break
		}
		if cerr != nil {
			return written, remote.Classify(fmt.Errorf("read %s: %w", f.ID, cerr))
		}
	}

	if size >= 0 && written != size {
		return written, fmt.Errorf("%w: %s got %d of %d bytes", ErrIncomplete, f.Name, written, size)
	}

	if err := out.Sync(); err != nil {
		return written, fmt.Errorf("sync %s: %w", path, err)
	}
	closed = true
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", path, err)
	}
	return written, nil
}
