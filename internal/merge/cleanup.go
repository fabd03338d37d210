package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
)

// Cleanup removes every entry in dir and keeps dir itself. A missing dir
// is not an error.
func Cleanup(ctx context.Context, dir string) error {
	logger := logctx.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	var errs []error
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		logger.Info().Str("file", path).Msgf("Removing file %s ....", path)
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MergeAndCleanup merges dir and then empties it, whether or not the merge
// succeeded. Both errors are returned.
func MergeAndCleanup(ctx context.Context, dir string, opts Options) (result Result, err error) {
	defer func() {
		// Cleanup must run even when the caller's context is cancelled.
		if cerr := Cleanup(context.WithoutCancel(ctx), dir); cerr != nil {
			err = errors.Join(err, fmt.Errorf("cleanup: %w", cerr))
		}
	}()

	result, err = Merge(ctx, dir, opts)
	if err != nil {
		err = fmt.Errorf("merge: %w", err)
	}
	return result, err
}
