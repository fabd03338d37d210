// Package logctx carries a zerolog.Logger through context.Context.
//
// The command builds one logger at startup and attaches it to the root
// context. Components enrich it with fields (folder, file_id, task_id) for
// sub-operations:
//
//	ctx = logctx.WithStr(ctx, "folder", folder)
//	logctx.FromContext(ctx).Info().Msg("draining")
package logctx

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from ctx. Without one it returns a
// disabled logger, so library code never writes to an unexpected sink.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return &logger
		}
	}
	nop := zerolog.Nop()
	return &nop
}

// WithStr returns a new context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt returns a new context whose logger has the int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}

// Options configures NewConfiguredLogger.
type Options struct {
	// Debug lowers the level to Debug.
	Debug bool

	// Human uses a console writer instead of JSON on stderr.
	Human bool

	// File, when non-nil, receives a plain-text copy of every event.
	File io.Writer

	// Stderr overrides os.Stderr (tests).
	Stderr io.Writer
}

// NewConfiguredLogger builds the process logger.
func NewConfiguredLogger(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var console io.Writer = stderr
	if opts.Human {
		console = zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: time.RFC3339,
		}
	}

	writers := []io.Writer{console}
	if opts.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.File,
			TimeFormat: "01/02/2006 03:04:05 PM",
			NoColor:    true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
}
