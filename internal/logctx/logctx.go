// Package logctx carries a zerolog logger through context.Context.
//
// The CLI attaches a logger with the tool name to the context it passes to a
// pipeline; the pipeline and everything it calls extract it with FromContext:
//
//	ctx := logctx.WithLogger(ctx, logging.WithTool("rgt-idx-make"))
//	...
//	log := logctx.FromContext(ctx)
//
// Without an attached logger the process-wide logger of package logging is used.
package logctx

import (
	"context"

	"github.com/eunmann/rgt-idx/pkg/logging"
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

// FromContext extracts the logger from the context. If the context is nil
// or does not contain a logger, it returns the global logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return *logging.L()
}

// WithStr returns a new context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt64 returns a new context whose logger has the int64 field added.
func WithInt64(ctx context.Context, key string, value int64) context.Context {
	logger := FromContext(ctx).With().Int64(key, value).Logger()
	return WithLogger(ctx, logger)
}
