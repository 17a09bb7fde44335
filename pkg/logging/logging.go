// Package logging provides structured logging for the rgt-idx tools using zerolog.
package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel keeps a successful run silent; failures are reported by the CLI.
const DefaultLevel = zerolog.WarnLevel

var (
	logger     *zerolog.Logger
	prettyMode atomic.Bool
)

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(DefaultLevel)
}

// InitWriter configures the global logger to write to out.
// If human is true, uses a human-friendly console writer and adds
// human-readable companions to completion event fields.
func InitWriter(out io.Writer, level zerolog.Level, human bool) {
	zerolog.SetGlobalLevel(level)
	prettyMode.Store(human)

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    out != os.Stderr,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: out}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	logger = &l
}

// LevelFor maps the CLI verbosity flags to a log level.
func LevelFor(verbose, debug bool) zerolog.Level {
	switch {
	case debug:
		return zerolog.DebugLevel
	case verbose:
		return zerolog.InfoLevel
	default:
		return DefaultLevel
	}
}

// IsPrettyMode reports whether human-readable field companions are enabled.
func IsPrettyMode() bool {
	return prettyMode.Load()
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithTool returns a logger with the tool field set.
func WithTool(tool string) zerolog.Logger {
	return logger.With().Str("tool", tool).Logger()
}

// SetLogger allows overriding the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
}
