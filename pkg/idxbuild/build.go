// Package idxbuild scans a raw log once and writes its timestamp index.
package idxbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/eunmann/rgt-idx/internal/logctx"
	"github.com/eunmann/rgt-idx/pkg/logging"
	"github.com/eunmann/rgt-idx/pkg/rawidx"
	"github.com/eunmann/rgt-idx/pkg/rawlog"
)

// Stats describes a completed build.
type Stats struct {
	Messages  int64
	LogBytes  int64
	IndexSize int64
	Duration  time.Duration
}

// Build reads the log from r and writes one index entry per message to w,
// in input order. The output is flushed before Build returns successfully.
func Build(ctx context.Context, r io.Reader, w io.Writer, codec *rawlog.Codec) (Stats, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)

	lr := rawlog.NewReader(r, codec)
	iw := rawidx.NewWriter(w)
	progress := logging.NewProgressTracker("make", 0, log)

	var stats Stats
	if _, err := lr.ReadFileVersion(); err != nil {
		return stats, fmt.Errorf("read log: %w", err)
	}

	for {
		off := lr.Offset()
		ts, err := lr.NextTimestamp()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Messages = iw.Count()
			return stats, fmt.Errorf("read message %d: %w", iw.Count(), err)
		}
		if err := iw.Write(rawidx.NewEntry(uint64(off), ts)); err != nil {
			return stats, err
		}
		if progress.Add(1) {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("build cancelled: %w", err)
			}
		}
	}
	if err := iw.Flush(); err != nil {
		return stats, err
	}

	stats = Stats{
		Messages:  iw.Count(),
		LogBytes:  lr.Offset(),
		IndexSize: iw.Count() * rawidx.EntrySize,
		Duration:  time.Since(start),
	}
	logging.PhaseComplete(log, "make", stats.Duration).
		Count("messages", stats.Messages).
		Bytes("log_bytes", stats.LogBytes).
		Bytes("index_bytes", stats.IndexSize).
		Throughput(stats.LogBytes).
		Rate("messages", stats.Messages).
		Log("index built")
	return stats, nil
}
