// Package idxapply rewrites a raw log in the order given by an index.
package idxapply

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
	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// Stats describes a completed apply.
type Stats struct {
	Messages  int64
	Seeks     int64
	OutBytes  int64
	IndexSize int64
	Duration  time.Duration
}

// Apply copies the version byte of log to out, then the exact bytes of every
// message named by the index, in index order. Entries are not deduplicated:
// an offset listed twice is copied twice.
//
// The log is read from its start; an entry whose offset equals the current
// read position is read without seeking.
func Apply(ctx context.Context, log io.ReadSeeker, index io.Reader, out io.Writer, codec *rawlog.Codec) (Stats, error) {
	start := time.Now()
	logger := logctx.FromContext(ctx)
	var stats Stats

	if _, err := log.Seek(0, io.SeekStart); err != nil {
		return stats, rgterr.Wrap(rgterr.ErrIO, "seek log", 0, rgterr.NoPos, err)
	}
	lr := rawlog.NewReader(log, codec)
	lw := rawlog.NewWriter(out, codec)
	ir := rawidx.NewReader(index)

	var total int64
	if size, ok := rawidx.Size(index); ok {
		total, _ = rawidx.Count(size)
	}
	progress := logging.NewProgressTracker("apply", total, logger)

	v, err := lr.ReadFileVersion()
	if err != nil {
		return stats, fmt.Errorf("read log: %w", err)
	}
	if err := lw.WriteFileVersion(v); err != nil {
		return stats, err
	}

	var m rawlog.Message
	for {
		e, err := ir.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read index: %w", err)
		}
		n := ir.Count() - 1
		if err := copyMessage(log, lr, lw, e, &m, &stats); err != nil {
			return stats, fmt.Errorf("index entry %d at index offset %d: %w",
				n, ir.Offset()-rawidx.EntrySize, err)
		}
		stats.Messages++
		if progress.Add(1) {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("apply cancelled: %w", err)
			}
		}
	}
	if err := lw.Flush(); err != nil {
		return stats, err
	}

	stats.OutBytes = lw.Offset()
	stats.IndexSize = ir.Offset()
	stats.Duration = time.Since(start)
	logging.PhaseComplete(logger, "apply", stats.Duration).
		Count("messages", stats.Messages).
		Int64("seeks", stats.Seeks).
		Bytes("index_bytes", stats.IndexSize).
		Bytes("log_bytes", stats.OutBytes).
		Throughput(stats.OutBytes).
		Rate("messages", stats.Messages).
		Log("index applied")
	return stats, nil
}

func copyMessage(log io.ReadSeeker, lr *rawlog.Reader, lw *rawlog.Writer, e rawidx.Entry, m *rawlog.Message, stats *Stats) error {
	if !e.Seekable() {
		return rgterr.New(rgterr.ErrOffsetOutOfRange,
			fmt.Sprintf("message offset %d", e.Offset()), rgterr.NoPos, rgterr.NoPos)
	}
	off := int64(e.Offset())
	if off != lr.Offset() {
		if _, err := log.Seek(off, io.SeekStart); err != nil {
			return rgterr.Wrap(rgterr.ErrIO, "seek log", off, rgterr.NoPos, err)
		}
		lr.Reset(log, off)
		stats.Seeks++
	}

	err := lr.NextMessage(m)
	if errors.Is(err, io.EOF) {
		return rgterr.Wrap(rgterr.ErrTruncated, "read message", off, off, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return err
	}
	return lw.WriteRaw(m.Raw)
}
