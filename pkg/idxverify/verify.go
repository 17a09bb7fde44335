// Package idxverify checks that a timestamp index is in non-decreasing order.
package idxverify

import (
	"bytes"
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

// ErrUnsorted indicates an entry whose timestamp is before its predecessor's.
var ErrUnsorted = errors.New("index is not sorted")

// OrderError reports the first out-of-order entry.
type OrderError struct {
	// Entry is the zero-based number of the offending entry.
	Entry int64
	// Offset is the byte offset of the offending entry in the index.
	Offset int64
	// Prev and Cur are the timestamps of the preceding and offending entries.
	Prev, Cur rawlog.Timestamp
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("entry %d at offset %d: timestamp %s is before %s: %v",
		e.Entry, e.Offset, e.Cur, e.Prev, ErrUnsorted)
}

// Is reports whether target is ErrUnsorted.
func (e *OrderError) Is(target error) bool {
	return target == ErrUnsorted
}

// Stats describes a completed verification.
type Stats struct {
	Entries  int64
	Bytes    int64
	Duration time.Duration
}

// Verify reads an index from r and checks that timestamps never decrease.
// An index that is not a whole number of entries fails with an rgterr
// ErrMalformed error even when it is also out of order; otherwise the first
// violation is returned as an *OrderError.
func Verify(ctx context.Context, r io.Reader) (Stats, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)

	var total int64
	if size, ok := rawidx.Size(r); ok {
		if err := rawidx.CheckSize(size); err != nil {
			return Stats{}, fmt.Errorf("read index: %w", err)
		}
		total, _ = rawidx.Count(size)
	}
	progress := logging.NewProgressTracker("vrfy", total, log)

	ir := rawidx.NewReader(r)
	var (
		prev     [8]byte
		stats    Stats
		firstBad *OrderError
	)
	for {
		e, err := ir.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Entries = ir.Count()
			return stats, fmt.Errorf("read index: %w", err)
		}
		cur := e[rawidx.TimestampOffset:]
		if firstBad == nil && ir.Count() > 1 && bytes.Compare(prev[:], cur) > 0 {
			// Keep reading: a partial entry at the end outranks the order error.
			firstBad = &OrderError{
				Entry:  ir.Count() - 1,
				Offset: ir.Offset() - rawidx.EntrySize,
				Prev:   rawlog.Timestamp(prev),
				Cur:    rawlog.Timestamp(e.Timestamp()),
			}
		}
		copy(prev[:], cur)
		if progress.Add(1) {
			if err := ctx.Err(); err != nil {
				stats.Entries = ir.Count()
				return stats, fmt.Errorf("verify cancelled: %w", err)
			}
		}
	}
	if firstBad != nil {
		stats.Entries = firstBad.Entry
		return stats, firstBad
	}

	stats = Stats{
		Entries:  ir.Count(),
		Bytes:    ir.Offset(),
		Duration: time.Since(start),
	}
	logging.PhaseComplete(log, "vrfy", stats.Duration).
		Count("entries", stats.Entries).
		Bytes("index_bytes", stats.Bytes).
		Throughput(stats.Bytes).
		Rate("entries", stats.Entries).
		Log("index verified")
	return stats, nil
}
