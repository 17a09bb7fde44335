package idxsort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/eunmann/rgt-idx/internal/logctx"
	"github.com/eunmann/rgt-idx/pkg/logging"
	"github.com/eunmann/rgt-idx/pkg/membudget"
	"github.com/eunmann/rgt-idx/pkg/rawidx"
	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// Stats describes a completed sort.
type Stats struct {
	Entries     int64
	Bytes       int64
	ReservedMem uint64
	Counters    Counters
	Duration    time.Duration
}

// Run reads a whole index from in, sorts it and writes it to out.
// Both buffers are reserved against budget before they are allocated, and
// the data buffer of a stream input is reserved each time it grows.
// A nil budget is unlimited.
func Run(ctx context.Context, in io.Reader, out io.Writer, budget *membudget.Budget) (Stats, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)
	var stats Stats

	res := reservations{budget: budget}
	defer res.releaseAll()

	var data []byte
	if size, ok := rawidx.Size(in); ok {
		if err := rawidx.CheckSize(size); err != nil {
			return stats, fmt.Errorf("read index: %w", err)
		}
		if err := res.reserve(size, "data buffer"); err != nil {
			return stats, err
		}
		data = make([]byte, 0, size)
	}

	data, err := rawidx.ReadAll(in, data, res.growData)
	if err != nil {
		if errors.Is(err, rgterr.ErrOutOfMemory) {
			return stats, err
		}
		return stats, fmt.Errorf("read index: %w", err)
	}
	res.trimData(int64(len(data)))

	readDone := time.Now()
	log.Debug().
		Int64("entries", int64(len(data)/rawidx.EntrySize)).
		Dur("read_duration", readDone.Sub(start)).
		Msg("index loaded")

	scratchSize := ScratchSize(len(data))
	if err := res.reserve(int64(scratchSize), "merge buffer"); err != nil {
		return stats, err
	}
	scratch := make([]byte, scratchSize)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("sort cancelled: %w", err)
	}
	counters := Sort(data, scratch)

	if _, err := out.Write(data); err != nil {
		return stats, rgterr.Wrap(rgterr.ErrIO, "write index", rgterr.NoPos, rgterr.NoPos, err)
	}

	stats = Stats{
		Entries:     int64(len(data) / rawidx.EntrySize),
		Bytes:       int64(len(data)),
		ReservedMem: res.total,
		Counters:    counters,
		Duration:    time.Since(start),
	}
	logging.PhaseComplete(log, "sort", stats.Duration).
		Count("entries", stats.Entries).
		Bytes("index_bytes", stats.Bytes).
		Bytes("reserved_bytes", int64(stats.ReservedMem)).
		Int64("merges", counters.Merges).
		Int64("skipped_merges", counters.SkippedMerges).
		Int64("swaps", counters.Swaps).
		Throughput(stats.Bytes).
		Rate("entries", stats.Entries).
		Log("index sorted")
	return stats, nil
}

// reservations tracks what Run holds against the budget.
type reservations struct {
	budget *membudget.Budget
	total  uint64
	data   int64
}

// reserve accounts for a buffer of n bytes, failing with ErrOutOfMemory
// when it does not fit.
func (r *reservations) reserve(n int64, what string) error {
	if n < 0 || uint64(n) > math.MaxInt {
		return outOfMemory(what, n, r.budget)
	}
	if r.budget != nil && !r.budget.TryReserve(uint64(n)) {
		return outOfMemory(what, n, r.budget)
	}
	r.total += uint64(n)
	if what == "data buffer" {
		r.data += n
	}
	return nil
}

// growData reserves an enlargement of the data buffer: want bytes when the
// budget has room, otherwise what remains of it as long as that covers need.
func (r *reservations) growData(want, need int64) (int64, error) {
	if r.budget != nil {
		if avail := int64(min(r.budget.Available(), math.MaxInt64)); avail < want {
			want = max(avail, need)
		}
	}
	if err := r.reserve(want, "data buffer"); err != nil {
		return 0, err
	}
	return want, nil
}

// trimData returns the data buffer reservation beyond n bytes, the
// capacity left unused once the input has been read.
func (r *reservations) trimData(n int64) {
	if r.data <= n {
		return
	}
	extra := uint64(r.data - n)
	if r.budget != nil {
		r.budget.Release(extra)
	}
	r.total -= extra
	r.data = n
}

func (r *reservations) releaseAll() {
	if r.budget != nil {
		r.budget.Release(r.total)
	}
	r.total = 0
}

func outOfMemory(what string, n int64, budget *membudget.Budget) error {
	op := fmt.Sprintf("allocate %s of %s", what, membudget.FormatBytes(uint64(max(n, 0))))
	if budget != nil {
		op += fmt.Sprintf(" (budget %s, available %s, source %s)",
			membudget.FormatBytes(budget.Total()),
			membudget.FormatBytes(budget.Available()),
			budget.Source())
	}
	return rgterr.New(rgterr.ErrOutOfMemory, op, rgterr.NoPos, rgterr.NoPos)
}
