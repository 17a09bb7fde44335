// Package memdiag reports Go runtime memory usage next to the memory budget.
//
// Snapshots are logged at debug level, so they appear with --debug.
package memdiag

import (
	"runtime"

	"github.com/rs/zerolog"

	"github.com/eunmann/rgt-idx/pkg/membudget"
)

// divergenceWarnRatio is the heap-to-budget ratio above which a snapshot
// also logs a warning.
const divergenceWarnRatio = 2.0

// divergenceWarnMin is the reserved size below which divergence is ignored.
const divergenceWarnMin = 64 << 20

// Stats holds memory statistics from runtime.
type Stats struct {
	// HeapAlloc is bytes allocated on heap and still in use.
	HeapAlloc uint64
	// HeapSys is bytes obtained from OS for heap.
	HeapSys uint64
	// TotalAlloc is cumulative bytes allocated (even if freed).
	TotalAlloc uint64
	// Sys is bytes obtained from OS.
	Sys uint64
	// NumGC is the number of completed GC cycles.
	NumGC uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

// Ratio returns heap allocation divided by reserved bytes, or 0 when
// nothing is reserved.
func (s Stats) Ratio(reserved uint64) float64 {
	if reserved == 0 {
		return 0
	}
	return float64(s.HeapAlloc) / float64(reserved)
}

// LogWithBudget logs a memory snapshot for phase along with the budget's
// peak reservation. It warns when the heap is much larger than what the
// budget accounted for. A nil budget logs the heap alone.
func LogWithBudget(log zerolog.Logger, phase string, budget *membudget.Budget) Stats {
	stats := Read()
	ev := log.Debug().
		Str("phase", phase).
		Str("heap_alloc", membudget.FormatBytes(stats.HeapAlloc)).
		Str("heap_sys", membudget.FormatBytes(stats.HeapSys)).
		Str("total_alloc", membudget.FormatBytes(stats.TotalAlloc)).
		Uint32("num_gc", stats.NumGC)
	if budget == nil {
		ev.Msg("memory stats")
		return stats
	}

	peak := budget.Peak()
	ratio := stats.Ratio(peak)
	ev.Str("budget_peak", membudget.FormatBytes(peak)).
		Str("budget_in_use", membudget.FormatBytes(budget.InUse())).
		Str("budget_total", membudget.FormatBytes(budget.Total())).
		Float64("heap_vs_budget_ratio", ratio).
		Msg("memory stats with budget")

	if ratio > divergenceWarnRatio && peak > divergenceWarnMin {
		log.Warn().
			Str("phase", phase).
			Str("heap_alloc", membudget.FormatBytes(stats.HeapAlloc)).
			Str("budget_peak", membudget.FormatBytes(peak)).
			Float64("ratio", ratio).
			Msg("heap usage significantly exceeds budget reservations")
	}
	return stats
}
