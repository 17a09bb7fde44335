// Package membudget bounds the memory the index sorter may hold at once.
//
// The sorter reserves its data buffer and its merge buffer before allocating
// them; a reservation that does not fit is reported as an out-of-memory
// failure instead of letting the process grow until the OS kills it.
package membudget

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/eunmann/rgt-idx/pkg/humanfmt"
	"github.com/eunmann/rgt-idx/pkg/sysmem"
)

// DefaultBudgetBytes is the fallback memory budget when system RAM cannot be detected.
const DefaultBudgetBytes uint64 = 2 * 1024 * 1024 * 1024

// BudgetSource indicates how the memory budget was determined.
type BudgetSource string

const (
	// BudgetSourceAuto50Pct indicates the budget was set to 50% of detected RAM.
	BudgetSourceAuto50Pct BudgetSource = "auto-50pct"
	// BudgetSourceDefault indicates the budget used the fallback default.
	BudgetSourceDefault BudgetSource = "default"
	// BudgetSourceCLI indicates the budget was set via CLI flag.
	BudgetSourceCLI BudgetSource = "cli"
	// BudgetSourceEnv indicates the budget was set via environment variable.
	BudgetSourceEnv BudgetSource = "env"
)

// Budget tracks reserved bytes against a fixed total.
// Callers reserve before allocating and release when done.
//
// Budget is safe for concurrent use.
type Budget struct {
	total  uint64
	inUse  atomic.Uint64
	peak   atomic.Uint64
	source BudgetSource
}

// Config holds configuration for creating a Budget.
type Config struct {
	// TotalBytes is the total memory budget in bytes.
	TotalBytes uint64

	// Source indicates how the budget was determined.
	Source BudgetSource
}

// New creates a new Budget with the given configuration.
func New(cfg Config) *Budget {
	return &Budget{
		total:  cfg.TotalBytes,
		source: cfg.Source,
	}
}

// NewFromSystemRAM creates a Budget set to 50% of system RAM.
// If RAM cannot be detected, uses DefaultBudgetBytes.
func NewFromSystemRAM() *Budget {
	result := sysmem.Total()
	if !result.Reliable {
		return New(Config{TotalBytes: DefaultBudgetBytes, Source: BudgetSourceDefault})
	}
	return New(Config{TotalBytes: result.TotalBytes / 2, Source: BudgetSourceAuto50Pct})
}

// Total returns the total budget in bytes.
func (b *Budget) Total() uint64 {
	return b.total
}

// InUse returns the currently reserved bytes.
func (b *Budget) InUse() uint64 {
	return b.inUse.Load()
}

// Peak returns the largest number of bytes reserved at any time.
func (b *Budget) Peak() uint64 {
	return b.peak.Load()
}

// Available returns the available bytes (total - inUse).
func (b *Budget) Available() uint64 {
	inUse := b.inUse.Load()
	if inUse >= b.total {
		return 0
	}
	return b.total - inUse
}

// Source returns how the budget was determined.
func (b *Budget) Source() BudgetSource {
	return b.source
}

// TryReserve attempts to reserve n bytes.
// Returns true if successful, false if it would exceed the budget.
func (b *Budget) TryReserve(n uint64) bool {
	for {
		current := b.inUse.Load()
		newTotal := current + n
		if newTotal < current || newTotal > b.total {
			return false
		}
		if b.inUse.CompareAndSwap(current, newTotal) {
			b.notePeak(newTotal)
			return true
		}
	}
}

func (b *Budget) notePeak(n uint64) {
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Release returns n bytes to the available pool.
func (b *Budget) Release(n uint64) {
	for {
		current := b.inUse.Load()
		next := uint64(0)
		if n < current {
			next = current - n
		}
		if b.inUse.CompareAndSwap(current, next) {
			return
		}
	}
}

// Stats holds budget statistics.
type Stats struct {
	TotalBytes     uint64
	InUseBytes     uint64
	PeakBytes      uint64
	AvailableBytes uint64
	Source         BudgetSource
	UsagePercent   float64
}

// Stats returns current budget statistics.
func (b *Budget) Stats() Stats {
	inUse := b.inUse.Load()
	available := uint64(0)
	if inUse < b.total {
		available = b.total - inUse
	}
	usagePct := 0.0
	if b.total > 0 {
		usagePct = float64(inUse) / float64(b.total) * 100.0
	}
	return Stats{
		TotalBytes:     b.total,
		InUseBytes:     inUse,
		PeakBytes:      b.peak.Load(),
		AvailableBytes: available,
		Source:         b.source,
		UsagePercent:   usagePct,
	}
}

// sizeSuffixes maps size suffixes to multipliers. Single letters are binary.
var sizeSuffixes = map[string]float64{
	"": 1, "B": 1,
	"KB": 1e3, "KiB": 1 << 10, "K": 1 << 10,
	"MB": 1e6, "MiB": 1 << 20, "M": 1 << 20,
	"GB": 1e9, "GiB": 1 << 30, "G": 1 << 30,
	"TB": 1e12, "TiB": 1 << 40, "T": 1 << 40,
}

// ParseHumanSize parses a human-readable size string (e.g., "4GiB", "512MB").
// Supported suffixes: B, KB, KiB, K, MB, MiB, M, GB, GiB, G, TB, TiB, T.
func ParseHumanSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size string")
	}

	numEnd := strings.IndexFunc(s, func(c rune) bool {
		return (c < '0' || c > '9') && c != '.'
	})
	if numEnd < 0 {
		numEnd = len(s)
	}
	numStr, suffix := s[:numEnd], strings.TrimSpace(s[numEnd:])

	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", numStr)
	}
	mult, ok := sizeSuffixes[suffix]
	if !ok {
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}
	v := num * mult
	if v >= math.MaxUint64 {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return uint64(v), nil
}

// FormatBytes formats a byte count as a human-readable string, e.g. "1.50 GiB".
func FormatBytes(b uint64) string {
	return humanfmt.Bytes(int64(min(b, math.MaxInt64)))
}
