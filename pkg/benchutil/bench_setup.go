package benchutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/eunmann/rgt-idx/pkg/rawlog"
)

// SkipIfNoLongBench skips the benchmark if RGT_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("RGT_LONG_BENCH") == "" {
		b.Skip("set RGT_LONG_BENCH=1 to run scaling benchmark")
	}
}

// GenerateLog returns an encoded log of n default-config messages.
func GenerateLog(tb testing.TB, codec *rawlog.Codec, n int) []byte {
	tb.Helper()
	msgs := NewGenerator(DefaultConfig(n)).Generate()
	log, _, err := EncodeLog(codec, msgs)
	if err != nil {
		tb.Fatalf("encode log: %v", err)
	}
	return log
}

// SizeName formats a message count as a sub-benchmark name, e.g. "n=10000".
func SizeName(n int) string {
	return fmt.Sprintf("n=%d", n)
}
