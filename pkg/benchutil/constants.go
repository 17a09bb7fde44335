package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// Standard benchmark sizes for quick runs.
var BenchmarkSizes = []int{1000, 10000, 100000}

// ScalingSizes are larger sizes for comprehensive scaling tests.
// Used with RGT_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{250000, 1000000, 4000000}

// WidthConfigs are the codec width combinations exercised by tests.
var WidthConfigs = []struct {
	Name           string
	NFL, Level, ID int
}{
	{"nfl1", 1, 1, 1},
	{"nfl2", 2, 2, 4},
	{"nfl4", 4, 4, 4},
	{"mixed", 2, 4, 1},
}
