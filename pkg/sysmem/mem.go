// Package sysmem detects how much memory the process may use, which sizes
// the default memory budget of the index sorter.
package sysmem

// DefaultMemoryBytes is the fallback memory value (4 GB) used when
// platform-specific detection fails or is unsupported.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// MethodDefault names the fallback used when detection fails.
const MethodDefault = "default"

// Result holds the result of memory detection.
type Result struct {
	// TotalBytes is the memory available to the process in bytes.
	TotalBytes uint64

	// Reliable indicates whether the value was obtained from
	// a platform-specific method (true) or is a fallback default (false).
	Reliable bool

	// Method names the source of TotalBytes, e.g. "sysinfo" or "cgroup2".
	Method string
}

// Total returns the memory available to the process: physical RAM, lowered
// to the container limit where one applies. If detection fails or is
// unsupported, it returns DefaultMemoryBytes with Reliable=false.
func Total() Result {
	bytes, method, ok := totalSystemMemory()
	if !ok || bytes == 0 {
		return Result{TotalBytes: DefaultMemoryBytes, Method: MethodDefault}
	}
	return Result{TotalBytes: bytes, Reliable: true, Method: method}
}
