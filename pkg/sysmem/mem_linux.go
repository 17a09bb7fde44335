//go:build linux

package sysmem

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// cgroup limit files, v2 first.
var cgroupLimits = []struct {
	path   string
	method string
}{
	{"/sys/fs/cgroup/memory.max", "cgroup2"},
	{"/sys/fs/cgroup/memory/memory.limit_in_bytes", "cgroup1"},
}

// totalSystemMemory returns total RAM from sysinfo, capped by the cgroup
// memory limit when one is set.
func totalSystemMemory() (uint64, string, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, "", false
	}
	total := info.Totalram * uint64(info.Unit)
	method := "sysinfo"

	for _, c := range cgroupLimits {
		limit, ok := readCgroupLimit(c.path)
		if ok && limit < total {
			total, method = limit, c.method
			break
		}
	}
	return total, method, true
}

// readCgroupLimit parses a cgroup memory limit file. "max" and the v1
// unlimited value (near MaxInt64) report no limit.
func readCgroupLimit(path string) (uint64, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return parseCgroupLimit(string(b))
}

func parseCgroupLimit(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "max" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 || n >= 1<<62 {
		return 0, false
	}
	return n, true
}
