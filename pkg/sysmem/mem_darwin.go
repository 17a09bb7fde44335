//go:build darwin

package sysmem

import "golang.org/x/sys/unix"

// totalSystemMemory returns total physical memory from hw.memsize.
func totalSystemMemory() (uint64, string, bool) {
	mem, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, "", false
	}
	return mem, "hw.memsize", true
}
