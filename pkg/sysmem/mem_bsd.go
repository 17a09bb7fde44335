//go:build freebsd || openbsd || netbsd || dragonfly

package sysmem

import "golang.org/x/sys/unix"

// totalSystemMemory returns total physical memory from sysctl,
// trying hw.physmem then the FreeBSD-only hw.realmem.
func totalSystemMemory() (uint64, string, bool) {
	for _, name := range []string{"hw.physmem", "hw.realmem"} {
		if mem, err := unix.SysctlUint64(name); err == nil && mem > 0 {
			return mem, name, true
		}
	}
	return 0, "", false
}
