//go:build !linux && !darwin && !windows && !freebsd && !openbsd && !netbsd && !dragonfly

package sysmem

func totalSystemMemory() (uint64, string, bool) {
	return 0, "", false
}
