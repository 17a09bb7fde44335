//go:build windows

package sysmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// totalSystemMemory returns total physical memory from GlobalMemoryStatusEx.
func totalSystemMemory() (uint64, string, bool) {
	var st windows.MemoryStatusEx
	st.Length = uint32(unsafe.Sizeof(st))
	if err := windows.GlobalMemoryStatusEx(&st); err != nil {
		return 0, "", false
	}
	return st.TotalPhys, "GlobalMemoryStatusEx", true
}
