//go:build linux

package health

import "golang.org/x/sys/unix"

func systemMemory() (total, free uint64, ok bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, false
	}
	unit := uint64(info.Unit)
	return info.Totalram * unit, info.Freeram * unit, true
}
