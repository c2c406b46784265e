//go:build linux

package device

import (
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// getSystemMemory returns total system memory in bytes
func getSystemMemory() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		klog.Warningf("sysinfo failed, assuming %d bytes of memory: %v", uint64(DefaultSystemMemory), err)
		return DefaultSystemMemory
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return uint64(info.Totalram) * unit
}
