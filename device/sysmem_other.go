//go:build !linux

package device

// getSystemMemory returns total system memory in bytes
func getSystemMemory() uint64 {
	// No portable query outside linux.
	return DefaultSystemMemory
}
