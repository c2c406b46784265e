// Package device configuration constants
package device

// Thread and block dimensions
const (
	// Maximum units per group (CUDA compatibility)
	MaxThreadsPerBlock = 1024

	// Maximum shared staging buffer per group, in float32 elements (48KB)
	MaxSharedFloats = 48 * 1024 / 4
)

// Memory pool parameters
const (
	// Size of a float32 element in bytes
	Float32Size = 4

	// Fallback total memory when the platform cannot report it
	DefaultSystemMemory = 16 * 1024 * 1024 * 1024 // 16GB
)
