// Package sgemm configuration constants
package sgemm

// Group shape derived from the tile size
const (
	// Units per cooperating group, one per element of an output tile
	GroupSize = BlockSize * BlockSize

	// Shared staging buffer per group: one A tile and one B tile
	SharedTileFloats = 2 * GroupSize
)

// Matrix population bounds. Values are small non-negative integers so
// accumulated sums stay exactly representable.
const (
	// Values of A are drawn from [0, ABound)
	ABound = 3

	// Values of B are drawn from [0, BBound)
	BBound = 2
)

// Preview parameters
const (
	// Default number of rows and columns shown by Preview
	DefaultPreview = 10
)
