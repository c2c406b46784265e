//go:build sgemm_block32 && !sgemm_block8

package sgemm

// BlockSize is the tile edge length. 32x32 groups use the maximum of 1024
// units per group.
const BlockSize = 32
