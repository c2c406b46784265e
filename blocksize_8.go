//go:build sgemm_block8

package sgemm

// BlockSize is the tile edge length.
const BlockSize = 8
