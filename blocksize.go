//go:build !sgemm_block8 && !sgemm_block32

package sgemm

// BlockSize is the tile edge length. Build with -tags sgemm_block8 or
// sgemm_block32 to change it; every padded dimension derives from it.
const BlockSize = 16
