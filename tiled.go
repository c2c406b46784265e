package sgemm

import (
	"github.com/LynnColeArt/sgemm/device"
	"github.com/pkg/errors"
)

// Tiled kernels.
//
// One group of BlockSize x BlockSize units computes one tile of C. The
// reduction dimension is consumed in chunks of BlockSize: every unit stages
// one element of the A tile and one of the B tile into the group's shared
// buffer, the group synchronizes, every unit accumulates its row-by-column
// product over the staged tiles, and the group synchronizes again before the
// buffer is overwritten by the next chunk. Each unit inside the logical m x n
// result writes its element of C once, after the last chunk. Units over the
// padding stage and synchronize like the others but leave C untouched, so a
// non-finite input cannot reach the padding of C.
//
// Kernels read whole tiles at the matrix edges without bounds checks, so k
// is rounded up to a whole number of chunks and every operand must be a
// padded Matrix: padding elements are zero and add nothing to the sums.

// numChunks returns how many BlockSize chunks cover k.
func numChunks(k int) int {
	return (k + BlockSize - 1) / BlockSize
}

// TiledSgemmTT returns the tiled kernel for a row-major B. Staging the B tile
// reads down columns of B, a stride of ldb between the units of a row.
func TiledSgemmTT(m, n, k int, alpha float32,
	a []float32, lda int, b []float32, ldb int,
	beta float32, c []float32, ldc int) device.KernelFunc {

	chunks := numChunks(k)
	return func(tid device.ThreadID) {
		const bs = BlockSize
		shared := tid.Shared()
		aTile, bTile := shared[:GroupSize], shared[GroupSize:SharedTileFloats]

		tx, ty := tid.ThreadIdx.X, tid.ThreadIdx.Y
		row := tid.BlockIdx.Y*bs + ty
		col := tid.BlockIdx.X*bs + tx

		sum := float32(0)
		for t := 0; t < chunks; t++ {
			kBase := t * bs
			aTile[ty*bs+tx] = a[row*lda+kBase+tx]
			bTile[ty*bs+tx] = b[(kBase+ty)*ldb+col]
			tid.SyncThreads()

			for i := 0; i < bs; i++ {
				sum += aTile[ty*bs+i] * bTile[i*bs+tx]
			}
			tid.SyncThreads()
		}
		if row < m && col < n {
			c[row*ldc+col] = alpha*sum + beta*c[row*ldc+col]
		}
	}
}

// TiledSgemmTN returns the tiled kernel for a column-major B: the B tile is
// staged transposed, bTile[localCol][localK], and both tiles are read
// contiguously along k.
func TiledSgemmTN(m, n, k int, alpha float32,
	a []float32, lda int, b []float32, ldb int,
	beta float32, c []float32, ldc int) device.KernelFunc {

	chunks := numChunks(k)
	return func(tid device.ThreadID) {
		const bs = BlockSize
		shared := tid.Shared()
		aTile, bTile := shared[:GroupSize], shared[GroupSize:SharedTileFloats]

		tx, ty := tid.ThreadIdx.X, tid.ThreadIdx.Y
		rowBase, colBase := tid.BlockIdx.Y*bs, tid.BlockIdx.X*bs
		row, col := rowBase+ty, colBase+tx

		sum := float32(0)
		for t := 0; t < chunks; t++ {
			kBase := t * bs
			aTile[ty*bs+tx] = a[row*lda+kBase+tx]
			bTile[ty*bs+tx] = b[(colBase+ty)*ldb+kBase+tx]
			tid.SyncThreads()

			for i := 0; i < bs; i++ {
				sum += aTile[ty*bs+i] * bTile[tx*bs+i]
			}
			tid.SyncThreads()
		}
		if row < m && col < n {
			c[row*ldc+col] = alpha*sum + beta*c[row*ldc+col]
		}
	}
}

// tiledLaunch is the launch shape shared by both tiled strategies.
func tiledLaunch(name string, c *Matrix) device.LaunchConfig {
	grid, block := outputGrid(c)
	return device.LaunchConfig{
		Name:         name,
		Grid:         grid,
		Block:        block,
		SharedFloats: SharedTileFloats,
		Cooperative:  true,
	}
}

// TiledTT runs TiledSgemmTT on the row-major B.
type TiledTT struct{}

// Name implements Strategy.
func (TiledTT) Name() string { return StrategyTiledTT }

// Run implements Strategy.
func (TiledTT) Run(ctx *device.Context, alpha float32, ops Operands, beta float32, c *Matrix) error {
	if err := checkShapes("tiled-tt", ops.A, ops.B, RowMajor, c); err != nil {
		return err
	}
	kernel := TiledSgemmTT(c.Height, c.Width, ops.B.Height, alpha,
		ops.A.Elements, ops.A.LD(), ops.B.Elements, ops.B.LD(),
		beta, c.Elements, c.LD())
	return errors.Wrap(ctx.Launch(tiledLaunch("tiled_sgemm_tt", c), kernel), "tiled-tt")
}

// TiledTN runs TiledSgemmTN on the column-major copy of B.
type TiledTN struct{}

// Name implements Strategy.
func (TiledTN) Name() string { return StrategyTiledTN }

// Run implements Strategy.
func (TiledTN) Run(ctx *device.Context, alpha float32, ops Operands, beta float32, c *Matrix) error {
	if err := checkShapes("tiled-tn", ops.A, ops.Bt, ColMajor, c); err != nil {
		return err
	}
	kernel := TiledSgemmTN(c.Height, c.Width, ops.Bt.Height, alpha,
		ops.A.Elements, ops.A.LD(), ops.Bt.Elements, ops.Bt.LD(),
		beta, c.Elements, c.LD())
	return errors.Wrap(ctx.Launch(tiledLaunch("tiled_sgemm_tn", c), kernel), "tiled-tn")
}
