package sgemm

import (
	"github.com/LynnColeArt/sgemm/device"
	"github.com/pkg/errors"
)

// SimpleSgemmTT returns the naive kernel: each unit computes one element of
// C from a full row of A and a full column of B read straight from main
// storage, with no reuse between units. A and B are row-major.
//
// Units mapped to padding positions of C return without writing.
func SimpleSgemmTT(m, n, k int, alpha float32,
	a []float32, lda int, b []float32, ldb int,
	beta float32, c []float32, ldc int) device.KernelFunc {

	return func(tid device.ThreadID) {
		row, col := tid.GlobalY(), tid.GlobalX()
		if row >= m || col >= n {
			return
		}
		sum := float32(0)
		for i := 0; i < k; i++ {
			sum += a[row*lda+i] * b[i*ldb+col]
		}
		c[row*ldc+col] = alpha*sum + beta*c[row*ldc+col]
	}
}

// Naive runs SimpleSgemmTT with one group per output tile.
type Naive struct{}

// Name implements Strategy.
func (Naive) Name() string { return StrategySimpleTT }

// Run implements Strategy.
func (Naive) Run(ctx *device.Context, alpha float32, ops Operands, beta float32, c *Matrix) error {
	if err := checkShapes("simple-tt", ops.A, ops.B, RowMajor, c); err != nil {
		return err
	}
	grid, block := outputGrid(c)
	kernel := SimpleSgemmTT(ops.A.Height, ops.B.Width, ops.B.Height, alpha,
		ops.A.Elements, ops.A.LD(), ops.B.Elements, ops.B.LD(),
		beta, c.Elements, c.LD())
	err := ctx.Launch(device.LaunchConfig{
		Name:  "simple_sgemm_tt",
		Grid:  grid,
		Block: block,
	}, kernel)
	return errors.Wrap(err, "simple-tt")
}
