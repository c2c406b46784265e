package sgemm

import (
	"github.com/LynnColeArt/sgemm/device"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Blas32 hands the product to gonum's float32 BLAS. It reads the
// column-major copy of B, which gonum sees as a row-major n x k matrix and
// multiplies transposed.
//
// It is a library baseline for the report and is not run by default.
type Blas32 struct{}

// Name implements Strategy.
func (Blas32) Name() string { return StrategyBlas32 }

// Run implements Strategy. gonum schedules its own goroutines; the device
// context is not used.
func (Blas32) Run(_ *device.Context, alpha float32, ops Operands, beta float32, c *Matrix) error {
	if err := checkShapes("blas32", ops.A, ops.Bt, ColMajor, c); err != nil {
		return err
	}
	a := blas32.General{Rows: ops.A.Height, Cols: ops.A.Width, Stride: ops.A.LD(), Data: ops.A.Elements}
	bt := blas32.General{Rows: ops.Bt.Width, Cols: ops.Bt.Height, Stride: ops.Bt.LD(), Data: ops.Bt.Elements}
	out := blas32.General{Rows: c.Height, Cols: c.Width, Stride: c.LD(), Data: c.Elements}
	blas32.Gemm(blas.NoTrans, blas.Trans, alpha, a, bt, beta, out)
	return nil
}
