// Package sgemm reference implementation for verification
package sgemm

import "github.com/LynnColeArt/sgemm/device"

// GemmTN computes C = alpha*A*B + beta*C sequentially, where A (m x k) and
// C (m x n) are row-major and B (k x n) is supplied column-major, so both
// operands are read along k contiguously.
//
// It is the oracle every parallel strategy is verified against.
// Dimensions are trusted from the caller.
func GemmTN(m, n, k int, alpha float32,
	a []float32, lda int, b []float32, ldb int,
	beta float32, c []float32, ldc int) {

	for col := 0; col < n; col++ {
		for row := 0; row < m; row++ {
			sum := float32(0)
			for inner := 0; inner < k; inner++ {
				sum += a[row*lda+inner] * b[col*ldb+inner]
			}
			c[row*ldc+col] = alpha*sum + beta*c[row*ldc+col]
		}
	}
}

// Reference is the sequential CPU strategy. It consumes the column-major
// copy of B.
type Reference struct{}

// Name implements Strategy.
func (Reference) Name() string { return StrategyCPU }

// Run implements Strategy. It does not use the device.
func (Reference) Run(_ *device.Context, alpha float32, ops Operands, beta float32, c *Matrix) error {
	if err := checkShapes("cpu", ops.A, ops.Bt, ColMajor, c); err != nil {
		return err
	}
	GemmTN(ops.A.Height, ops.Bt.Width, ops.Bt.Height, alpha,
		ops.A.Elements, ops.A.LD(), ops.Bt.Elements, ops.Bt.LD(),
		beta, c.Elements, c.LD())
	return nil
}
