package sgemm

import (
	"math/rand/v2"
	"testing"

	"github.com/LynnColeArt/sgemm/device"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

// newTestContext creates a context destroyed at the end of the test.
func newTestContext(t testing.TB, opts ...device.Option) *device.Context {
	t.Helper()
	ctx := device.NewContext(opts...)
	t.Cleanup(ctx.Destroy)
	return ctx
}

// MatrixOrFail allocates a row-major matrix, fills it with fill if not nil,
// and fails the test if unsuccessful.
func MatrixOrFail(t testing.TB, ctx *device.Context, rows, cols int, fill func(r, c int) float32) *Matrix {
	t.Helper()
	m, err := NewMatrix(ctx, rows, cols)
	if err != nil {
		t.Fatalf("Failed to allocate %dx%d matrix: %v", rows, cols, err)
	}
	if fill != nil {
		m.FillFunc(fill)
	}
	return m
}

// FromRows builds a matrix from literal rows.
func FromRows(t testing.TB, ctx *device.Context, rows [][]float32) *Matrix {
	t.Helper()
	return MatrixOrFail(t, ctx, len(rows), len(rows[0]), func(r, c int) float32 {
		return rows[r][c]
	})
}

// NewOperands pairs a and b with the column-major copy of b.
func NewOperands(ctx *device.Context, a, b *Matrix) Operands {
	return Operands{A: a, B: b, Bt: must.M1(b.Transpose(ctx))}
}

// RandomOperands populates an m x k A and a k x n B the way the benchmark
// does, from a generator seeded with seed.
func RandomOperands(t testing.TB, ctx *device.Context, m, k, n int, seed uint64) Operands {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 0))
	a := MatrixOrFail(t, ctx, m, k, nil)
	a.Fill(rng, ABound)
	b := MatrixOrFail(t, ctx, k, n, nil)
	b.Fill(rng, BBound)
	return NewOperands(ctx, a, b)
}

// RunOrFail runs a strategy and fails the test if unsuccessful.
func RunOrFail(t testing.TB, ctx *device.Context, s Strategy, alpha float32, ops Operands, beta float32, c *Matrix) {
	t.Helper()
	require.NoError(t, s.Run(ctx, alpha, ops, beta, c), "strategy %s", s.Name())
}

// directProduct evaluates alpha*A*B + beta*C from the definition, with
// float64 sums, as a dense row-major slice.
func directProduct(alpha float32, a, b *Matrix, beta float32, c *Matrix) []float32 {
	out := make([]float32, 0, a.Height*b.Width)
	for i := 0; i < a.Height; i++ {
		for j := 0; j < b.Width; j++ {
			var sum float64
			for p := 0; p < a.Width; p++ {
				sum += float64(a.At(i, p)) * float64(b.At(p, j))
			}
			out = append(out, float32(float64(alpha)*sum+float64(beta)*float64(c.At(i, j))))
		}
	}
	return out
}

// testShapes are (M, K, N) triples covering tile multiples, sub-tile sizes
// and ragged edges.
var testShapes = [][3]int{
	{1, 1, 1},
	{BlockSize, BlockSize, BlockSize},
	{2 * BlockSize, BlockSize, 3 * BlockSize},
	{BlockSize - 1, BlockSize + 1, 2},
	{BlockSize + 1, 2*BlockSize - 1, BlockSize + 3},
	{37, 19, 23},
	{3, 70, 5},
}
