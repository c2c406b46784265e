package sgemm

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/LynnColeArt/sgemm/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReferenceMatchesDefinition checks GemmTN against the definition of the
// product. Operands are small integers, so the comparison is exact.
func TestReferenceMatchesDefinition(t *testing.T) {
	ctx := newTestContext(t)
	for i, shape := range testShapes {
		m, k, n := shape[0], shape[1], shape[2]
		t.Run(fmt.Sprintf("%dx%dx%d", m, k, n), func(t *testing.T) {
			ops := RandomOperands(t, ctx, m, k, n, uint64(i))
			c := MatrixOrFail(t, ctx, m, n, func(r, c int) float32 { return float32((r + c) % 5) })
			want := directProduct(2, ops.A, ops.B, 3, c)

			RunOrFail(t, ctx, Reference{}, 2, ops, 3, c)
			assert.Equal(t, want, c.Logical())
			assert.True(t, c.PaddingIsZero())
		})
	}
}

// TestReferenceRandomShapes runs the definition check over random sizes.
func TestReferenceRandomShapes(t *testing.T) {
	ctx := newTestContext(t)
	rng := rand.New(rand.NewPCG(42, 0))
	for i := 0; i < 20; i++ {
		m, k, n := 1+rng.IntN(40), 1+rng.IntN(40), 1+rng.IntN(40)
		ops := RandomOperands(t, ctx, m, k, n, rng.Uint64())
		c := MatrixOrFail(t, ctx, m, n, nil)
		want := directProduct(1, ops.A, ops.B, 0, c)

		RunOrFail(t, ctx, Reference{}, 1, ops, 0, c)
		require.Equal(t, want, c.Logical(), "%dx%dx%d", m, k, n)
	}
}

// TestReferenceMatchesBlas32 cross-checks the reference with gonum on
// non-integer data.
func TestReferenceMatchesBlas32(t *testing.T) {
	ctx := newTestContext(t)
	rng := rand.New(rand.NewPCG(3, 0))
	uniform := func(int, int) float32 { return rng.Float32()*2 - 1 }

	a := MatrixOrFail(t, ctx, 29, 41, uniform)
	b := MatrixOrFail(t, ctx, 41, 17, uniform)
	ops := NewOperands(ctx, a, b)

	want := MatrixOrFail(t, ctx, 29, 17, uniform)
	got := MatrixOrFail(t, ctx, 29, 17, nil)
	require.NoError(t, got.CopyFrom(want))

	RunOrFail(t, ctx, Reference{}, 1.5, ops, -0.5, want)
	RunOrFail(t, ctx, Blas32{}, 1.5, ops, -0.5, got)

	result := VerifyMatrix(want, got, GemmTolerance())
	assert.True(t, result.Passed(), result.String())
}

func TestReferenceDeterministic(t *testing.T) {
	ctx := newTestContext(t)
	ops := RandomOperands(t, ctx, 33, 47, 21, 9)
	first := MatrixOrFail(t, ctx, 33, 21, nil)
	second := MatrixOrFail(t, ctx, 33, 21, nil)

	RunOrFail(t, ctx, Reference{}, 1, ops, 1, first)
	RunOrFail(t, ctx, Reference{}, 1, ops, 1, second)
	assert.Equal(t, first.Elements, second.Elements)
	assert.True(t, VerifyMatrix(first, second, StrictTolerance()).Passed())
}

func TestGemmTNZeroAlpha(t *testing.T) {
	// With alpha = 0 the result is beta*C whatever A and B hold.
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	c := []float32{1, 2, 3, 4}
	GemmTN(2, 2, 2, 0, a, 2, b, 2, 2, c, 2)
	assert.Equal(t, []float32{2, 4, 6, 8}, c)
}

func TestStrategyShapeChecks(t *testing.T) {
	ctx := newTestContext(t)
	ops := RandomOperands(t, ctx, 4, 5, 6, 1)
	c := MatrixOrFail(t, ctx, 4, 6, nil)
	wrongC := MatrixOrFail(t, ctx, 4, 5, nil)
	wrongA := MatrixOrFail(t, ctx, 4, 4, nil)

	for _, name := range StrategyNames() {
		s, err := StrategyByName(name)
		require.NoError(t, err)
		t.Run(name, func(t *testing.T) {
			tests := []struct {
				name string
				ops  Operands
				c    *Matrix
			}{
				{"wrong_c", ops, wrongC},
				{"inner_mismatch", Operands{A: wrongA, B: ops.B, Bt: ops.Bt}, c},
				{"missing_b", Operands{A: ops.A}, c},
				{"b_layouts_swapped", Operands{A: ops.A, B: ops.Bt, Bt: ops.B}, c},
			}
			for _, tt := range tests {
				err := s.Run(ctx, 1, tt.ops, 0, tt.c)
				assert.True(t, device.IsInvalidArgError(err), "%s: got %v", tt.name, err)
			}
		})
	}
}

func TestStrategyByName(t *testing.T) {
	for _, name := range StrategyNames() {
		s, err := StrategyByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := StrategyByName("tiled-nn")
	assert.True(t, device.IsInvalidArgError(err), "got %v", err)
}
