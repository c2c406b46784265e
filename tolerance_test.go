package sgemm

import (
	"math"
	"testing"

	"github.com/LynnColeArt/sgemm/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32NearEqual(t *testing.T) {
	ulpOnly := ToleranceConfig{ULPTol: 4}
	tests := []struct {
		name     string
		a, b     float32
		tol      ToleranceConfig
		expected bool
	}{
		{
			name:     "Exact_Equal",
			a:        1.0,
			b:        1.0,
			tol:      StrictTolerance(),
			expected: true,
		},
		{
			name:     "Within_AbsTol",
			a:        1e-8,
			b:        2e-8,
			tol:      DefaultTolerance(),
			expected: true,
		},
		{
			name:     "Outside_AbsTol",
			a:        1e-6,
			b:        2e-6,
			tol:      DefaultTolerance(),
			expected: false,
		},
		{
			name:     "Within_RelTol",
			a:        1000.0,
			b:        1000.005,
			tol:      DefaultTolerance(),
			expected: true,
		},
		{
			name:     "Gemm_RelTol",
			a:        4096,
			b:        4098,
			tol:      GemmTolerance(),
			expected: true,
		},
		{
			name:     "Outside_Gemm_RelTol",
			a:        4096,
			b:        4106,
			tol:      GemmTolerance(),
			expected: false,
		},
		{
			name:     "Both_Zero",
			a:        0.0,
			b:        float32(math.Copysign(0, -1)),
			tol:      StrictTolerance(),
			expected: true,
		},
		{
			name:     "Both_NaN",
			a:        float32(math.NaN()),
			b:        float32(math.NaN()),
			tol:      DefaultTolerance(),
			expected: true,
		},
		{
			name:     "NaN_Not_Checked",
			a:        float32(math.NaN()),
			b:        float32(math.NaN()),
			tol:      ToleranceConfig{},
			expected: false,
		},
		{
			name:     "Both_PosInf",
			a:        float32(math.Inf(1)),
			b:        float32(math.Inf(1)),
			tol:      DefaultTolerance(),
			expected: true,
		},
		{
			name:     "Mixed_Inf",
			a:        float32(math.Inf(1)),
			b:        float32(math.Inf(-1)),
			tol:      DefaultTolerance(),
			expected: false,
		},
		{
			name:     "Within_ULP",
			a:        1.0,
			b:        math.Float32frombits(math.Float32bits(1.0) + 2),
			tol:      ulpOnly,
			expected: true,
		},
		{
			name:     "Outside_ULP",
			a:        1.0,
			b:        math.Float32frombits(math.Float32bits(1.0) + 5),
			tol:      ulpOnly,
			expected: false,
		},
		{
			name:     "Strict_Adjacent",
			a:        1.0,
			b:        math.Float32frombits(math.Float32bits(1.0) + 1),
			tol:      StrictTolerance(),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Float32NearEqual(tt.a, tt.b, tt.tol)
			if result != tt.expected {
				t.Errorf("Float32NearEqual(%v, %v) = %v, want %v",
					tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestFloat32ULPDiff(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float32
		expected int
	}{
		{"Same_Value", 1.0, 1.0, 0},
		{"Adjacent_Values", 1.0, math.Float32frombits(math.Float32bits(1.0) + 1), 1},
		{"Reversed", math.Float32frombits(math.Float32bits(1.0) + 2), 1.0, 2},
		{"Different_Signs", 1.0, -1.0, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Float32ULPDiff(tt.a, tt.b))
		})
	}
}

func TestVerifyFloat32Array(t *testing.T) {
	tests := []struct {
		name       string
		expected   []float32
		actual     []float32
		wantErrors int
		firstError int
	}{
		{
			name:       "All_Match",
			expected:   []float32{1, 2, 3, 4},
			actual:     []float32{1, 2, 3, 4},
			firstError: -1,
		},
		{
			name:       "One_Off",
			expected:   []float32{1, 2, 3, 4},
			actual:     []float32{1, 2, 3.5, 4},
			wantErrors: 1,
			firstError: 2,
		},
		{
			name:       "Different_Lengths",
			expected:   []float32{1, 2, 3},
			actual:     []float32{1, 2},
			wantErrors: 3,
			firstError: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := VerifyFloat32Array(tt.expected, tt.actual, GemmTolerance())
			assert.Equal(t, tt.wantErrors, result.NumErrors, result.String())
			assert.Equal(t, tt.firstError, result.FirstError)
			assert.Equal(t, len(tt.expected), result.TotalItems)
			assert.Equal(t, tt.wantErrors == 0, result.Passed())
		})
	}

	result := VerifyFloat32Array([]float32{2, 4}, []float32{3, 4}, StrictTolerance())
	assert.Equal(t, float32(1), result.MaxAbsError)
	assert.Equal(t, float32(0.5), result.MaxRelError)
	assert.Equal(t, float32(2), result.Expected)
	assert.Equal(t, float32(3), result.Actual)
}

func TestVerifyMatrix(t *testing.T) {
	ctx := newTestContext(t)
	fill := func(r, c int) float32 { return float32(r*10 + c) }
	expected := MatrixOrFail(t, ctx, 3, 4, fill)

	t.Run("Match", func(t *testing.T) {
		actual := MatrixOrFail(t, ctx, 3, 4, fill)
		result := VerifyMatrix(expected, actual, StrictTolerance())
		assert.True(t, result.Passed(), result.String())
		assert.NoError(t, result.Err("match"))
	})

	t.Run("Across_Layouts", func(t *testing.T) {
		actual, err := expected.Transpose(ctx)
		require.NoError(t, err)
		assert.True(t, VerifyMatrix(expected, actual, StrictTolerance()).Passed())
	})

	t.Run("Mismatch", func(t *testing.T) {
		actual := MatrixOrFail(t, ctx, 3, 4, fill)
		actual.Set(2, 1, 99)
		result := VerifyMatrix(expected, actual, GemmTolerance())
		require.False(t, result.Passed())
		assert.Equal(t, 1, result.NumErrors)
		assert.Equal(t, 2, result.FirstRow)
		assert.Equal(t, 1, result.FirstCol)

		err := result.Err("tiled-tt")
		require.Error(t, err)
		assert.True(t, device.IsNumericalError(err), "got %v", err)
		assert.Contains(t, err.Error(), "(2, 1)")
	})

	t.Run("Dirty_Padding", func(t *testing.T) {
		actual := MatrixOrFail(t, ctx, 3, 4, fill)
		actual.Elements[actual.Index(3, 0)] = 1
		result := VerifyMatrix(expected, actual, GemmTolerance())
		assert.Zero(t, result.NumErrors)
		assert.Equal(t, 1, result.PaddingErrors)
		assert.False(t, result.Passed())
		assert.True(t, device.IsNumericalError(result.Err("naive")))
	})

	t.Run("Shape_Mismatch", func(t *testing.T) {
		actual := MatrixOrFail(t, ctx, 4, 3, nil)
		result := VerifyMatrix(expected, actual, GemmTolerance())
		assert.Equal(t, 12, result.NumErrors)
		assert.False(t, result.Passed())
	})
}
