package sgemm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/LynnColeArt/sgemm/device"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Layout is the storage order of a Matrix.
type Layout int

const (
	// RowMajor stores element (r, c) at r*Stride + c.
	RowMajor Layout = iota
	// ColMajor stores element (r, c) at c*HPad + r.
	ColMajor
)

// String implements fmt.Stringer.
func (l Layout) String() string {
	if l == ColMajor {
		return "column-major"
	}
	return "row-major"
}

// Matrix is a dense float32 matrix padded to whole tiles.
//
// Stride is the width rounded up to a multiple of BlockSize and HPad the
// height rounded up likewise, whatever the layout. Every element outside the
// logical Height x Width region is zero, so tiled kernels can read full tiles
// at the edges: padding contributes nothing to any dot product.
type Matrix struct {
	Height int // Logical rows
	Width  int // Logical columns
	Stride int // Padded columns
	HPad   int // Padded rows
	Layout Layout

	// Elements holds Stride*HPad values in Layout order.
	Elements []float32

	buf device.Buffer
}

// PaddedDim returns the smallest multiple of BlockSize >= n.
func PaddedDim(n int) int {
	return ((n-1)/BlockSize + 1) * BlockSize
}

// NewMatrix allocates a zeroed row-major height x width matrix from the
// context memory pool.
func NewMatrix(ctx *device.Context, height, width int) (*Matrix, error) {
	return newMatrix(ctx, height, width, RowMajor)
}

func newMatrix(ctx *device.Context, height, width int, layout Layout) (*Matrix, error) {
	if height < 1 || width < 1 {
		return nil, device.NewInvalidArgError("NewMatrix",
			fmt.Sprintf("dimensions %dx%d must be positive", height, width))
	}
	m := &Matrix{
		Height: height,
		Width:  width,
		Stride: PaddedDim(width),
		HPad:   PaddedDim(height),
		Layout: layout,
	}
	if m.Stride > math.MaxInt/m.HPad {
		return nil, device.NewMemoryError("NewMatrix",
			fmt.Sprintf("%dx%d padded matrix overflows the address space", m.HPad, m.Stride), nil)
	}
	buf, err := ctx.Malloc(m.Stride * m.HPad)
	if err != nil {
		return nil, errors.Wrapf(err, "allocating %dx%d %s matrix", height, width, layout)
	}
	m.buf = buf
	m.Elements = buf.Float32()
	klog.V(2).Infof("sgemm: allocated %s", m)
	return m, nil
}

// String implements fmt.Stringer.
func (m *Matrix) String() string {
	return fmt.Sprintf("%dx%d %s matrix (padded %dx%d)", m.Height, m.Width, m.Layout, m.HPad, m.Stride)
}

// LD returns the leading dimension: the distance between consecutive rows
// (row-major) or columns (column-major) in Elements.
func (m *Matrix) LD() int {
	if m.Layout == ColMajor {
		return m.HPad
	}
	return m.Stride
}

// Index returns the position of element (r, c) in Elements. Padding
// positions (r < HPad, c < Stride) are valid.
func (m *Matrix) Index(r, c int) int {
	if m.Layout == ColMajor {
		return c*m.HPad + r
	}
	return r*m.Stride + c
}

// At returns element (r, c).
func (m *Matrix) At(r, c int) float32 {
	return m.Elements[m.Index(r, c)]
}

// Set sets element (r, c) of the logical region.
func (m *Matrix) Set(r, c int, v float32) {
	if r < 0 || r >= m.Height || c < 0 || c >= m.Width {
		panic(fmt.Sprintf("sgemm: Set(%d, %d) outside %dx%d matrix", r, c, m.Height, m.Width))
	}
	m.Elements[m.Index(r, c)] = v
}

// Bytes returns the padded footprint in bytes.
func (m *Matrix) Bytes() int {
	return len(m.Elements) * device.Float32Size
}

// Zero clears the whole padded buffer.
func (m *Matrix) Zero() {
	clear(m.Elements)
}

// Fill sets every logical element to a random integer in [0, bound) drawn
// from rng. The padding region is left untouched.
func (m *Matrix) Fill(rng *rand.Rand, bound int) {
	m.FillFunc(func(int, int) float32 {
		return float32(rng.IntN(bound))
	})
}

// FillFunc sets every logical element (r, c) to fn(r, c), row by row.
func (m *Matrix) FillFunc(fn func(r, c int) float32) {
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			m.Elements[m.Index(r, c)] = fn(r, c)
		}
	}
}

// PaddingIsZero reports whether every element outside the logical region is
// exactly zero.
func (m *Matrix) PaddingIsZero() bool {
	for r := 0; r < m.HPad; r++ {
		for c := 0; c < m.Stride; c++ {
			if (r >= m.Height || c >= m.Width) && m.At(r, c) != 0 {
				return false
			}
		}
	}
	return true
}

// Transpose returns a materialized copy of m with the opposite layout: the
// same logical contents, with the reduction dimension contiguous.
func (m *Matrix) Transpose(ctx *device.Context) (*Matrix, error) {
	layout := ColMajor
	if m.Layout == ColMajor {
		layout = RowMajor
	}
	t, err := newMatrix(ctx, m.Height, m.Width, layout)
	if err != nil {
		return nil, err
	}
	t.FillFunc(m.At)
	return t, nil
}

// Logical returns a dense row-major copy of the logical region.
func (m *Matrix) Logical() []float32 {
	out := make([]float32, 0, m.Height*m.Width)
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			out = append(out, m.At(r, c))
		}
	}
	return out
}

// Preview returns the first min(n, Height) x min(n, Width) elements.
func (m *Matrix) Preview(n int) [][]float32 {
	rows, cols := min(n, m.Height), min(n, m.Width)
	preview := make([][]float32, rows)
	for r := range preview {
		preview[r] = make([]float32, cols)
		for c := range preview[r] {
			preview[r][c] = m.At(r, c)
		}
	}
	return preview
}

// CopyFrom copies the whole padded buffer of src, which must have the same
// shape and layout.
func (m *Matrix) CopyFrom(src *Matrix) error {
	if src.Height != m.Height || src.Width != m.Width || src.Layout != m.Layout {
		return device.NewInvalidArgError("CopyFrom",
			fmt.Sprintf("cannot copy %s into %s", src, m))
	}
	copy(m.Elements, src.Elements)
	return nil
}

// Release returns the buffer to the context memory pool.
func (m *Matrix) Release(ctx *device.Context) error {
	if m.buf.IsZero() {
		return nil
	}
	err := ctx.Free(m.buf)
	m.buf = device.Buffer{}
	m.Elements = nil
	return err
}
