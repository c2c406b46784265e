package sgemm

import (
	"fmt"
	"strings"

	"github.com/LynnColeArt/sgemm/device"
)

// Strategy names, in the order the benchmark runs them.
const (
	StrategyCPU      = "cpu"
	StrategySimpleTT = "simple-tt"
	StrategyTiledTT  = "tiled-tt"
	StrategyTiledTN  = "tiled-tn"
	StrategyBlas32   = "blas32"
)

// Operands are the inputs shared by every strategy: A (row-major), B
// (row-major) and Bt, the column-major copy of B. Each strategy reads the
// orientation of B it needs.
type Operands struct {
	A  *Matrix
	B  *Matrix
	Bt *Matrix
}

// Strategy is one way of computing C = alpha*A*B + beta*C.
type Strategy interface {
	// Name identifies the strategy in reports.
	Name() string

	// Run overwrites C with alpha*A*B + beta*C. It blocks until done.
	Run(ctx *device.Context, alpha float32, ops Operands, beta float32, c *Matrix) error
}

// DefaultStrategies lists the strategies benchmarked by default.
var DefaultStrategies = []string{StrategyCPU, StrategySimpleTT, StrategyTiledTT, StrategyTiledTN}

var registry = map[string]Strategy{
	StrategyCPU:      Reference{},
	StrategySimpleTT: Naive{},
	StrategyTiledTT:  TiledTT{},
	StrategyTiledTN:  TiledTN{},
	StrategyBlas32:   Blas32{},
}

// StrategyNames returns every known strategy name.
func StrategyNames() []string {
	return []string{StrategyCPU, StrategySimpleTT, StrategyTiledTT, StrategyTiledTN, StrategyBlas32}
}

// StrategyByName looks up a strategy.
func StrategyByName(name string) (Strategy, error) {
	s, ok := registry[name]
	if !ok {
		return nil, device.NewInvalidArgError("StrategyByName",
			fmt.Sprintf("unknown strategy %q (known: %s)", name, strings.Join(StrategyNames(), ", ")))
	}
	return s, nil
}

// checkShapes validates the operands of a strategy before anything runs:
// a row-major A (m x k), a B of the given layout (k x n) and a row-major
// C (m x n).
func checkShapes(op string, a, b *Matrix, bLayout Layout, c *Matrix) error {
	switch {
	case a == nil || b == nil || c == nil:
		return device.NewInvalidArgError(op, "missing operand")
	case a.Layout != RowMajor || c.Layout != RowMajor:
		return device.NewInvalidArgError(op, "A and C must be row-major")
	case b.Layout != bLayout:
		return device.NewInvalidArgError(op, fmt.Sprintf("B must be %s", bLayout))
	case a.Width != b.Height:
		return device.NewInvalidArgError(op,
			fmt.Sprintf("inner dimensions differ: A is %dx%d, B is %dx%d", a.Height, a.Width, b.Height, b.Width))
	case c.Height != a.Height || c.Width != b.Width:
		return device.NewInvalidArgError(op,
			fmt.Sprintf("C is %dx%d, want %dx%d", c.Height, c.Width, a.Height, b.Width))
	}
	return nil
}

// outputGrid returns the launch grid covering the padded C with one group
// per BlockSize x BlockSize tile.
func outputGrid(c *Matrix) (grid, block device.Dim3) {
	grid = device.Dim3{X: c.Stride / BlockSize, Y: c.HPad / BlockSize, Z: 1}
	block = device.Dim3{X: BlockSize, Y: BlockSize, Z: 1}
	return grid, block
}
