package bench

import (
	"fmt"

	"github.com/LynnColeArt/sgemm"
	"github.com/LynnColeArt/sgemm/device"
)

// Config describes one benchmark session over an M x K by K x N product.
type Config struct {
	M, K, N int

	// Seed for the generator populating A and B.
	Seed uint64

	Alpha, Beta float32

	// Repeat is the number of timed invocations per strategy; the best
	// time is kept.
	Repeat int

	// Preview is how many rows and columns of each matrix the report shows.
	Preview int

	// Strategies to run, by name. Empty means sgemm.DefaultStrategies.
	Strategies []string

	// ContinueOnError records a failing strategy in the report and moves on
	// instead of aborting the session.
	ContinueOnError bool

	// Verify compares every strategy's output with the reference output.
	Verify    bool
	Tolerance sgemm.ToleranceConfig

	// Workers bounds the backend worker goroutines; 0 means one per CPU.
	Workers int

	// MemoryLimit bounds the backend memory pool in bytes; 0 means the
	// system memory.
	MemoryLimit uint64

	// LogDir, if set, receives a JSON session log.
	LogDir string

	// Progress shows a progress bar on stderr when Repeat > 1.
	Progress bool
}

// DefaultConfig returns the configuration for an m x k by k x n session.
func DefaultConfig(m, k, n int) Config {
	return Config{
		M:         m,
		K:         k,
		N:         n,
		Seed:      1,
		Alpha:     1,
		Beta:      1,
		Repeat:    1,
		Preview:   sgemm.DefaultPreview,
		Verify:    true,
		Tolerance: sgemm.GemmTolerance(),
	}
}

// Validate checks the configuration. Errors are invalid-argument errors.
func (c Config) Validate() error {
	if c.M < 1 || c.K < 1 || c.N < 1 {
		return device.NewInvalidArgError("Config",
			fmt.Sprintf("dimensions %dx%dx%d must be positive", c.M, c.K, c.N))
	}
	if c.Repeat < 1 {
		return device.NewInvalidArgError("Config", fmt.Sprintf("repeat %d must be at least 1", c.Repeat))
	}
	if c.Preview < 0 {
		return device.NewInvalidArgError("Config", fmt.Sprintf("preview %d must not be negative", c.Preview))
	}
	if c.Workers < 0 {
		return device.NewInvalidArgError("Config", fmt.Sprintf("workers %d must not be negative", c.Workers))
	}
	for _, name := range c.strategies() {
		if _, err := sgemm.StrategyByName(name); err != nil {
			return err
		}
	}
	return nil
}

// Ops is the floating-point operation count of one product, 2*M*K*N.
func (c Config) Ops() int64 {
	return 2 * int64(c.M) * int64(c.K) * int64(c.N)
}

// strategies returns the strategy names to run, with duplicates removed.
// When verifying, the reference strategy is moved to the front so its output
// is the oracle for the others.
func (c Config) strategies() []string {
	names := c.Strategies
	if len(names) == 0 {
		names = sgemm.DefaultStrategies
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if c.Verify && name == sgemm.StrategyCPU {
			out = append([]string{name}, out...)
			continue
		}
		out = append(out, name)
	}
	return out
}
