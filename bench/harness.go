// Package bench drives sgemm strategies over one set of operands, verifies
// their outputs against the reference and reports their throughput.
package bench

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/LynnColeArt/sgemm"
	"github.com/LynnColeArt/sgemm/device"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Harness owns the device context and the operands of a session.
type Harness struct {
	cfg        Config
	dev        *device.Context
	ownsDev    bool
	strategies []sgemm.Strategy

	a, b, bt, c *sgemm.Matrix
	// ref holds the reference output once computed.
	ref *sgemm.Matrix

	logger *SessionLogger
	// progress receives the progress bar, os.Stderr by default.
	progress io.Writer
}

// Option configures a Harness.
type Option func(*Harness)

// WithDevice runs the session on an existing context. The harness does not
// destroy it on Close.
func WithDevice(dev *device.Context) Option {
	return func(h *Harness) {
		h.dev = dev
	}
}

// WithProgressOutput sends the progress bar of Config.Progress to w.
func WithProgressOutput(w io.Writer) Option {
	return func(h *Harness) {
		h.progress = w
	}
}

// WithStrategy appends a strategy that is not in the registry.
func WithStrategy(s sgemm.Strategy) Option {
	return func(h *Harness) {
		h.strategies = append(h.strategies, s)
	}
}

// NewHarness validates cfg, creates the device context and allocates and
// populates the operands. A gets values in [0, ABound) and B in [0, BBound),
// drawn in that order from one generator seeded with cfg.Seed.
func NewHarness(cfg Config, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Harness{cfg: cfg, progress: os.Stderr}
	for _, name := range cfg.strategies() {
		s, _ := sgemm.StrategyByName(name)
		h.strategies = append(h.strategies, s)
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.dev == nil {
		var devOpts []device.Option
		if cfg.Workers > 0 {
			devOpts = append(devOpts, device.WithWorkers(cfg.Workers))
		}
		if cfg.MemoryLimit > 0 {
			devOpts = append(devOpts, device.WithMemoryLimit(cfg.MemoryLimit))
		}
		h.dev = device.NewContext(devOpts...)
		h.ownsDev = true
	}

	if err := h.allocate(); err != nil {
		_ = h.Close()
		return nil, err
	}

	if cfg.LogDir != "" {
		session := fmt.Sprintf("sgemm_%dx%dx%d", cfg.M, cfg.K, cfg.N)
		logger, err := NewSessionLogger(cfg.LogDir, session)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		h.logger = logger
	}
	return h, nil
}

func (h *Harness) allocate() (err error) {
	alloc := func(rows, cols int) *sgemm.Matrix {
		if err != nil {
			return nil
		}
		var m *sgemm.Matrix
		m, err = sgemm.NewMatrix(h.dev, rows, cols)
		return m
	}
	h.a = alloc(h.cfg.M, h.cfg.K)
	h.b = alloc(h.cfg.K, h.cfg.N)
	h.c = alloc(h.cfg.M, h.cfg.N)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(h.cfg.Seed, 0))
	h.a.Fill(rng, sgemm.ABound)
	h.b.Fill(rng, sgemm.BBound)

	h.bt, err = h.b.Transpose(h.dev)
	if err != nil {
		return err
	}
	klog.V(1).Infof("bench: operands A %s, B %s, Bt %s, C %s", h.a, h.b, h.bt, h.c)
	return nil
}

// Config returns the session configuration.
func (h *Harness) Config() Config {
	return h.cfg
}

// Device returns the device context the session runs on.
func (h *Harness) Device() *device.Context {
	return h.dev
}

// Operands returns the session's A, B and column-major B.
func (h *Harness) Operands() sgemm.Operands {
	return sgemm.Operands{A: h.a, B: h.b, Bt: h.bt}
}

// LogPath returns the session log path, or "" without a log.
func (h *Harness) LogPath() string {
	if h.logger == nil {
		return ""
	}
	return h.logger.Path()
}

// Throughput returns GFLOPS for ops floating-point operations completed in
// elapsed. Durations below one nanosecond count as one nanosecond, so the
// result is always finite.
func Throughput(ops int64, elapsed time.Duration) float64 {
	if elapsed < time.Nanosecond {
		elapsed = time.Nanosecond
	}
	return float64(ops) / float64(elapsed.Nanoseconds())
}

// Run times every strategy in order. C is zeroed before each invocation and
// only the invocation is timed.
//
// A strategy error aborts the session and is returned along with the partial
// report, unless ContinueOnError is set. Verification mismatches never abort;
// see Report.Failed. ctx is checked between strategies.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	report := h.newReport()

	var bar *progressbar.ProgressBar
	if h.cfg.Progress && h.cfg.Repeat > 1 {
		bar = progressbar.NewOptions(len(h.strategies)*h.cfg.Repeat,
			progressbar.OptionSetDescription("sgemm"),
			progressbar.OptionSetWriter(h.progress),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("runs"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
	}

	if h.cfg.Verify && h.strategies[0].Name() != sgemm.StrategyCPU {
		if err := h.computeReference(); err != nil {
			return report, err
		}
	}

	for _, s := range h.strategies {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "benchmark interrupted")
		}
		res, err := h.runStrategy(s, bar)
		if err != nil {
			res.Err = err
			report.Results = append(report.Results, res)
			h.log(res)
			if !h.cfg.ContinueOnError {
				return report, err
			}
			klog.Warningf("bench: %s failed, continuing: %v", s.Name(), err)
			continue
		}
		report.Results = append(report.Results, res)
		h.log(res)
	}
	return report, nil
}

// computeReference fills ref without timing, for sessions that do not
// benchmark the reference strategy itself.
func (h *Harness) computeReference() error {
	h.c.Zero()
	if err := (sgemm.Reference{}).Run(h.dev, h.cfg.Alpha, h.Operands(), h.cfg.Beta, h.c); err != nil {
		return err
	}
	return h.saveReference()
}

func (h *Harness) saveReference() error {
	if h.ref == nil {
		ref, err := sgemm.NewMatrix(h.dev, h.cfg.M, h.cfg.N)
		if err != nil {
			return errors.Wrap(err, "allocating reference output")
		}
		h.ref = ref
	}
	return h.ref.CopyFrom(h.c)
}

func (h *Harness) runStrategy(s sgemm.Strategy, bar *progressbar.ProgressBar) (Result, error) {
	res := Result{Strategy: s.Name()}
	ops := h.Operands()

	for i := 0; i < h.cfg.Repeat; i++ {
		h.c.Zero()
		start := time.Now()
		err := s.Run(h.dev, h.cfg.Alpha, ops, h.cfg.Beta, h.c)
		elapsed := time.Since(start)
		if err != nil {
			return res, errors.Wrapf(err, "strategy %s", s.Name())
		}
		if i == 0 || elapsed < res.Best {
			res.Best = elapsed
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	res.GFLOPS = Throughput(h.cfg.Ops(), res.Best)
	res.Preview = h.c.Preview(h.cfg.Preview)
	klog.V(1).Infof("bench: %s best of %d: %s (%.2f GFLOPS)", s.Name(), h.cfg.Repeat, res.Best, res.GFLOPS)

	if !h.cfg.Verify {
		return res, nil
	}
	if h.ref == nil {
		if s.Name() != sgemm.StrategyCPU {
			// The reference strategy failed earlier in a ContinueOnError session.
			klog.Warningf("bench: no reference output, %s is not verified", s.Name())
			return res, nil
		}
		if err := h.saveReference(); err != nil {
			return res, err
		}
	}
	res.Verified = true
	res.Verification = sgemm.VerifyMatrix(h.ref, h.c, h.cfg.Tolerance)
	if !res.Verification.Passed() {
		klog.Errorf("bench: %s output does not match the reference: %v", s.Name(), res.Verification.Err(s.Name()))
	}
	return res, nil
}

func (h *Harness) log(res Result) {
	if h.logger == nil {
		return
	}
	rec := Record{
		Name:    res.Strategy,
		Status:  res.Status(),
		M:       h.cfg.M,
		K:       h.cfg.K,
		N:       h.cfg.N,
		Repeat:  h.cfg.Repeat,
		NsPerOp: res.Best.Nanoseconds(),
		GFLOPS:  res.GFLOPS,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	} else if res.Verified && !res.Verification.Passed() {
		rec.Error = res.Verification.Err(res.Strategy).Error()
	}
	if err := h.logger.Log(rec); err != nil {
		klog.Warningf("bench: session log: %v", err)
	}
}

// Close releases the operands and, if the harness created it, the device
// context. It is safe to call more than once.
func (h *Harness) Close() error {
	var firstErr error
	for _, m := range []*sgemm.Matrix{h.a, h.b, h.bt, h.c, h.ref} {
		if m == nil {
			continue
		}
		if err := m.Release(h.dev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.ownsDev {
		h.dev.Destroy()
		h.ownsDev = false
	}
	return firstErr
}
