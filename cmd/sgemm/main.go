// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sgemm benchmarks single-precision matrix multiplication strategies
// on an M x K by K x N product.
//
// Usage:
//
//	sgemm [flags] <M> <K> <N>
//
// Exit status is 1 on invalid arguments, allocation failures and backend
// errors, and 2 when a strategy's output does not match the reference.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/LynnColeArt/sgemm"
	"github.com/LynnColeArt/sgemm/bench"
	"github.com/LynnColeArt/sgemm/device"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type flags struct {
	seed       *uint64
	alpha      *float64
	beta       *float64
	repeat     *int
	preview    *int
	strategies *string
	blas       *bool
	cont       *bool
	verify     *bool
	workers    *int
	memLimit   *uint64
	logDir     *string
	progress   *bool
	version    *bool
}

func newFlags(fs *flag.FlagSet) *flags {
	return &flags{
		seed:    fs.Uint64("seed", 1, "Seed for the generator populating A and B"),
		alpha:   fs.Float64("alpha", 1, "Scale of A*B"),
		beta:    fs.Float64("beta", 1, "Scale of the prior C"),
		repeat:  fs.Int("repeat", 1, "Timed invocations per strategy; the best is reported"),
		preview: fs.Int("preview", sgemm.DefaultPreview, "Rows and columns of each matrix to print"),
		strategies: fs.String("strategies", strings.Join(sgemm.DefaultStrategies, ","),
			"Comma-separated strategies, from: "+strings.Join(sgemm.StrategyNames(), ", ")),
		blas:     fs.Bool("blas", false, "Also run the gonum blas32 baseline"),
		cont:     fs.Bool("continue", false, "Report failing strategies and keep going"),
		verify:   fs.Bool("verify", true, "Compare every output with the reference"),
		workers:  fs.Int("workers", 0, "Backend worker goroutines, 0 for one per CPU"),
		memLimit: fs.Uint64("mem-limit", 0, "Backend memory limit in bytes, 0 for system memory"),
		logDir:   fs.String("log-dir", "", "Directory for a JSON session log"),
		progress: fs.Bool("progress", false, "Show progress when -repeat > 1"),
		version:  fs.Bool("version", false, "Print the sgemm version and exit"),
	}
}

// config builds the session configuration for an m x k by k x n product.
func (f *flags) config(m, k, n int) bench.Config {
	cfg := bench.DefaultConfig(m, k, n)
	cfg.Seed = *f.seed
	cfg.Alpha = float32(*f.alpha)
	cfg.Beta = float32(*f.beta)
	cfg.Repeat = *f.repeat
	cfg.Preview = *f.preview
	cfg.Strategies = parseStrategies(*f.strategies, *f.blas)
	cfg.ContinueOnError = *f.cont
	cfg.Verify = *f.verify
	cfg.Workers = *f.workers
	cfg.MemoryLimit = *f.memLimit
	cfg.LogDir = *f.logDir
	cfg.Progress = *f.progress
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, runs one benchmark session and returns the exit status.
// The report goes to stdout, usage and errors to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sgemm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	klog.InitFlags(fs)
	f := newFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <M> <K> <N>\n\nFlags:\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	defer klog.Flush()

	if *f.version {
		version, sum := sgemm.Version()
		if version == "" {
			version = "(devel)"
		}
		fmt.Fprintln(stdout, strings.TrimSpace("sgemm "+version+" "+sum))
		return 0
	}

	m, k, n, err := parseDims(fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return exitCode(nil, err)
	}

	h, err := bench.NewHarness(f.config(m, k, n), bench.WithProgressOutput(stderr))
	if err != nil {
		fmt.Fprintf(stderr, "sgemm: %v\n", err)
		if device.IsInvalidArgError(err) {
			fs.Usage()
		}
		return exitCode(nil, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			klog.Warningf("releasing operands: %v", err)
		}
	}()

	report, err := h.Run(ctx)
	if report != nil {
		report.Print(stdout)
	}
	if path := h.LogPath(); path != "" {
		fmt.Fprintf(stdout, "\nSession log: %s\n", path)
	}
	if err != nil {
		fmt.Fprintf(stderr, "sgemm: %v\n", err)
	}
	return exitCode(report, err)
}

// exitCode maps the outcome of a session to the process exit status: 1 for
// any error, 2 when a strategy failed or its output did not match the
// reference, 0 otherwise.
func exitCode(report *bench.Report, err error) int {
	switch {
	case err != nil:
		return 1
	case report != nil && report.Failed():
		return 2
	}
	return 0
}

// parseDims parses the three positional dimensions.
func parseDims(args []string) (m, k, n int, err error) {
	if len(args) != 3 {
		return 0, 0, 0, device.NewInvalidArgError("arguments",
			fmt.Sprintf("expected 3 dimensions <M> <K> <N>, got %d arguments", len(args)))
	}
	var dims [3]int
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 {
			return 0, 0, 0, device.NewInvalidArgError("arguments",
				fmt.Sprintf("dimension %q must be a positive integer", arg))
		}
		dims[i] = v
	}
	return dims[0], dims[1], dims[2], nil
}

// parseStrategies splits the -strategies list and appends blas32 if asked.
func parseStrategies(list string, blas bool) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if blas {
		names = append(names, sgemm.StrategyBlas32)
	}
	return names
}
