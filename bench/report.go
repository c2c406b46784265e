package bench

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LynnColeArt/sgemm"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

// Result is the outcome of one strategy.
type Result struct {
	Strategy string
	Best     time.Duration
	GFLOPS   float64

	// Verified is set when the output was compared with the reference.
	Verified     bool
	Verification sgemm.VerificationResult

	// Preview of C after the strategy ran.
	Preview [][]float32

	// Err is set when the strategy failed in a ContinueOnError session.
	Err error
}

// Status returns the session log status of the result.
func (r Result) Status() string {
	switch {
	case r.Err != nil:
		return StatusFail
	case r.Verified && !r.Verification.Passed():
		return StatusMismatch
	}
	return StatusPass
}

// Report collects the results of a session.
type Report struct {
	Version   string // sgemm module version, "" outside module builds
	M, K, N   int
	Ops       int64
	Footprint int // Bytes held by the padded operands
	Device    string
	Cores     int
	Workers   int
	Features  []string

	PreviewA, PreviewB [][]float32
	Results            []Result
}

func (h *Harness) newReport() *Report {
	dev := h.dev.Device()
	version, _ := sgemm.Version()
	return &Report{
		Version:   version,
		M:         h.cfg.M,
		K:         h.cfg.K,
		N:         h.cfg.N,
		Ops:       h.cfg.Ops(),
		Footprint: h.a.Bytes() + h.b.Bytes() + h.bt.Bytes() + h.c.Bytes(),
		Device:    dev.Name,
		Cores:     dev.NumCores,
		Workers:   h.dev.Workers(),
		Features:  dev.Features,
		PreviewA:  h.a.Preview(h.cfg.Preview),
		PreviewB:  h.b.Preview(h.cfg.Preview),
	}
}

// Failed reports whether any strategy failed or produced a mismatching
// output.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status() != StatusPass {
			return true
		}
	}
	return false
}

// Result returns the result of the named strategy, if it ran.
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Strategy == name {
			return res, true
		}
	}
	return Result{}, false
}

// Print writes the dimensions, operand previews, the C preview of every
// strategy and the summary table.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "sgemm %s, %dx%d tiles\n", versionString(r.Version), sgemm.BlockSize, sgemm.BlockSize)
	fmt.Fprintf(w, "A: %d x %d\n", r.M, r.K)
	fmt.Fprintf(w, "B: %d x %d\n", r.K, r.N)
	fmt.Fprintf(w, "C: %d x %d\n", r.M, r.N)
	fmt.Fprintf(w, "%s FLOP per product, %s of operands, %s (%d cores, %d workers)",
		humanize.Comma(r.Ops), humanize.Bytes(uint64(r.Footprint)), r.Device, r.Cores, r.Workers)
	if len(r.Features) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(r.Features, " "))
	}
	fmt.Fprintln(w)

	if len(r.PreviewA) > 0 {
		fmt.Fprintln(w, "\nA:")
		printPreview(w, r.PreviewA)
		fmt.Fprintln(w, "\nB:")
		printPreview(w, r.PreviewB)
	}
	for _, res := range r.Results {
		if res.Err != nil || len(res.Preview) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nC (%s):\n", res.Strategy)
		printPreview(w, res.Preview)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Table())
}

// Table renders the summary table.
func (r *Report) Table() string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col == 1 || col == 2:
				return numberStyle
			}
			return cellStyle
		}).
		Headers("Strategy", "Best", "GFLOPS", "Check")

	for _, res := range r.Results {
		if res.Err != nil {
			table.Row(res.Strategy, "-", "-", "error: "+res.Err.Error())
			continue
		}
		table.Row(res.Strategy, res.Best.String(), formatGFLOPS(res.Strategy, res.GFLOPS), checkString(res))
	}
	return table.Render()
}

// formatGFLOPS keeps more digits for the sequential reference, whose
// throughput is orders of magnitude below the parallel strategies.
func formatGFLOPS(strategy string, gflops float64) string {
	if strategy == sgemm.StrategyCPU {
		return fmt.Sprintf("%6.4f", gflops)
	}
	return fmt.Sprintf("%6.2f", gflops)
}

func checkString(res Result) string {
	switch {
	case !res.Verified:
		return "not verified"
	case res.Verification.Passed():
		return "ok"
	case res.Verification.NumErrors == 0:
		return fmt.Sprintf("padding: %d non-zero", res.Verification.PaddingErrors)
	}
	return fmt.Sprintf("MISMATCH: %d/%d", res.Verification.NumErrors, res.Verification.TotalItems)
}

func printPreview(w io.Writer, rows [][]float32) {
	for _, row := range rows {
		for _, v := range row {
			fmt.Fprintf(w, "%g ", v)
		}
		fmt.Fprintln(w)
	}
}

// versionString returns v, or "(devel)" for builds without a module version.
func versionString(v string) string {
	if v == "" {
		return "(devel)"
	}
	return v
}
