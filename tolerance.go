// Package sgemm tolerance-based verification for floating-point comparisons
package sgemm

import (
	"fmt"
	"math"

	"github.com/LynnColeArt/sgemm/device"
)

// ToleranceConfig defines tolerance parameters for floating-point comparison
type ToleranceConfig struct {
	// AbsTol is the absolute tolerance for values near zero
	AbsTol float32

	// RelTol is the relative tolerance as a fraction of the larger value
	RelTol float32

	// ULPTol is the maximum allowed difference in ULPs (Units in Last Place)
	ULPTol int

	// CheckNaN determines if NaN values should be considered equal
	CheckNaN bool

	// CheckInf determines if Inf values should be considered equal
	CheckInf bool
}

// DefaultTolerance returns default tolerance configuration
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol:   1e-7,
		RelTol:   1e-5,
		ULPTol:   4,
		CheckNaN: true,
		CheckInf: true,
	}
}

// StrictTolerance requires bit-identical results.
func StrictTolerance() ToleranceConfig {
	return ToleranceConfig{CheckNaN: true, CheckInf: true}
}

// GemmTolerance is used to compare strategies against the reference. The
// strategies sum the k products in different orders, and float32 rounding
// differs accordingly once sums exceed 2^24.
func GemmTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol:   1e-5,
		RelTol:   1e-3,
		ULPTol:   16,
		CheckNaN: true,
		CheckInf: true,
	}
}

// Float32NearEqual checks if two float32 values are equal within tolerance
func Float32NearEqual(a, b float32, tol ToleranceConfig) bool {
	if tol.CheckNaN && math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return true
	}

	if tol.CheckInf {
		if math.IsInf(float64(a), 1) && math.IsInf(float64(b), 1) {
			return true
		}
		if math.IsInf(float64(a), -1) && math.IsInf(float64(b), -1) {
			return true
		}
	}

	// Handles ±0
	if a == b {
		return true
	}

	diff := math.Abs(float64(a) - float64(b))
	if diff <= float64(tol.AbsTol) {
		return true
	}

	larger := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	if diff <= larger*float64(tol.RelTol) {
		return true
	}

	if tol.ULPTol > 0 && Float32ULPDiff(a, b) <= tol.ULPTol {
		return true
	}

	return false
}

// Float32ULPDiff computes the difference in ULPs between two float32 values.
// Values of different sign are reported as math.MaxInt32 apart.
func Float32ULPDiff(a, b float32) int {
	aBits := math.Float32bits(a)
	bBits := math.Float32bits(b)

	if (aBits^bBits)&0x80000000 != 0 {
		return math.MaxInt32
	}

	if aBits > bBits {
		return int(aBits - bBits)
	}
	return int(bBits - aBits)
}

// VerificationResult summarizes a comparison of two arrays or matrices.
type VerificationResult struct {
	MaxAbsError float32
	MaxRelError float32
	MaxULPError int
	NumErrors   int
	TotalItems  int
	FirstError  int // Index of first error, -1 if none

	// Row and column of the first error, set by VerifyMatrix.
	FirstRow, FirstCol int
	// Expected and Actual values at the first error.
	Expected, Actual float32

	// PaddingErrors counts non-zero padding elements, set by VerifyMatrix.
	PaddingErrors int
}

// VerifyFloat32Array compares two float32 arrays and returns detailed results
func VerifyFloat32Array(expected, actual []float32, tol ToleranceConfig) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
		FirstRow:   -1,
		FirstCol:   -1,
	}

	if len(expected) != len(actual) {
		result.NumErrors = len(expected)
		return result
	}

	for i := range expected {
		if Float32NearEqual(expected[i], actual[i], tol) {
			continue
		}
		result.NumErrors++
		if result.FirstError == -1 {
			result.FirstError = i
			result.Expected, result.Actual = expected[i], actual[i]
		}

		absDiff := float32(math.Abs(float64(expected[i]) - float64(actual[i])))
		if absDiff > result.MaxAbsError {
			result.MaxAbsError = absDiff
		}

		// Relative error (avoid division by zero)
		if expected[i] != 0 {
			relDiff := absDiff / float32(math.Abs(float64(expected[i])))
			if relDiff > result.MaxRelError {
				result.MaxRelError = relDiff
			}
		}

		ulpDiff := Float32ULPDiff(expected[i], actual[i])
		if ulpDiff > result.MaxULPError {
			result.MaxULPError = ulpDiff
		}
	}

	return result
}

// VerifyMatrix compares the logical regions of two matrices of the same
// shape, in either layout, and checks that the padding of actual is still
// zero.
func VerifyMatrix(expected, actual *Matrix, tol ToleranceConfig) VerificationResult {
	if expected.Height != actual.Height || expected.Width != actual.Width {
		return VerificationResult{
			NumErrors:  expected.Height * expected.Width,
			TotalItems: expected.Height * expected.Width,
			FirstError: 0,
		}
	}

	result := VerifyFloat32Array(expected.Logical(), actual.Logical(), tol)
	if result.FirstError >= 0 {
		result.FirstRow = result.FirstError / expected.Width
		result.FirstCol = result.FirstError % expected.Width
	}
	for r := 0; r < actual.HPad; r++ {
		for c := 0; c < actual.Stride; c++ {
			if (r >= actual.Height || c >= actual.Width) && actual.At(r, c) != 0 {
				result.PaddingErrors++
			}
		}
	}
	return result
}

// Passed reports whether every value matched and the padding is clean.
func (r VerificationResult) Passed() bool {
	return r.NumErrors == 0 && r.PaddingErrors == 0
}

// Err returns nil if the result passed, or a numerical error describing
// the first mismatch.
func (r VerificationResult) Err(op string) error {
	if r.Passed() {
		return nil
	}
	if r.NumErrors == 0 {
		return device.NewNumericalError(op,
			fmt.Sprintf("%d non-zero padding elements", r.PaddingErrors), r)
	}
	return device.NewNumericalError(op,
		fmt.Sprintf("%d/%d values differ, first at (%d, %d): expected %g, got %g",
			r.NumErrors, r.TotalItems, r.FirstRow, r.FirstCol, r.Expected, r.Actual), r)
}

// String formats the verification result for display
func (r VerificationResult) String() string {
	if r.Passed() {
		return "PASS: All values match within tolerance"
	}

	errorRate := 0.0
	if r.TotalItems > 0 {
		errorRate = float64(r.NumErrors) / float64(r.TotalItems) * 100
	}
	return fmt.Sprintf("FAIL: %d/%d values differ (%.2f%%)\n"+
		"  Max absolute error: %e\n"+
		"  Max relative error: %e\n"+
		"  Max ULP difference: %d\n"+
		"  First error at index: %d\n"+
		"  Non-zero padding: %d",
		r.NumErrors, r.TotalItems, errorRate,
		r.MaxAbsError, r.MaxRelError, r.MaxULPError,
		r.FirstError, r.PaddingErrors)
}
