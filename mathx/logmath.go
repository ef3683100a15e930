// SPDX-License-Identifier: MIT

package mathx

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// logAddCutoff is the gap below which the smaller term no longer changes the
// larger one in float64 (exp(-36) ≈ 2.3e-16).
const logAddCutoff = -36.0

// LogSumExp returns log(exp(a) + exp(b)).
// Either argument may be -Inf; the result is -Inf only when both are.
//
// Complexity: O(1).
func LogSumExp(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	// a is the larger term now; -Inf on both sides lands here as a == b == -Inf.
	if math.IsInf(a, -1) {
		return a
	}
	if math.IsInf(a, 1) {
		return a
	}
	d := b - a
	if d < logAddCutoff {
		return a
	}

	return a + math.Log1p(math.Exp(d))
}

// LogSumExpSlice returns log(Σ exp(xᵢ)); an empty slice yields -Inf.
//
// Complexity: O(n).
func LogSumExpSlice(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	var maxV = floats.Max(xs)
	if math.IsInf(maxV, 0) {
		// all -Inf (→ -Inf) or some +Inf (→ +Inf): floats.LogSumExp would yield NaN.
		return maxV
	}

	return floats.LogSumExp(xs)
}

// Log1MinusExp returns log(1 − exp(x)) for x ≤ 0.
// Uses log(−expm1(x)) near zero and log1p(−exp(x)) in the tail.
// x > 0 yields NaN, x == 0 yields -Inf.
//
// Complexity: O(1).
func Log1MinusExp(x float64) float64 {
	if x > 0 {
		return math.NaN()
	}
	if x > -math.Ln2 {
		return math.Log(-math.Expm1(x))
	}

	return math.Log1p(-math.Exp(x))
}

// LogDifferenceOfExp returns log(exp(a) − exp(b)) for a ≥ b.
// a == b yields -Inf; a < b yields NaN.
//
// Complexity: O(1).
func LogDifferenceOfExp(a, b float64) float64 {
	if math.IsInf(b, -1) {
		return a
	}
	if a == b {
		return math.Inf(-1)
	}

	return a + Log1MinusExp(b-a)
}

// Logistic returns 1/(1+exp(-x)).
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)

	return e / (1 + e)
}

// LogisticLn returns log(Logistic(x)) without underflow for large negative x.
func LogisticLn(x float64) float64 {
	if x >= 0 {
		return -math.Log1p(math.Exp(-x))
	}

	return x - math.Log1p(math.Exp(x))
}
