// SPDX-License-Identifier: MIT

package mathx

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Digamma returns ψ(x) = d/dx log Γ(x).
func Digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// Trigamma returns ψ'(x) for x > 0, computed as the Hurwitz zeta ζ(2, x).
// Non-positive x yields NaN.
func Trigamma(x float64) float64 {
	if !(x > 0) {
		return math.NaN()
	}

	return mathext.Zeta(2, x)
}

// Tetragamma returns ψ''(x) = −2·ζ(3, x) for x > 0.
// Non-positive x yields NaN.
func Tetragamma(x float64) float64 {
	if !(x > 0) {
		return math.NaN()
	}

	return -2 * mathext.Zeta(3, x)
}

// LogGamma returns log|Γ(x)|.
func LogGamma(x float64) float64 {
	v, _ := math.Lgamma(x)

	return v
}
