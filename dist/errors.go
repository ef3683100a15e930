// SPDX-License-Identifier: MIT
// Package dist: sentinel error set shared by every message engine.
// The message engines (quadrature, laplace, factor, gate) re-use these
// sentinels instead of declaring their own, so a caller can classify any
// failure with a single errors.Is against this package.

package dist

import "errors"

// NOTE ON WRAPPING
// ----------------
// Sentinels are returned bare from this package. Outer packages add context
// with fmt.Errorf("op: detail: %w", ErrX); callers still match with errors.Is.
//
// RECOVERABLE vs FATAL:
// Only the documented local safeguards (variance floor, curvature clamp,
// degenerate-variance fallback, zero-probability branch skip) are absorbed
// inside the engines. Everything below reaches the caller.

var (
	// ErrImproperMessage is returned when an incoming message that must be
	// proper (integrable) is not, e.g. a negative rate or precision.
	// Raised at the operator boundary; never coerced.
	ErrImproperMessage = errors.New("dist: improper incoming message")

	// ErrImproperDistribution is returned when a distribution computed inside
	// an algorithm is invalid (non-positive combined precision, negative
	// variance, division by a point mass, negative mixture weight).
	ErrImproperDistribution = errors.New("dist: improper distribution")

	// ErrAllZero signals that every term of a product or mixture carried zero
	// mass: disjoint point masses, all-zero probability vectors, or a gate
	// whose branches all have zero probability.
	ErrAllZero = errors.New("dist: all-zero mass")

	// ErrNumericDegenerate marks NaN results, zero normalizers and other
	// numeric breakdowns that no documented safeguard covers. Fatal for the
	// inference call that produced it.
	ErrNumericDegenerate = errors.New("dist: numeric degenerate result")

	// ErrDimensionMismatch indicates operands of different dimension
	// (discrete distributions, branch lists vs index lists).
	ErrDimensionMismatch = errors.New("dist: dimension mismatch")

	// ErrNotSupported marks an operator/argument combination for which no
	// message exists (e.g. a non-conjugate VMP direction).
	ErrNotSupported = errors.New("dist: operation not supported")
)
