// SPDX-License-Identifier: MIT
// Package quadrature: sentinel errors.
//
// Numeric breakdowns (zero normalizer, NaN moments) are reported with
// dist.ErrNumericDegenerate so callers classify every engine the same way;
// the sentinels below only cover invalid plans and arguments.

package quadrature

import "errors"

var (
	// ErrInvalidPlan is returned when a plan cannot be built: non-positive
	// node count, or a proposal with non-finite mean or non-positive variance.
	ErrInvalidPlan = errors.New("quadrature: invalid plan")

	// ErrInvalidTolerance is returned by Adaptive for a non-positive or NaN
	// relative tolerance, or a non-positive scale.
	ErrInvalidTolerance = errors.New("quadrature: invalid tolerance")
)
