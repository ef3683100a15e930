// SPDX-License-Identifier: MIT
// Package laplace: sentinel errors.
//
// A NaN operating point or posterior is reported with
// dist.ErrNumericDegenerate (fatal for the inference run); the sentinels here
// only cover misuse of the engine itself.

package laplace

import "errors"

var (
	// ErrNilBuffer is returned when Update is called on a nil *Buffer or
	// *VectorBuffer.
	ErrNilBuffer = errors.New("laplace: nil buffer")

	// ErrInvalidSteps is returned for a non-positive or oversized step budget.
	ErrInvalidSteps = errors.New("laplace: invalid step budget")
)
