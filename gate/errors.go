// SPDX-License-Identifier: MIT
// Package gate: sentinel errors.
//
// Mixture failures reuse the dist taxonomy: dist.ErrAllZero when no branch
// contributes, dist.ErrDimensionMismatch when branch and selector sizes
// disagree. The sentinels below cover malformed index lists.

package gate

import "errors"

var (
	// ErrIndexOutOfRange is returned when a partial-gate index does not name
	// a selector outcome.
	ErrIndexOutOfRange = errors.New("gate: index out of range")

	// ErrDuplicateIndex is returned when a partial-gate index list names the
	// same outcome twice.
	ErrDuplicateIndex = errors.New("gate: duplicate index")

	// ErrNoBranches is returned for an empty branch list.
	ErrNoBranches = errors.New("gate: no branches")
)
