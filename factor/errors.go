// SPDX-License-Identifier: MIT
// Package factor: sentinel errors.
//
// Operators classify failures with the dist taxonomy
// (dist.ErrImproperMessage, dist.ErrAllZero, dist.ErrNumericDegenerate,
// dist.ErrNotSupported) and wrap them with the operator and argument name.
// The sentinel below covers buffer misuse only.

package factor

import "errors"

// ErrNilBuffer is returned when a buffered operator receives a nil buffer.
var ErrNilBuffer = errors.New("factor: nil buffer")
