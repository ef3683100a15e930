// SPDX-License-Identifier: MIT

// Package dist implements the distribution algebra every factor operator is
// built on: Gaussian, Gamma, Discrete and Bernoulli messages with product,
// ratio, power, mixture projection and log-density primitives.
//
// Messages are immutable values. Each family classifies itself with Kind
// (uniform, point mass, proper, improper) and every algorithm in this module
// switches on that classification explicitly instead of relying on overloads.
//
// Key contracts:
//
//   - Product(a, b) adds natural parameters; two incompatible point masses
//     (or a point mass where the other density is zero) fail with ErrAllZero.
//   - Ratio(a, b, forceProper) subtracts natural parameters. forceProper
//     projects a negative precision/rate onto zero instead of returning an
//     invalid message; this is an approximation, not an error.
//   - Power(a, s) scales natural parameters (VMP geometric mixtures).
//   - A point-mass operand never triggers general machinery: products and
//     ratios collapse to the point or to a density evaluation at the point.
//   - Ratio(Product(a, b), b, false) reproduces a for proper a and b.
//
// Gamma constructors cover the projections operators need:
// GammaFromMeanAndVariance, GammaFromMeanAndMeanLog (bounded Newton solve of
// log a − ψ(a) = log E[x] − E[log x]) and GammaFromDerivatives.
//
// The generic Message[T] constraint lets the gate engine and the VMP damper
// operate on any of the four families.
package dist
