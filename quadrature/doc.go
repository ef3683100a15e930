// SPDX-License-Identifier: MIT

// Package quadrature computes the normalizer and first two moments of a
// tilted density ∝ proposal(x)·exp(logF(x)) in the log domain.
//
// Two engines share one accumulator:
//
//   - Plan: fixed-order Gauss-Hermite nodes sized to a Gaussian proposal
//     (gonum quad.Hermite), weights normalized to 1.
//   - Adaptive: node-doubling Gauss-Legendre on the real line through the
//     map x = c + s·t/(1−t²), for integrands a Gaussian proposal covers badly.
//
// Accumulation shifts every log-value by the running maximum before
// exponentiating, so Z, Σy and the centered second moment never overflow.
// Z == 0 is reported as dist.ErrNumericDegenerate.
//
// Reweight folds the importance correction prior/proposal into an integrand
// when the nodes come from a proposal other than the prior, and
// VarianceFloor / FloorVariance implement the configurable 2·v·gap² floor
// substituted for a non-positive variance estimate.
//
// Example:
//
//	plan, _ := quadrature.NewPlan(0, 1, quadrature.DefaultNodes)
//	res, err := plan.Moments(func(x float64) float64 { return -math.Exp(x) })
package quadrature
