// SPDX-License-Identifier: MIT

// Package laplace approximates messages by matching the curvature of a
// log-density at a single operating point that is refined once per sweep.
//
// The operating point lives in a Buffer owned by the caller. NewBuffer
// initializes it from shape information only; Buffer.Update applies one
// damped Newton step
//
//	x' = (r·x + l'(x) + mtp) / (r + prec),   r = max(0, −l''(x))
//
// whose length is then halved until the log-density does not decrease.
// Convergence happens across scheduler sweeps rather than inside a call.
// Solve runs the same step to a fixed point for nested solves that need one
// (bounded by MaxSteps).
//
// NewPosterior expands the log-density around the point with third and
// fourth derivative corrections; GaussianMessage and GammaFromLogPosterior
// turn the result into outgoing messages; LogEvidence gives the Laplace
// estimate of the normalizer.
//
// VectorBuffer, StepVector, SolveVector and NewVectorPosterior are the
// multivariate counterparts over gonum/mat: the negative Hessian is projected
// onto the positive semidefinite cone and the step solves
// (R + P)·x' = R·x + ∇l(x) + h by Cholesky.
//
// Negative curvature is the one recoverable failure: GaussianMessage clamps
// to a uniform message and NewPosterior reports dist.ErrImproperDistribution
// for the caller to degrade. NaN anywhere is dist.ErrNumericDegenerate.
package laplace
