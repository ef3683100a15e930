// SPDX-License-Identifier: MIT

// Package factor implements message operators for three deterministic
// factors with non-conjugate structure:
//
//   - ExpOp:          exp = Exp(d), Gamma on exp, Gaussian on d.
//   - GammaProductOp: y = a·b, Gamma on all three.
//   - GammaRatioOp:   y = a/b, Gamma on all three.
//
// Every operator exposes the same family of methods:
//
//   - <Arg>AverageConditional: the EP message to Arg (moment matching of the
//     tilted posterior, divided by the incoming message).
//   - <Arg>AverageLogarithm: the VMP message to Arg.
//   - LogAverageFactor / LogEvidenceRatio: EP evidence contributions.
//   - AverageLogFactor: the VMP evidence contribution (0 for deterministic
//     factors).
//
// Numerical strategy:
//
//   - ExpOp integrates by Gauss-Hermite quadrature over a proposal built from
//     the previous outgoing message (or an analytic seed), in the log domain,
//     with an optional adaptive engine (WithAdaptiveQuadrature). A
//     non-positive variance estimate is floored at 2·v·gap².
//   - The Gamma operators use Laplace's method over log b with the operating
//     point carried in a caller-owned laplace.Buffer (InitBuffer,
//     UpdateBuffer). The buffer is the only state; operators are stateless
//     values and safe to share between goroutines.
//
// Point-mass arguments are always handled in closed form and never reach
// quadrature or the Laplace engine. Recoverable numerical edge cases are
// reported as debug records through the logger given by WithLogger.
//
// Errors wrap the dist sentinels: dist.ErrImproperMessage for an input that
// violates the operator's contract, dist.ErrAllZero for a point mass at an
// impossible value, dist.ErrNumericDegenerate for NaN, and
// dist.ErrNotSupported for VMP directions without a conjugate update.
package factor
