// Package epmsg computes the messages that factors send to variables in
// Expectation Propagation (EP) and Variational Message Passing (VMP) over
// factor graphs.
//
// 🚀 What is in the box?
//
//	A numerical library of per-factor message operators:
//		• Distribution algebra: Gaussian, Gamma, Discrete, Bernoulli messages
//		  with product, ratio, power, moment-matched sum and point masses
//		• exp factor: exp = e^d via Gauss-Hermite or adaptive quadrature
//		• Gamma product and ratio factors: Laplace approximation over log b
//		  with a caller-owned operating point that persists across sweeps
//		• Gates: mixtures routed by a discrete or Bernoulli selector
//		  (Enter, EnterPartial, EnterOne, EnterPartialTwo, Exit)
//		• Evidence: LogAverageFactor and LogEvidenceRatio per factor
//
// ✨ Conventions
//
//   - Messages are immutable values; operators are stateless apart from
//     explicitly passed buffers.
//   - Functional options configure each engine (forceProper, quadrature
//     order, Newton steps, logger, damping).
//   - Errors are sentinels from package dist, wrapped with the operator name;
//     match them with errors.Is.
//   - Documented recoverable cases are logged at debug level through an
//     optional *slog.Logger and never surface as errors.
//
// Layout:
//
//	mathx/: log-domain arithmetic and special functions
//	dist/: message families, sentinel errors, per-call attributes
//	quadrature/: Gauss-Hermite and adaptive integration of tilted densities
//	laplace/: Newton operating point, Laplace posterior and evidence
//	factor/: exp, Gamma product and Gamma ratio operators
//	gate/: gate mixtures over any message family
//	damping/: seeded random damping of VMP messages
//	state/: per-factor-instance buffers keyed by uuid handles
//	cmd/msgcheck: YAML scenario runner
//
// Quick example:
//
//	op := factor.NewExpOp()
//	exp := dist.GammaFromShapeAndRate(3, 2)
//	d, _ := dist.NewGaussian(0, 1)
//	toD, err := op.DAverageConditional(exp, d, dist.GaussianUniform())
package epmsg
