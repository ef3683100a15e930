// SPDX-License-Identifier: MIT

package factor

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/mathx"
	"github.com/katalvlaran/epmsg/quadrature"
)

// ExpOp computes messages for the deterministic factor exp = Exp(d), with a
// Gamma message on exp and a Gaussian message on d.
//
// Seen from d, a Gamma(a, b) message on exp is the non-conjugate log-factor
//
//	log f(x) = (a−1)·x − b·eˣ
//
// EP messages integrate it against d by quadrature (Gauss-Hermite over a
// proposal, optionally adaptive); VMP messages use the non-conjugate VMP
// update with optional random damping.
//
// An ExpOp is stateless apart from its options and safe to reuse.
type ExpOp struct {
	opts Options
}

// NewExpOp builds an operator with the given options.
func NewExpOp(opts ...Option) *ExpOp {
	return &ExpOp{opts: gatherOptions(opts...)}
}

// Options returns the resolved configuration.
func (op *ExpOp) Options() Options { return op.opts }

func expLogFactor(exp dist.Gamma) func(float64) float64 {
	a, b := exp.Shape(), exp.Rate()
	return func(x float64) float64 {
		if b == 0 {
			return (a - 1) * x
		}
		return (a-1)*x - b*math.Exp(x)
	}
}

// expDerivatives is the Gaussian message whose log-density matches log f at x
// to second order.
func expDerivatives(exp dist.Gamma, x float64, forceProper bool) dist.Gaussian {
	be := exp.Rate() * math.Exp(x)
	return dist.GaussianFromDerivatives(x, exp.Shape()-1-be, -be, forceProper)
}

func checkExpRate(op string, exp dist.Gamma) error {
	if !exp.IsPointMass() && exp.Rate() < 0 {
		return fmt.Errorf("%s: exp=%v: %w", op, exp, dist.ErrImproperMessage)
	}
	return nil
}

// proposal returns the Gaussian the quadrature nodes are drawn from: d times
// the previous message to d. A uniform toD is replaced by the analytic seed
// N(ψ(a−1) − log b, ψ'(a−1)) when exp.Shape > 1; a proposal that is not
// proper falls back to d.
func (op *ExpOp) proposal(exp dist.Gamma, d, toD dist.Gaussian) dist.Gaussian {
	if toD.IsUniform() && exp.Shape() > 1 && exp.Rate() > 0 {
		seed, err := dist.NewGaussian(mathx.Digamma(exp.Shape()-1)-math.Log(exp.Rate()), mathx.Trigamma(exp.Shape()-1))
		if err == nil {
			toD = seed
		}
	}
	prop, err := d.Product(toD)
	if err != nil || !prop.IsProper() || prop.IsPointMass() {
		return d
	}
	return prop
}

// tilted integrates d(x)·f(x). degenerate=true means the proposal variance
// is below the threshold and no quadrature was run.
func (op *ExpOp) tilted(name string, exp dist.Gamma, d, toD dist.Gaussian) (res quadrature.Result, prop dist.Gaussian, degenerate bool, err error) {
	prop = op.proposal(exp, d, toD)
	mP, vP := prop.MeanAndVariance()
	if op.opts.degenerate(vP) {
		op.opts.logger.Debug("degenerate proposal, analytic fallback",
			slog.String("op", name), slog.Float64("mean", mP), slog.Float64("variance", vP))
		return quadrature.Result{}, prop, true, nil
	}

	logFactor := expLogFactor(exp)
	if op.opts.adaptiveRelTol > 0 {
		res, err = quadrature.Adaptive(func(x float64) float64 { return logFactor(x) + d.LogDensity(x) },
			mP, math.Sqrt(vP), 0, op.opts.adaptiveRelTol)
		if err == nil && !res.Converged {
			op.opts.logger.Debug("adaptive quadrature hit node cap", slog.String("op", name), slog.Int("nodes", res.Nodes))
		}
	} else {
		var plan *quadrature.Plan
		plan, err = quadrature.NewPlanFor(prop, op.opts.nodes)
		if err == nil {
			res, err = plan.Moments(quadrature.Reweight(logFactor, d, prop))
		}
	}
	if err != nil {
		return quadrature.Result{}, prop, false, fmt.Errorf("%s: %w", name, err)
	}
	op.opts.logger.Debug("quadrature",
		slog.String("op", name), slog.Int("nodes", res.Nodes),
		slog.Float64("logZ", res.LogZ), slog.Float64("mean", res.Mean), slog.Float64("variance", res.Variance))

	return res, prop, false, nil
}

// DAverageConditional returns the EP message to d.
//
// Implementation:
//   - Stage 1: closed forms. A point-mass exp gives a point mass at its log;
//     a point-mass d gives the derivative message of log f at the point;
//     a uniform exp gives a uniform message; rate 0 gives exp((a−1)·x).
//   - Stage 2: quadrature of d·f over the proposal (see proposal), or the
//     derivative message at the proposal mean when the proposal variance is
//     below the degenerate threshold.
//   - Stage 3: floor a non-positive variance at 2·vP·gap², then divide the
//     matched posterior by d (forceProper per options).
//
// Errors: dist.ErrImproperMessage for a negative exp rate or an improper d;
// dist.ErrAllZero for a point-mass exp at a non-positive value;
// dist.ErrNumericDegenerate from quadrature.
//
// Feeding the returned message back as toD on the next call re-centres the
// quadrature on the current posterior; the fixed point is unchanged.
//
// Complexity: O(N) evaluations of the tilted density, N quadrature nodes.
func (op *ExpOp) DAverageConditional(exp dist.Gamma, d, toD dist.Gaussian) (dist.Gaussian, error) {
	const name = "exp.DAverageConditional"
	fp := op.opts.msg.ForceProper

	// Stage 1
	if err := checkExpRate(name, exp); err != nil {
		return dist.Gaussian{}, err
	}
	switch {
	case exp.IsPointMass():
		if !(exp.Point() > 0) {
			return dist.Gaussian{}, fmt.Errorf("%s: exp point %g: %w", name, exp.Point(), dist.ErrAllZero)
		}
		return dist.GaussianPointMass(math.Log(exp.Point())), nil
	case exp.IsUniform():
		return dist.GaussianUniform(), nil
	case d.IsPointMass():
		return expDerivatives(exp, d.Point(), fp), nil
	case exp.Rate() == 0:
		return dist.GaussianFromNatural(exp.Shape()-1, 0), nil
	}
	if skip, err := op.opts.requireProper(name, "d", d); skip || err != nil {
		return dist.GaussianUniform(), err
	}

	// Stage 2
	res, prop, degenerate, err := op.tilted(name, exp, d, toD)
	if err != nil {
		return dist.Gaussian{}, err
	}
	if degenerate {
		return expDerivatives(exp, prop.Mean(), fp), nil
	}

	// Stage 3
	variance, floored := quadrature.FloorVariance(res.Variance, prop.Variance(), op.opts.gap)
	if floored {
		op.opts.logger.Debug("variance floor applied",
			slog.String("op", name), slog.Float64("estimate", res.Variance), slog.Float64("floor", variance))
	}
	post, err := dist.NewGaussian(res.Mean, variance)
	if err != nil {
		return dist.Gaussian{}, fmt.Errorf("%s: posterior: %w", name, err)
	}
	msg, err := post.Ratio(d, fp)
	if err != nil {
		return dist.Gaussian{}, fmt.Errorf("%s: %w", name, err)
	}

	return msg, nil
}

// ExpAverageConditional returns the EP message to exp.
//
// Implementation:
//   - Stage 1: closed forms. A point-mass d gives a point mass at e^d; a
//     point-mass exp gives the derivative message of log d(log y) − log y
//     at the point; a uniform exp (or a degenerate proposal) uses the
//     lognormal identity E[eˣ] = exp(m + v/2), E[x] = m.
//   - Stage 2: the tilted posterior over d is integrated on the proposal
//     built from d and toD.
//   - Stage 3: E[eˣ] and E[x] are matched by a Gamma
//     (GammaFromLogMeanAndMeanLog), then exp is divided out.
//
// Inputs:
//   - exp: incoming Gamma message to exp.
//   - d: incoming Gaussian message to d.
//   - toD: the message this factor last sent to d; it only moves the
//     quadrature nodes.
//
// Errors: dist.ErrImproperMessage for a negative exp rate or an improper d;
// dist.ErrNumericDegenerate from quadrature or moment matching.
//
// Complexity: O(N) evaluations of the tilted density, N quadrature nodes.
func (op *ExpOp) ExpAverageConditional(exp dist.Gamma, d, toD dist.Gaussian) (dist.Gamma, error) {
	const name = "exp.ExpAverageConditional"
	fp := op.opts.msg.ForceProper

	if err := checkExpRate(name, exp); err != nil {
		return dist.Gamma{}, err
	}
	if d.IsPointMass() {
		return dist.GammaPointMass(math.Exp(d.Point())), nil
	}
	if skip, err := op.opts.requireProper(name, "d", d); skip || err != nil {
		return dist.GammaUniform(), err
	}
	m, v := d.MeanAndVariance()

	switch {
	case exp.IsPointMass():
		y := exp.Point()
		if !(y > 0) {
			return dist.Gamma{}, fmt.Errorf("%s: exp point %g: %w", name, y, dist.ErrAllZero)
		}
		dev := math.Log(y) - m
		d1 := -dev/(v*y) - 1/y
		d2 := (dev-1)/(v*y*y) + 1/(y*y)
		return dist.GammaFromDerivatives(y, d1, d2, fp)
	case exp.IsUniform():
		return dist.GammaFromLogMeanAndMeanLog(m+v/2, m)
	}

	res, prop, degenerate, err := op.tilted(name, exp, d, toD)
	if err != nil {
		return dist.Gamma{}, err
	}
	var post dist.Gamma
	if degenerate {
		mP, vP := prop.MeanAndVariance()
		post, err = dist.GammaFromLogMeanAndMeanLog(mP+vP/2, mP)
	} else {
		post, err = dist.GammaFromLogMeanAndMeanLog(res.LogMeanExp, res.Mean)
	}
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: posterior: %w", name, err)
	}
	msg, err := post.Ratio(exp, fp)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}

	return msg, nil
}

// LogAverageFactor returns log ∫ exp(eˣ)·d(x) dx, where exp is taken
// normalized when proper.
//
// Closed forms: a point-mass d evaluates exp at e^d; a point-mass exp at y
// gives log d(log y) − log y; a uniform exp contributes 0.
//
// Errors: as DAverageConditional.
//
// Complexity: O(N) for N quadrature nodes.
func (op *ExpOp) LogAverageFactor(exp dist.Gamma, d, toD dist.Gaussian) (float64, error) {
	const name = "exp.LogAverageFactor"

	if err := checkExpRate(name, exp); err != nil {
		return 0, err
	}
	switch {
	case d.IsPointMass() && exp.IsPointMass():
		if exp.Point() == math.Exp(d.Point()) {
			return 0, nil
		}
		return math.Inf(-1), nil
	case d.IsPointMass():
		return exp.LogDensity(math.Exp(d.Point())), nil
	case exp.IsPointMass():
		y := exp.Point()
		if !(y > 0) {
			return math.Inf(-1), nil
		}
		return d.LogDensity(math.Log(y)) - math.Log(y), nil
	case exp.IsUniform():
		return 0, nil
	}
	if skip, err := op.opts.requireProper(name, "d", d); skip || err != nil {
		return 0, err
	}

	res, prop, degenerate, err := op.tilted(name, exp, d, toD)
	if err != nil {
		return 0, err
	}
	logZ := res.LogZ
	if degenerate {
		// single-node importance estimate at the proposal mean
		x := prop.Mean()
		logZ = expLogFactor(exp)(x) + d.LogDensity(x) - prop.LogDensity(x)
	}

	return logZ - exp.LogNormalizer(), nil
}

// LogEvidenceRatio returns LogAverageFactor − log ∫ exp·toExp, the
// contribution of this factor to the model evidence under EP.
func (op *ExpOp) LogEvidenceRatio(exp dist.Gamma, d, toD dist.Gaussian, toExp dist.Gamma) (float64, error) {
	laf, err := op.LogAverageFactor(exp, d, toD)
	if err != nil {
		return 0, err
	}
	norm, err := exp.LogAverageOf(toExp)
	if err != nil {
		return 0, fmt.Errorf("exp.LogEvidenceRatio: %w", err)
	}

	return laf - norm, nil
}
