// SPDX-License-Identifier: MIT

package factor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/mathx"
)

// mixedTarget is the log-density over z = log b left after integrating the
// partner argument out of a Gamma product or ratio:
//
//	l(z) = k·z − r·eᶻ − c·log(lo + hi·eᶻ)
type mixedTarget struct {
	k, r, c, lo, hi float64
}

// share returns p = hi·eᶻ / (lo + hi·eᶻ) without overflow.
func (t mixedTarget) share(z float64) float64 {
	switch {
	case t.hi == 0:
		return 0
	case t.lo == 0:
		return 1
	}
	return mathx.Logistic(math.Log(t.hi) + z - math.Log(t.lo))
}

func (t mixedTarget) logDenominator(z float64) float64 {
	return logLinearExp(t.lo, t.hi, z)
}

func (t mixedTarget) LogValue(z float64) float64 {
	return t.k*z - t.r*math.Exp(z) - t.c*t.logDenominator(z)
}

func (t mixedTarget) Derivatives(z float64) laplace.Derivatives {
	var (
		re = t.r * math.Exp(z)
		p  = t.share(z)
		q  = p * (1 - p)
	)
	return laplace.Derivatives{
		D1: t.k - re - t.c*p,
		D2: -re - t.c*q,
		D3: -re - t.c*q*(1-2*p),
		D4: -re - t.c*q*(1-6*p+6*p*p),
	}
}

// gigTarget is the generalized-inverse-Gaussian shape over z = log b that
// appears when the output (or the ratio numerator) is observed:
//
//	l(z) = k·z − r1·eᶻ − r2·e⁻ᶻ
type gigTarget struct {
	k, r1, r2 float64
}

func (t gigTarget) LogValue(z float64) float64 {
	return t.k*z - t.r1*math.Exp(z) - t.r2*math.Exp(-z)
}

func (t gigTarget) Derivatives(z float64) laplace.Derivatives {
	var (
		up   = t.r1 * math.Exp(z)
		down = t.r2 * math.Exp(-z)
	)
	return laplace.Derivatives{
		D1: t.k - up + down,
		D2: -up - down,
		D3: -up + down,
		D4: -up - down,
	}
}

// logLinearExp returns log(lo + hi·eᶻ) for lo, hi ≥ 0.
func logLinearExp(lo, hi, z float64) float64 {
	switch {
	case hi == 0:
		return math.Log(lo)
	case lo == 0:
		return math.Log(hi) + z
	}
	return mathx.LogSumExp(math.Log(lo), math.Log(hi)+z)
}

// logMixedMoment approximates log E[e^(logCoef + s·z)·(lo + hi·eᶻ)^(−m)] for
// z ~ N(post.Mean, post.Variance) by the second-order expansion
// g + ½·v·(g'' + g'²) with g' = s − m·p and g'' = −m·p·(1−p). Exact when
// m == 0 (lognormal moments).
func logMixedMoment(logCoef, s, m, lo, hi float64, post laplace.Posterior) float64 {
	z := post.Mean
	g := logCoef + s*z
	var p float64
	if m != 0 {
		g -= m * logLinearExp(lo, hi, z)
		p = mixedTarget{lo: lo, hi: hi}.share(z)
	}

	return laplace.LogNormalExpectation(g, s-m*p, -m*p*(1-p), post.Variance)
}

// gammaFromLogMoments builds the Gamma with E[x] = exp(l1), E[x²] = exp(l2).
func gammaFromLogMoments(l1, l2 float64) (dist.Gamma, error) {
	gap := l2 - 2*l1
	if !(gap > 0) || math.IsNaN(l1) {
		return dist.Gamma{}, fmt.Errorf("log-moments (%g, %g): %w", l1, l2, dist.ErrNumericDegenerate)
	}
	mean := math.Exp(l1)

	return dist.GammaFromMeanAndVariance(mean, mean*mean*math.Expm1(gap))
}

// logNorm is shape·log(rate) − log Γ(shape) for a proper Gamma and 0 for an
// improper one (taken unnormalized).
func logNorm(g dist.Gamma) float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	return -g.LogNormalizer()
}

// gammaArgs is the shared buffer mechanics of the Gamma product and ratio
// operators.
type gammaArgs struct {
	opts Options
}

// checkInputs enforces: a and b proper or point masses, y proper, uniform,
// point mass, or improper with rate ≥ 0 (unnormalized power law).
func (g gammaArgs) checkInputs(op string, y, a, b dist.Gamma) (skip bool, err error) {
	if skip, err = g.opts.requireProper(op, "a", a); skip || err != nil {
		return skip, err
	}
	if skip, err = g.opts.requireProper(op, "b", b); skip || err != nil {
		return skip, err
	}
	if !y.IsPointMass() && (y.Rate() < 0 || y.Shape() <= 0) {
		return false, fmt.Errorf("%s: y=%v: %w", op, y, dist.ErrImproperMessage)
	}
	for _, pm := range []struct {
		arg string
		g   dist.Gamma
	}{{"y", y}, {"a", a}, {"b", b}} {
		if pm.g.IsPointMass() && !(pm.g.Point() > 0) {
			return false, fmt.Errorf("%s: %s point %g: %w", op, pm.arg, pm.g.Point(), dist.ErrAllZero)
		}
	}

	return false, nil
}

// update advances buf on t by the configured number of Newton steps.
func (g gammaArgs) update(op string, buf *laplace.Buffer, t laplace.Target) error {
	if buf == nil {
		return fmt.Errorf("%s: %w", op, ErrNilBuffer)
	}
	if g.opts.newtonSteps == 1 {
		if err := buf.Update(t, dist.GaussianUniform()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	x, _, err := laplace.Solve(t, dist.GaussianUniform(), buf.X, g.opts.newtonSteps, laplace.DefaultTolerance)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	buf.X = x
	buf.Sweeps++

	return nil
}

// posterior expands t around the buffer point. ok=false means negative
// curvature: the caller returns a uniform message for this sweep.
func (g gammaArgs) posterior(op string, buf *laplace.Buffer, t laplace.Target) (post laplace.Posterior, ok bool, err error) {
	if buf == nil {
		return laplace.Posterior{}, false, fmt.Errorf("%s: %w", op, ErrNilBuffer)
	}
	post, err = laplace.NewPosterior(t, dist.GaussianUniform(), buf.X)
	switch {
	case errors.Is(err, dist.ErrImproperDistribution):
		g.opts.logger.Debug("negative curvature, uniform message",
			slog.String("op", op), slog.Float64("x", buf.X))
		return laplace.Posterior{}, false, nil
	case err != nil:
		return laplace.Posterior{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return post, true, nil
}

// evidence is the Laplace estimate of log ∫ exp(t(z)) dz at the mode found
// from the buffer point (bounded solve, the buffer is not modified).
func (g gammaArgs) evidence(op string, buf *laplace.Buffer, t laplace.Target) (float64, error) {
	x0 := 0.0
	if buf != nil {
		x0 = buf.X
	}
	mode, _, err := laplace.Solve(t, dist.GaussianUniform(), x0, laplace.MaxSteps, laplace.DefaultTolerance)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	ev, err := laplace.LogEvidence(t, dist.GaussianUniform(), mode)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return ev, nil
}

// logNormalMoments returns E[e^(s·z)] and Var[e^(s·z)] for z ~ N(m, v).
func logNormalMoments(s float64, post laplace.Posterior) (mean, variance float64) {
	m, v := post.Mean, post.Variance
	mean = math.Exp(s*m + 0.5*s*s*v)
	variance = mean * mean * math.Expm1(s*s*v)
	return mean, variance
}

// scaledPosterior is the Gamma matching the moments of scale·e^(s·z).
func scaledPosterior(scale, s float64, post laplace.Posterior) (dist.Gamma, error) {
	return laplace.GammaFromLogPosterior(math.Log(scale)+s*post.Mean, s*s*post.Variance)
}

// divide turns a posterior into an outgoing message.
func divide(op string, post, incoming dist.Gamma, forceProper bool) (dist.Gamma, error) {
	msg, err := post.Ratio(incoming, forceProper)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}
