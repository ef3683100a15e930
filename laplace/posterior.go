// SPDX-License-Identifier: MIT

package laplace

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/dist"
)

const log2Pi = 1.8378770664093453

// Posterior is the Laplace approximation of prior(x)·exp(t(x)) around an
// operating point, with third/fourth-derivative bias corrections.
type Posterior struct {
	Mean     float64
	Variance float64

	// Curvature is −l''(x) of the full log-density at the operating point.
	Curvature float64
}

// NewPosterior expands prior·exp(t) around x.
//
// Stage 1: full derivatives (target plus the prior's Gaussian part).
// Stage 2: base variance v = 1/r, r = −l''(x) > 0.
// Stage 3: corrections
//
//	mean     = x + l'(x)·v + ½·l'''(x)·v²
//	variance = v + ½·l''''(x)·v³ + l'''(x)²·v⁴   (falls back to v if ≤ 0)
//
// A non-positive curvature means the expansion is invalid at x and returns
// dist.ErrImproperDistribution; callers degrade to a uniform message.
func NewPosterior(t Target, prior dist.Gaussian, x float64) (Posterior, error) {
	// Stage 1
	d := withPrior(t.Derivatives(x), prior, x)
	if isNaN(d) {
		return Posterior{}, fmt.Errorf("derivatives at x=%g: %w", x, dist.ErrNumericDegenerate)
	}

	// Stage 2
	r := -d.D2
	if !(r > 0) {
		return Posterior{}, fmt.Errorf("curvature %g at x=%g: %w", r, x, dist.ErrImproperDistribution)
	}
	v := 1 / r

	// Stage 3
	v2 := v * v
	mean := x + d.D1*v + 0.5*d.D3*v2
	variance := v + 0.5*d.D4*v2*v + d.D3*d.D3*v2*v2
	if !(variance > 0) || math.IsInf(variance, 1) {
		variance = v
	}
	if math.IsNaN(mean) {
		return Posterior{}, fmt.Errorf("posterior mean at x=%g: %w", x, dist.ErrNumericDegenerate)
	}

	return Posterior{Mean: mean, Variance: variance, Curvature: r}, nil
}

// Gaussian returns the posterior as a Gaussian message.
func (p Posterior) Gaussian() (dist.Gaussian, error) {
	return dist.NewGaussian(p.Mean, p.Variance)
}

// GaussianMessage turns the derivatives of a log-factor at x into a Gaussian
// message with precision −l''(x). A negative precision is clamped: the
// message becomes uniform and clamped reports true.
func GaussianMessage(x float64, d Derivatives) (msg dist.Gaussian, clamped bool) {
	if -d.D2 < 0 {
		return dist.GaussianUniform(), true
	}

	return dist.GaussianFromDerivatives(x, d.D1, d.D2, false), false
}

// GammaFromLogPosterior maps a Gaussian posterior N(mean, variance) on
// z = log y onto the Gamma over y with the same mean and variance:
//
//	E[y] = exp(m + v/2),   Var[y] = E[y]²·(eᵛ − 1)
//
// variance == 0 gives a point mass at exp(mean).
func GammaFromLogPosterior(mean, variance float64) (dist.Gamma, error) {
	switch {
	case math.IsNaN(mean) || math.IsNaN(variance):
		return dist.Gamma{}, fmt.Errorf("log-posterior N(%g, %g): %w", mean, variance, dist.ErrNumericDegenerate)
	case variance < 0:
		return dist.Gamma{}, fmt.Errorf("log-posterior variance %g: %w", variance, dist.ErrImproperDistribution)
	case variance == 0:
		return dist.GammaPointMass(math.Exp(mean)), nil
	}
	shape := 1 / math.Expm1(variance)
	rate := shape * math.Exp(-mean-0.5*variance)

	return dist.NewGamma(shape, rate)
}

// LogNormalExpectation approximates log E[exp(g(z))] for z ~ N(·, variance)
// by a second-order expansion around the mean, given g, g' and g'' there:
//
//	g + ½·variance·(g'' + g'²)
func LogNormalExpectation(g, g1, g2, variance float64) float64 {
	return g + 0.5*variance*(g2+g1*g1)
}

// LogEvidence is the Laplace estimate of log ∫ prior(x)·exp(t(x)) dx, with
// prior taken unnormalized (exp(mtp·x − ½·prec·x²)):
//
//	l(x) + ½·log(2π/r)
//
// x should be the mode (e.g. from Solve).
func LogEvidence(t Target, prior dist.Gaussian, x float64) (float64, error) {
	d := withPrior(t.Derivatives(x), prior, x)
	r := -d.D2
	if !(r > 0) {
		return 0, fmt.Errorf("curvature %g at x=%g: %w", r, x, dist.ErrImproperDistribution)
	}
	l := t.LogValue(x) + priorLogValue(prior, x)
	if math.IsNaN(l) {
		return 0, fmt.Errorf("log value at x=%g: %w", x, dist.ErrNumericDegenerate)
	}

	return l + 0.5*(log2Pi-math.Log(r)), nil
}
