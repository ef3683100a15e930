// SPDX-License-Identifier: MIT

package laplace

import (
	"math"

	"github.com/katalvlaran/epmsg/dist"
)

// Derivatives holds the first four derivatives of a log-density at a point.
// D3 and D4 are only consumed by the bias corrections in NewPosterior;
// targets that cannot supply them leave them zero.
type Derivatives struct {
	D1, D2, D3, D4 float64
}

// Target is an unnormalized scalar log-density l(x).
type Target interface {
	LogValue(x float64) float64
	Derivatives(x float64) Derivatives
}

// TargetFunc adapts two closures to Target.
type TargetFunc struct {
	Value func(x float64) float64
	Deriv func(x float64) Derivatives
}

func (f TargetFunc) LogValue(x float64) float64 { return f.Value(x) }
func (f TargetFunc) Derivatives(x float64) Derivatives { return f.Deriv(x) }

// withPrior adds the Gaussian part exp(mtp·x − ½·prec·x²) of the prior to
// the target's derivatives. A uniform prior contributes nothing.
func withPrior(d Derivatives, prior dist.Gaussian, x float64) Derivatives {
	if prior.IsUniform() {
		return d
	}
	d.D1 += prior.MeanTimesPrecision() - prior.Precision()*x
	d.D2 -= prior.Precision()
	return d
}

func priorLogValue(prior dist.Gaussian, x float64) float64 {
	if prior.IsUniform() {
		return 0
	}
	return prior.MeanTimesPrecision()*x - 0.5*prior.Precision()*x*x
}

func isNaN(d Derivatives) bool {
	return math.IsNaN(d.D1) || math.IsNaN(d.D2) || math.IsNaN(d.D3) || math.IsNaN(d.D4)
}
