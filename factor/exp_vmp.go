// SPDX-License-Identifier: MIT

package factor

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/damping"
	"github.com/katalvlaran/epmsg/dist"
)

// ExpAverageLogarithm returns the VMP message to exp: the lognormal moments
// of d projected onto a Gamma (E[eˣ] = exp(m + v/2), E[x] = m).
func (op *ExpOp) ExpAverageLogarithm(d dist.Gaussian) (dist.Gamma, error) {
	const name = "exp.ExpAverageLogarithm"
	if d.IsPointMass() {
		return dist.GammaPointMass(math.Exp(d.Point())), nil
	}
	if skip, err := op.opts.requireProper(name, "d", d); skip || err != nil {
		return dist.GammaUniform(), err
	}
	m, v := d.MeanAndVariance()

	return dist.GammaFromLogMeanAndMeanLog(m+v/2, m)
}

// DAverageLogarithm returns the non-conjugate VMP message to d:
//
//	prec = b·e^(m+v/2)
//	mtp  = m·prec + (a−1) − b·e^(m+v/2)
//
// where (m, v) are the moments of the marginal d. The new message is blended
// with the previous one (toD) through the configured damper.
func (op *ExpOp) DAverageLogarithm(exp dist.Gamma, d, toD dist.Gaussian) (dist.Gaussian, error) {
	const name = "exp.DAverageLogarithm"

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
	}

	var m, v float64
	if d.IsPointMass() {
		m = d.Point()
	} else {
		if skip, err := op.opts.requireProper(name, "d", d); skip || err != nil {
			return dist.GaussianUniform(), err
		}
		m, v = d.MeanAndVariance()
	}
	be := exp.Rate() * math.Exp(m+v/2)
	if math.IsInf(be, 1) || math.IsNaN(be) {
		return dist.Gaussian{}, fmt.Errorf("%s: b·E[eˣ]=%g: %w", name, be, dist.ErrNumericDegenerate)
	}
	next := dist.GaussianFromNatural(m*be+exp.Shape()-1-be, be)

	msg, err := damping.Blend(op.opts.damper, toD, next)
	if err != nil {
		return dist.Gaussian{}, fmt.Errorf("%s: %w", name, err)
	}
	return msg, nil
}

// AverageLogFactor is the VMP evidence term of a deterministic factor: 0.
func (op *ExpOp) AverageLogFactor() float64 { return 0 }
