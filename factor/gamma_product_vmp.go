// SPDX-License-Identifier: MIT

package factor

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/dist"
)

// ProductAverageLogarithm returns the VMP message to y: the Gamma with
// E[y] = E[a]·E[b] and E[log y] = E[log a] + E[log b].
func (op *GammaProductOp) ProductAverageLogarithm(a, b dist.Gamma) (dist.Gamma, error) {
	const name = "gammaProduct.ProductAverageLogarithm"
	for _, arg := range []struct {
		n string
		g dist.Gamma
	}{{"a", a}, {"b", b}} {
		if skip, err := op.opts.requireProper(name, arg.n, arg.g); skip || err != nil {
			return dist.GammaUniform(), err
		}
	}
	if a.IsPointMass() && b.IsPointMass() {
		return dist.GammaPointMass(a.Point() * b.Point()), nil
	}
	msg, err := dist.GammaFromMeanAndMeanLog(a.Mean()*b.Mean(), a.MeanLog()+b.MeanLog())
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	return msg, nil
}

// AAverageLogarithm returns the VMP message to a: Gamma(ys, yr·E[b]).
func (op *GammaProductOp) AAverageLogarithm(y, b dist.Gamma) (dist.Gamma, error) {
	return vmpScaled("gammaProduct.AAverageLogarithm", op.opts, y, b, b.Mean)
}

// BAverageLogarithm returns the VMP message to b: Gamma(ys, yr·E[a]).
func (op *GammaProductOp) BAverageLogarithm(y, a dist.Gamma) (dist.Gamma, error) {
	return vmpScaled("gammaProduct.BAverageLogarithm", op.opts, y, a, a.Mean)
}

// AverageLogFactor is the VMP evidence term of a deterministic factor: 0.
func (op *GammaProductOp) AverageLogFactor() float64 { return 0 }

// vmpScaled is Gamma(ys, yr·scale()) for a stochastic y. An observed y has
// no conjugate VMP message.
func vmpScaled(name string, o Options, y, other dist.Gamma, scale func() float64) (dist.Gamma, error) {
	if skip, err := o.requireProper(name, "other", other); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case y.IsPointMass():
		return dist.Gamma{}, fmt.Errorf("%s: observed y: %w", name, dist.ErrNotSupported)
	case y.IsUniform():
		return dist.GammaUniform(), nil
	}
	s := scale()
	if !(s > 0) || math.IsInf(s, 1) {
		return dist.Gamma{}, fmt.Errorf("%s: scale %g: %w", name, s, dist.ErrImproperMessage)
	}
	return dist.GammaFromShapeAndRate(y.Shape(), y.Rate()*s), nil
}
