// SPDX-License-Identifier: MIT

package factor

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/mathx"
)

// GammaRatioOp computes messages for the deterministic factor y = a/b with
// Gamma messages on all three variables.
//
// Integrating a out leaves, over z = log b,
//
//	l(z) = (as+bs)·z − br·eᶻ − (as+ys−1)·log(yr + ar·eᶻ)
//
// expanded by Laplace's method around the buffer point. A point-mass a gives
// the generalized inverse Gaussian shape (bs−ys+1)·z − br·eᶻ − yr·a·e⁻ᶻ; a
// point-mass b or an observed y is closed-form.
//
// The buffer lifecycle matches GammaProductOp.
type GammaRatioOp struct {
	gammaArgs
}

// NewGammaRatioOp builds an operator with the given options.
func NewGammaRatioOp(opts ...Option) *GammaRatioOp {
	return &GammaRatioOp{gammaArgs{opts: gatherOptions(opts...)}}
}

// Options returns the resolved configuration.
func (op *GammaRatioOp) Options() Options { return op.opts }

// InitBuffer returns a fresh buffer at z = log b = 0.
func (op *GammaRatioOp) InitBuffer() *laplace.Buffer { return laplace.NewBuffer(0) }

// ratioTarget returns the density over z = log b; ok=false when b is a point
// mass or y is observed.
func ratioTarget(y, a, b dist.Gamma) (t laplace.Target, ok bool, err error) {
	switch {
	case b.IsPointMass() || y.IsPointMass():
		return nil, false, nil
	case a.IsPointMass():
		return gigTarget{k: b.Shape() - y.Shape() + 1, r1: b.Rate(), r2: y.Rate() * a.Point()}, true, nil
	}
	c := a.Shape() + y.Shape() - 1
	if !(c > 0) {
		return nil, false, fmt.Errorf("a shape + y shape − 1 = %g: %w", c, dist.ErrImproperDistribution)
	}
	return mixedTarget{
		k:  a.Shape() + b.Shape(),
		r:  b.Rate(),
		c:  c,
		lo: y.Rate(),
		hi: a.Rate(),
	}, true, nil
}

// observedRatioPosterior is the exact posterior over b when y is observed:
// Gamma(bs+as, br+ar·y).
func observedRatioPosterior(y0 float64, a, b dist.Gamma) dist.Gamma {
	return dist.GammaFromShapeAndRate(b.Shape()+a.Shape(), b.Rate()+a.Rate()*y0)
}

// UpdateBuffer advances the operating point; a no-op when every message is
// closed-form for the current inputs.
//
// Errors: as GammaProductOp.UpdateBuffer.
func (op *GammaRatioOp) UpdateBuffer(buf *laplace.Buffer, y, a, b dist.Gamma) error {
	const name = "gammaRatio.UpdateBuffer"
	if buf == nil {
		return fmt.Errorf("%s: %w", name, ErrNilBuffer)
	}
	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return err
	}
	t, ok, err := ratioTarget(y, a, b)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !ok {
		return nil
	}
	return op.update(name, buf, t)
}

// Q returns the current Gamma approximation of the posterior over b.
func (op *GammaRatioOp) Q(buf *laplace.Buffer, y, a, b dist.Gamma) (dist.Gamma, error) {
	const name = "gammaRatio.Q"
	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case b.IsPointMass():
		return b, nil
	case y.IsPointMass() && a.IsPointMass():
		return dist.GammaPointMass(a.Point() / y.Point()), nil
	case y.IsPointMass():
		return observedRatioPosterior(y.Point(), a, b), nil
	}
	t, _, err := ratioTarget(y, a, b)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	post, ok, err := op.posterior(name, buf, t)
	if err != nil || !ok {
		return b, err
	}
	return scaledPosterior(1, 1, post)
}

// RatioAverageConditional returns the EP message to y.
//
// Implementation:
//   - Stage 1: closed forms. A point-mass b gives Gamma(as, ar·b); an
//     observed y gets the derivative message under the exact posterior
//     Gamma(bs+as, br+ar·y) of b.
//   - Stage 2: the Laplace posterior of log b at the buffer point.
//   - Stage 3: a point-mass a maps it onto y = a·e⁻ᶻ; otherwise E[y], E[y²]
//     are matched and the incoming y is divided out.
//
// Errors: ErrNilBuffer when a Laplace step is needed and buf is nil;
// dist.ErrImproperMessage for improper inputs; dist.ErrNumericDegenerate
// for inconsistent moments.
//
// Complexity: O(1).
func (op *GammaRatioOp) RatioAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	const name = "gammaRatio.RatioAverageConditional"
	fp := op.opts.msg.ForceProper

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case b.IsPointMass() && a.IsPointMass():
		return dist.GammaPointMass(a.Point() / b.Point()), nil
	case b.IsPointMass():
		return dist.GammaFromShapeAndRate(a.Shape(), a.Rate()*b.Point()), nil
	case y.IsPointMass() && a.IsPointMass():
		y0, alpha := y.Point(), a.Point()
		d1 := -(b.Shape()+1)/y0 + b.Rate()*alpha/(y0*y0)
		d2 := (b.Shape()+1)/(y0*y0) - 2*b.Rate()*alpha/(y0*y0*y0)
		return dist.GammaFromDerivatives(y0, d1, d2, fp)
	case y.IsPointMass():
		y0 := y.Point()
		q := observedRatioPosterior(y0, a, b)
		d1 := (a.Shape()-1)/y0 - a.Rate()*q.Mean()
		d2 := -(a.Shape()-1)/(y0*y0) + a.Rate()*a.Rate()*q.Variance()
		return dist.GammaFromDerivatives(y0, d1, d2, fp)
	}

	t, _, err := ratioTarget(y, a, b)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	post, ok, err := op.posterior(name, buf, t)
	if err != nil || !ok {
		return dist.GammaUniform(), err
	}

	var q dist.Gamma
	if a.IsPointMass() {
		q, err = scaledPosterior(a.Point(), -1, post)
	} else {
		mt := t.(mixedTarget)
		l1 := logMixedMoment(math.Log(mt.c), 0, 1, mt.lo, mt.hi, post)
		l2 := logMixedMoment(math.Log(mt.c*(mt.c+1)), 0, 2, mt.lo, mt.hi, post)
		q, err = gammaFromLogMoments(l1, l2)
	}
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	return divide(name, q, y, fp)
}

// AAverageConditional returns the EP message to a.
//
// Closed forms: a point-mass b gives Gamma(ys, yr/b); an observed y gives
// Gamma(bs+1, br/y). A point-mass a gets the derivative message of
// log ∫ y(a/b)·b(b) db at its value; otherwise E[a], E[a²] are matched.
func (op *GammaRatioOp) AAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	const name = "gammaRatio.AAverageConditional"
	fp := op.opts.msg.ForceProper

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case b.IsPointMass():
		if y.IsPointMass() {
			return dist.GammaPointMass(y.Point() * b.Point()), nil
		}
		return dist.GammaFromShapeAndRate(y.Shape(), y.Rate()/b.Point()), nil
	case y.IsPointMass():
		return dist.GammaFromShapeAndRate(b.Shape()+1, b.Rate()/y.Point()), nil
	}

	t, _, err := ratioTarget(y, a, b)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	post, ok, err := op.posterior(name, buf, t)
	if err != nil || !ok {
		return dist.GammaUniform(), err
	}

	if a.IsPointMass() {
		alpha := a.Point()
		em, ev := logNormalMoments(-1, post)
		d1 := (y.Shape()-1)/alpha - y.Rate()*em
		d2 := -(y.Shape()-1)/(alpha*alpha) + y.Rate()*y.Rate()*ev
		return dist.GammaFromDerivatives(alpha, d1, d2, fp)
	}

	mt := t.(mixedTarget)
	l1 := logMixedMoment(math.Log(mt.c), 1, 1, mt.lo, mt.hi, post)
	l2 := logMixedMoment(math.Log(mt.c*(mt.c+1)), 2, 2, mt.lo, mt.hi, post)
	q, err := gammaFromLogMoments(l1, l2)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	return divide(name, q, a, fp)
}

// BAverageConditional returns the EP message to b.
//
// Closed forms: an observed y gives Gamma(as+1, ar·y); a point-mass b gets
// the derivative message at its value. Otherwise Q is divided by b.
func (op *GammaRatioOp) BAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	const name = "gammaRatio.BAverageConditional"
	fp := op.opts.msg.ForceProper

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	if b.IsPointMass() {
		return ratioToPoint(y, a, b.Point(), fp)
	}
	if y.IsPointMass() {
		if a.IsPointMass() {
			return dist.GammaPointMass(a.Point() / y.Point()), nil
		}
		return dist.GammaFromShapeAndRate(a.Shape()+1, a.Rate()*y.Point()), nil
	}

	q, err := op.Q(buf, y, a, b)
	if err != nil {
		return dist.Gamma{}, err
	}
	return divide(name, q, b, fp)
}

// ratioToPoint is the message to a point-mass denominator b0 of y = a/b.
func ratioToPoint(y, a dist.Gamma, b0 float64, fp bool) (dist.Gamma, error) {
	switch {
	case a.IsPointMass() && y.IsPointMass():
		return dist.GammaPointMass(a.Point() / y.Point()), nil
	case a.IsPointMass():
		alpha := a.Point()
		d1 := -(y.Shape()-1)/b0 + y.Rate()*alpha/(b0*b0)
		d2 := (y.Shape()-1)/(b0*b0) - 2*y.Rate()*alpha/(b0*b0*b0)
		return dist.GammaFromDerivatives(b0, d1, d2, fp)
	case y.IsPointMass():
		return dist.GammaFromShapeAndRate(a.Shape()+1, a.Rate()*y.Point()), nil
	}
	c := a.Shape() + y.Shape() - 1
	den := y.Rate() + a.Rate()*b0
	d1 := a.Shape()/b0 - c*a.Rate()/den
	d2 := -a.Shape()/(b0*b0) + c*a.Rate()*a.Rate()/(den*den)

	return dist.GammaFromDerivatives(b0, d1, d2, fp)
}

// LogAverageFactor returns log ∫∫ y(a/b)·a(a)·b(b) da db with every proper
// message normalized. A uniform y contributes 0.
func (op *GammaRatioOp) LogAverageFactor(y, a, b dist.Gamma, buf *laplace.Buffer) (float64, error) {
	const name = "gammaRatio.LogAverageFactor"

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return 0, err
	}
	switch {
	case a.IsPointMass() && b.IsPointMass():
		return y.LogDensity(a.Point() / b.Point()), nil
	case y.IsUniform():
		return 0, nil
	case b.IsPointMass():
		b0 := b.Point()
		if y.IsPointMass() {
			return a.LogDensity(y.Point()*b0) + math.Log(b0), nil
		}
		c := a.Shape() + y.Shape() - 1
		if !(c > 0) {
			return 0, fmt.Errorf("%s: shape sum %g: %w", name, c, dist.ErrImproperDistribution)
		}
		return logNorm(y) + logNorm(a) - (y.Shape()-1)*math.Log(b0) +
			mathx.LogGamma(c) - c*math.Log(a.Rate()+y.Rate()/b0), nil
	case y.IsPointMass() && a.IsPointMass():
		// b = a/y: ∫ δ(y − a/b)·b(b) db = b(a/y)·(a/y)/y
		y0, alpha := y.Point(), a.Point()
		return b.LogDensity(alpha/y0) + math.Log(alpha) - 2*math.Log(y0), nil
	case y.IsPointMass():
		y0 := y.Point()
		s := a.Shape() + b.Shape()
		return logNorm(a) + logNorm(b) + (a.Shape()-1)*math.Log(y0) +
			mathx.LogGamma(s) - s*math.Log(b.Rate()+a.Rate()*y0), nil
	}

	t, _, err := ratioTarget(y, a, b)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	ev, err := op.evidence(name, buf, t)
	if err != nil {
		return 0, err
	}
	if a.IsPointMass() {
		return logNorm(y) + logNorm(b) + (y.Shape()-1)*math.Log(a.Point()) + ev, nil
	}
	c := t.(mixedTarget).c

	return logNorm(y) + logNorm(a) + logNorm(b) + mathx.LogGamma(c) + ev, nil
}

// LogEvidenceRatio returns LogAverageFactor − log ∫ y·toY.
func (op *GammaRatioOp) LogEvidenceRatio(y, a, b dist.Gamma, buf *laplace.Buffer, toY dist.Gamma) (float64, error) {
	laf, err := op.LogAverageFactor(y, a, b, buf)
	if err != nil {
		return 0, err
	}
	norm, err := y.LogAverageOf(toY)
	if err != nil {
		return 0, fmt.Errorf("gammaRatio.LogEvidenceRatio: %w", err)
	}

	return laf - norm, nil
}

// RatioAverageLogarithm returns the VMP message to y: the Gamma with
// E[y] = E[a]·E[1/b] and E[log y] = E[log a] − E[log b]. Requires b shape > 1
// (finite E[1/b]).
func (op *GammaRatioOp) RatioAverageLogarithm(a, b dist.Gamma) (dist.Gamma, error) {
	const name = "gammaRatio.RatioAverageLogarithm"
	for _, arg := range []struct {
		n string
		g dist.Gamma
	}{{"a", a}, {"b", b}} {
		if skip, err := op.opts.requireProper(name, arg.n, arg.g); skip || err != nil {
			return dist.GammaUniform(), err
		}
	}
	if a.IsPointMass() && b.IsPointMass() {
		return dist.GammaPointMass(a.Point() / b.Point()), nil
	}
	inv := b.MeanInverse()
	if math.IsInf(inv, 1) {
		return dist.Gamma{}, fmt.Errorf("%s: E[1/b] infinite for %v: %w", name, b, dist.ErrImproperMessage)
	}
	msg, err := dist.GammaFromMeanAndMeanLog(a.Mean()*inv, a.MeanLog()-b.MeanLog())
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	return msg, nil
}

// AAverageLogarithm returns the VMP message to a: Gamma(ys, yr·E[1/b]).
func (op *GammaRatioOp) AAverageLogarithm(y, b dist.Gamma) (dist.Gamma, error) {
	return vmpScaled("gammaRatio.AAverageLogarithm", op.opts, y, b, b.MeanInverse)
}

// BAverageLogarithm is not conjugate for a Gamma b and returns
// dist.ErrNotSupported.
func (op *GammaRatioOp) BAverageLogarithm(y, a dist.Gamma) (dist.Gamma, error) {
	return dist.Gamma{}, fmt.Errorf("gammaRatio.BAverageLogarithm: %w", dist.ErrNotSupported)
}

// AverageLogFactor is the VMP evidence term of a deterministic factor: 0.
func (op *GammaRatioOp) AverageLogFactor() float64 { return 0 }
