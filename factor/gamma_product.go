// SPDX-License-Identifier: MIT

package factor

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/mathx"
)

// GammaProductOp computes messages for the deterministic factor y = a·b with
// Gamma messages on all three variables.
//
// Integrating a out leaves a one-dimensional density over z = log b:
//
//	l(z) = (bs+ys−1)·z − br·eᶻ − (as+ys−1)·log(ar + yr·eᶻ)
//
// which is expanded by Laplace's method around the operating point stored in
// a caller-owned laplace.Buffer. An observed y gives the generalized inverse
// Gaussian shape (bs−as)·z − br·eᶻ − ar·y·e⁻ᶻ instead. A point-mass a or b
// needs no expansion: every message is closed-form.
//
// Lifecycle per factor instance: InitBuffer once, then each sweep
// UpdateBuffer followed by the *AverageConditional calls with the same
// buffer. The operator itself is stateless and safe to share.
type GammaProductOp struct {
	gammaArgs
}

// NewGammaProductOp builds an operator with the given options.
func NewGammaProductOp(opts ...Option) *GammaProductOp {
	return &GammaProductOp{gammaArgs{opts: gatherOptions(opts...)}}
}

// Options returns the resolved configuration.
func (op *GammaProductOp) Options() Options { return op.opts }

// InitBuffer returns a fresh buffer at z = log b = 0.
func (op *GammaProductOp) InitBuffer() *laplace.Buffer { return laplace.NewBuffer(0) }

// productTarget returns the density over z = log b; ok=false when a or b is
// a point mass.
func productTarget(y, a, b dist.Gamma) (t laplace.Target, ok bool, err error) {
	switch {
	case a.IsPointMass() || b.IsPointMass():
		return nil, false, nil
	case y.IsPointMass():
		return gigTarget{k: b.Shape() - a.Shape(), r1: b.Rate(), r2: a.Rate() * y.Point()}, true, nil
	}
	c := a.Shape() + y.Shape() - 1
	if !(c > 0) {
		return nil, false, fmt.Errorf("a shape + y shape − 1 = %g: %w", c, dist.ErrImproperDistribution)
	}
	return mixedTarget{
		k:  b.Shape() + y.Shape() - 1,
		r:  b.Rate(),
		c:  c,
		lo: a.Rate(),
		hi: y.Rate(),
	}, true, nil
}

// productPartner is the message to one argument of y = x·f when the other
// argument is the point mass f.
func productPartner(y dist.Gamma, f float64) dist.Gamma {
	if y.IsPointMass() {
		return dist.GammaPointMass(y.Point() / f)
	}
	return dist.GammaFromShapeAndRate(y.Shape(), y.Rate()*f)
}

// productToPoint is the message to a point-mass argument x0 of y = x·o,
// matched to the derivatives of log ∫ y(x0·o)·o(o) do at x0.
func productToPoint(y, o dist.Gamma, x0 float64, fp bool) (dist.Gamma, error) {
	switch {
	case o.IsPointMass() && y.IsPointMass():
		return dist.GammaPointMass(y.Point() / o.Point()), nil
	case o.IsPointMass():
		return productPartner(y, o.Point()), nil
	case y.IsPointMass():
		y0 := y.Point()
		d1 := -o.Shape()/x0 + o.Rate()*y0/(x0*x0)
		d2 := o.Shape()/(x0*x0) - 2*o.Rate()*y0/(x0*x0*x0)
		return dist.GammaFromDerivatives(x0, d1, d2, fp)
	}
	c := o.Shape() + y.Shape() - 1
	den := o.Rate() + y.Rate()*x0
	d1 := (y.Shape()-1)/x0 - c*y.Rate()/den
	d2 := -(y.Shape()-1)/(x0*x0) + c*y.Rate()*y.Rate()/(den*den)

	return dist.GammaFromDerivatives(x0, d1, d2, fp)
}

// UpdateBuffer advances the operating point by the configured number of
// Newton steps on the current messages. With a point-mass a or b there is
// nothing to expand and the buffer is left untouched.
//
// Implementation:
//   - Stage 1: validate the inputs (see checkInputs).
//   - Stage 2: build the log-density over z = log b with a integrated out:
//     l(z) = k·z − r·eᶻ − c·log(ar + yr·eᶻ), or the generalized inverse
//     Gaussian form when y is observed.
//   - Stage 3: one backtracking Newton step (or a bounded Solve when more
//     than one step is configured); buf.Sweeps counts the call.
//
// Errors: ErrNilBuffer; dist.ErrImproperMessage for an improper a, b or y;
// dist.ErrImproperDistribution when a and y shapes leave no mass;
// dist.ErrNumericDegenerate for NaN derivatives.
//
// Complexity: O(newtonSteps) target evaluations.
func (op *GammaProductOp) UpdateBuffer(buf *laplace.Buffer, y, a, b dist.Gamma) error {
	const name = "gammaProduct.UpdateBuffer"
	if buf == nil {
		return fmt.Errorf("%s: %w", name, ErrNilBuffer)
	}
	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return err
	}
	t, ok, err := productTarget(y, a, b)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !ok {
		return nil
	}
	return op.update(name, buf, t)
}

// Q returns the current Gamma approximation of the posterior over b.
func (op *GammaProductOp) Q(buf *laplace.Buffer, y, a, b dist.Gamma) (dist.Gamma, error) {
	const name = "gammaProduct.Q"
	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case b.IsPointMass():
		return b, nil
	case a.IsPointMass():
		return b.Product(productPartner(y, a.Point()))
	}
	t, _, err := productTarget(y, a, b)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	post, ok, err := op.posterior(name, buf, t)
	if err != nil || !ok {
		return b, err
	}
	return scaledPosterior(1, 1, post)
}

// ProductAverageConditional returns the EP message to y.
//
// Implementation:
//   - Stage 1: closed forms. A point-mass b gives Gamma(as, ar/b)
//     (symmetric in a); both points give a point mass at their product.
//   - Stage 2: the Laplace posterior of log b at the buffer point. Negative
//     curvature degrades to a uniform message.
//   - Stage 3: an observed y gets the derivative message of
//     log ∫ a(y/b)·b(b)/b db at the observation; otherwise E[y], E[y²] are
//     matched and the incoming y is divided out.
//
// Inputs:
//   - y, a, b: incoming Gamma messages.
//   - buf: the operating point from UpdateBuffer; unused by closed forms.
//
// Errors: as UpdateBuffer, plus dist.ErrNumericDegenerate when the matched
// moments are inconsistent.
//
// Complexity: O(1).
func (op *GammaProductOp) ProductAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	const name = "gammaProduct.ProductAverageConditional"
	fp := op.opts.msg.ForceProper

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case a.IsPointMass() && b.IsPointMass():
		return dist.GammaPointMass(a.Point() * b.Point()), nil
	case b.IsPointMass():
		return dist.GammaFromShapeAndRate(a.Shape(), a.Rate()/b.Point()), nil
	case a.IsPointMass():
		return dist.GammaFromShapeAndRate(b.Shape(), b.Rate()/a.Point()), nil
	}

	t, _, err := productTarget(y, a, b)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	post, ok, err := op.posterior(name, buf, t)
	if err != nil || !ok {
		return dist.GammaUniform(), err
	}

	if y.IsPointMass() {
		y0 := y.Point()
		em, ev := logNormalMoments(-1, post)
		d1 := (a.Shape()-1)/y0 - a.Rate()*em
		d2 := -(a.Shape()-1)/(y0*y0) + a.Rate()*a.Rate()*ev
		return dist.GammaFromDerivatives(y0, d1, d2, fp)
	}

	mt := t.(mixedTarget)
	l1 := logMixedMoment(math.Log(mt.c), 1, 1, mt.lo, mt.hi, post)
	l2 := logMixedMoment(math.Log(mt.c*(mt.c+1)), 2, 2, mt.lo, mt.hi, post)
	q, err := gammaFromLogMoments(l1, l2)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	return divide(name, q, y, fp)
}

// AAverageConditional returns the EP message to a.
//
// Closed forms: a point-mass b gives Gamma(ys, yr·b); a point-mass a gets
// the derivative message at its value. An observed y maps the Laplace
// posterior of log b onto a = y·e⁻ᶻ; otherwise E[a], E[a²] are matched.
func (op *GammaProductOp) AAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	const name = "gammaProduct.AAverageConditional"
	fp := op.opts.msg.ForceProper

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case a.IsPointMass():
		return productToPoint(y, b, a.Point(), fp)
	case b.IsPointMass():
		return productPartner(y, b.Point()), nil
	}

	t, _, err := productTarget(y, a, b)
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	post, ok, err := op.posterior(name, buf, t)
	if err != nil || !ok {
		return dist.GammaUniform(), err
	}

	var q dist.Gamma
	if y.IsPointMass() {
		q, err = scaledPosterior(y.Point(), -1, post)
	} else {
		mt := t.(mixedTarget)
		l1 := logMixedMoment(math.Log(mt.c), 0, 1, mt.lo, mt.hi, post)
		l2 := logMixedMoment(math.Log(mt.c*(mt.c+1)), 0, 2, mt.lo, mt.hi, post)
		q, err = gammaFromLogMoments(l1, l2)
	}
	if err != nil {
		return dist.Gamma{}, fmt.Errorf("%s: %w", name, err)
	}
	return divide(name, q, a, fp)
}

// BAverageConditional returns the EP message to b: the Laplace posterior of
// log b mapped to a Gamma, divided by b. Closed forms mirror
// AAverageConditional.
func (op *GammaProductOp) BAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	const name = "gammaProduct.BAverageConditional"
	fp := op.opts.msg.ForceProper

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return dist.GammaUniform(), err
	}
	switch {
	case b.IsPointMass():
		return productToPoint(y, a, b.Point(), fp)
	case a.IsPointMass():
		return productPartner(y, a.Point()), nil
	}

	q, err := op.Q(buf, y, a, b)
	if err != nil {
		return dist.Gamma{}, err
	}
	return divide(name, q, b, fp)
}

// LogAverageFactor returns log ∫∫ y(a·b)·a(a)·b(b) da db with every proper
// message normalized. A uniform y contributes 0.
//
// With neither argument a point mass the inner integral over a is closed
// form and the outer one over log b is the Laplace estimate at the mode
// found by a bounded Solve from the buffer point; buf is not modified.
//
// Complexity: O(MaxSteps) target evaluations.
func (op *GammaProductOp) LogAverageFactor(y, a, b dist.Gamma, buf *laplace.Buffer) (float64, error) {
	const name = "gammaProduct.LogAverageFactor"

	if skip, err := op.checkInputs(name, y, a, b); skip || err != nil {
		return 0, err
	}
	switch {
	case a.IsPointMass() && b.IsPointMass():
		return y.LogDensity(a.Point() * b.Point()), nil
	case y.IsUniform():
		return 0, nil
	case b.IsPointMass():
		return productPointEvidence(name, y, a, b.Point())
	case a.IsPointMass():
		return productPointEvidence(name, y, b, a.Point())
	}

	t, _, err := productTarget(y, a, b)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	ev, err := op.evidence(name, buf, t)
	if err != nil {
		return 0, err
	}
	if y.IsPointMass() {
		return logNorm(a) + logNorm(b) + (a.Shape()-1)*math.Log(y.Point()) + ev, nil
	}
	c := t.(mixedTarget).c

	return logNorm(y) + logNorm(a) + logNorm(b) + mathx.LogGamma(c) + ev, nil
}

// productPointEvidence is log ∫ y(x·f)·o(x) dx in closed form.
func productPointEvidence(name string, y, o dist.Gamma, f float64) (float64, error) {
	if y.IsPointMass() {
		return o.LogDensity(y.Point()/f) - math.Log(f), nil
	}
	c := o.Shape() + y.Shape() - 1
	if !(c > 0) {
		return 0, fmt.Errorf("%s: shape sum %g: %w", name, c, dist.ErrImproperDistribution)
	}

	return logNorm(y) + logNorm(o) + (y.Shape()-1)*math.Log(f) +
		mathx.LogGamma(c) - c*math.Log(o.Rate()+y.Rate()*f), nil
}

// LogEvidenceRatio returns LogAverageFactor − log ∫ y·toY.
func (op *GammaProductOp) LogEvidenceRatio(y, a, b dist.Gamma, buf *laplace.Buffer, toY dist.Gamma) (float64, error) {
	laf, err := op.LogAverageFactor(y, a, b, buf)
	if err != nil {
		return 0, err
	}
	norm, err := y.LogAverageOf(toY)
	if err != nil {
		return 0, fmt.Errorf("gammaProduct.LogEvidenceRatio: %w", err)
	}

	return laf - norm, nil
}
