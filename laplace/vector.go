// SPDX-License-Identifier: MIT

package laplace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/epmsg/dist"
)

// VectorTarget is an unnormalized log-density l(x) over ℝⁿ.
//
// Gradient writes ∇l(x) into dst (len n); Hessian writes ∇²l(x) into a
// zeroed n×n dst.
type VectorTarget interface {
	Dim() int
	LogValue(x []float64) float64
	Gradient(dst, x []float64)
	Hessian(dst *mat.SymDense, x []float64)
}

// VectorPrior is a Gaussian prior exp(hᵀx − ½·xᵀPx) in natural parameters,
// h = MeanTimesPrecision and P = Precision. A nil Precision is uniform.
type VectorPrior struct {
	Precision          *mat.SymDense
	MeanTimesPrecision []float64
}

// IsUniform reports whether the prior contributes nothing.
func (p VectorPrior) IsUniform() bool { return p.Precision == nil }

func (p VectorPrior) check(n int) error {
	if p.IsUniform() {
		return nil
	}
	if p.Precision.SymmetricDim() != n || len(p.MeanTimesPrecision) != n {
		return fmt.Errorf("prior of dimension %d for target of dimension %d: %w",
			p.Precision.SymmetricDim(), n, dist.ErrDimensionMismatch)
	}
	return nil
}

func (p VectorPrior) logValue(x []float64) float64 {
	if p.IsUniform() {
		return 0
	}
	xv := mat.NewVecDense(len(x), x)
	return mat.Dot(mat.NewVecDense(len(x), p.MeanTimesPrecision), xv) - 0.5*mat.Inner(xv, p.Precision, xv)
}

// VectorBuffer is the multivariate operating point of a factor instance.
// Like Buffer it is owned by the caller and refined once per sweep.
type VectorBuffer struct {
	X      []float64
	Sweeps int
}

// NewVectorBuffer initializes a buffer at a copy of x0.
func NewVectorBuffer(x0 []float64) *VectorBuffer {
	return &VectorBuffer{X: append([]float64(nil), x0...)}
}

// Update advances the buffer by one damped Newton step (see StepVector).
func (b *VectorBuffer) Update(t VectorTarget, prior VectorPrior) error {
	if b == nil {
		return ErrNilBuffer
	}
	x, err := StepVector(t, prior, b.X)
	if err != nil {
		return fmt.Errorf("sweep %d: %w", b.Sweeps+1, err)
	}
	b.X = x
	b.Sweeps++

	return nil
}

// StepVector is the multivariate Step. With R the negative Hessian projected
// onto the positive semidefinite cone (eigenvalues clamped at zero) and P
// the prior precision, the proposal x' solves
//
//	(R + P)·x' = R·x + ∇l(x) + h
//
// When R + P is singular a gradient step with every coordinate bounded by 1
// is taken instead. The step is capped at MaxJump in the max norm and then
// halved until the objective does not decrease and the gradient at x' is
// finite. The returned slice is fresh; x is not modified.
func StepVector(t VectorTarget, prior VectorPrior, x []float64) ([]float64, error) {
	n := t.Dim()
	if len(x) != n {
		return nil, fmt.Errorf("point of dimension %d for target of dimension %d: %w", len(x), n, dist.ErrDimensionMismatch)
	}
	if err := prior.check(n); err != nil {
		return nil, err
	}

	// Stage 1: gradient of the objective and the clamped curvature.
	grad := make([]float64, n)
	t.Gradient(grad, x)
	hess := mat.NewSymDense(n, nil)
	t.Hessian(hess, x)
	if hasNaN(grad) || symHasNaN(hess) {
		return nil, fmt.Errorf("derivatives at x=%v: %w", x, dist.ErrNumericDegenerate)
	}
	curv, err := clampedCurvature(hess)
	if err != nil {
		return nil, fmt.Errorf("curvature at x=%v: %w", x, err)
	}
	if !prior.IsUniform() {
		curv.AddSym(curv, prior.Precision)
		px := mat.NewVecDense(n, nil)
		px.MulVec(prior.Precision, mat.NewVecDense(n, x))
		for i := range grad {
			grad[i] += prior.MeanTimesPrecision[i] - px.AtVec(i)
		}
	}

	// Stage 2: Newton direction, or a bounded gradient step.
	delta := make([]float64, n)
	var chol mat.Cholesky
	if chol.Factorize(curv) {
		dv := mat.NewVecDense(n, delta)
		if err := chol.SolveVecTo(dv, mat.NewVecDense(n, grad)); err != nil {
			copyBounded(delta, grad)
		}
	} else {
		copyBounded(delta, grad)
	}
	if hasNaN(delta) {
		return nil, fmt.Errorf("newton step from x=%v: %w", x, dist.ErrNumericDegenerate)
	}
	if m := maxAbs(delta); m > MaxJump {
		scale(delta, MaxJump/m)
	}

	// Stage 3: backtrack on the objective.
	f0 := t.LogValue(x) + prior.logValue(x)
	next := make([]float64, n)
	for i := 0; i < maxBacktracks && maxAbs(delta) > 0; i++ {
		for j := range next {
			next[j] = x[j] + delta[j]
		}
		if acceptableVector(t, prior, next, f0) {
			return next, nil
		}
		scale(delta, 0.5)
	}

	return append(next[:0], x...), nil
}

// SolveVector iterates StepVector from x0 until the largest relative change
// drops below tol or maxSteps steps were taken (1 ≤ maxSteps ≤ MaxSteps).
func SolveVector(t VectorTarget, prior VectorPrior, x0 []float64, maxSteps int, tol float64) (x []float64, steps int, err error) {
	if maxSteps < 1 || maxSteps > MaxSteps {
		return x0, 0, fmt.Errorf("maxSteps=%d: %w", maxSteps, ErrInvalidSteps)
	}
	x = append([]float64(nil), x0...)
	for steps = 1; steps <= maxSteps; steps++ {
		next, err := StepVector(t, prior, x)
		if err != nil {
			return x, steps, err
		}
		done := true
		for i := range x {
			if math.Abs(next[i]-x[i]) > tol*(1+math.Abs(x[i])) {
				done = false
				break
			}
		}
		x = next
		if done {
			return x, steps, nil
		}
	}

	return x, maxSteps, nil
}

// VectorPosterior is the Gaussian Laplace approximation of
// prior(x)·exp(t(x)) at an operating point.
type VectorPosterior struct {
	Mean       []float64
	Covariance *mat.SymDense

	// LogEvidence is l(x) + ½·n·log 2π − ½·log det(−∇²l(x)), prior
	// unnormalized; it estimates the normalizer when x is the mode.
	LogEvidence float64
}

// NewVectorPosterior expands prior·exp(t) around x: covariance (−∇²l)⁻¹ and
// mean x + Σ·∇l, both of the full log-density. A curvature that is not
// positive definite returns dist.ErrImproperDistribution.
func NewVectorPosterior(t VectorTarget, prior VectorPrior, x []float64) (VectorPosterior, error) {
	n := t.Dim()
	if len(x) != n {
		return VectorPosterior{}, fmt.Errorf("point of dimension %d for target of dimension %d: %w", len(x), n, dist.ErrDimensionMismatch)
	}
	if err := prior.check(n); err != nil {
		return VectorPosterior{}, err
	}

	grad := make([]float64, n)
	t.Gradient(grad, x)
	hess := mat.NewSymDense(n, nil)
	t.Hessian(hess, x)
	if hasNaN(grad) || symHasNaN(hess) {
		return VectorPosterior{}, fmt.Errorf("derivatives at x=%v: %w", x, dist.ErrNumericDegenerate)
	}
	prec := mat.NewSymDense(n, nil)
	prec.ScaleSym(-1, hess)
	if !prior.IsUniform() {
		prec.AddSym(prec, prior.Precision)
		px := mat.NewVecDense(n, nil)
		px.MulVec(prior.Precision, mat.NewVecDense(n, x))
		for i := range grad {
			grad[i] += prior.MeanTimesPrecision[i] - px.AtVec(i)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(prec) {
		return VectorPosterior{}, fmt.Errorf("curvature at x=%v: %w", x, dist.ErrImproperDistribution)
	}
	cov := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(cov); err != nil {
		return VectorPosterior{}, fmt.Errorf("covariance at x=%v: %w", x, dist.ErrNumericDegenerate)
	}
	shift := mat.NewVecDense(n, nil)
	shift.MulVec(cov, mat.NewVecDense(n, grad))
	mean := make([]float64, n)
	for i := range mean {
		mean[i] = x[i] + shift.AtVec(i)
	}

	l := t.LogValue(x) + prior.logValue(x)
	if math.IsNaN(l) || hasNaN(mean) {
		return VectorPosterior{}, fmt.Errorf("posterior at x=%v: %w", x, dist.ErrNumericDegenerate)
	}

	return VectorPosterior{
		Mean:        mean,
		Covariance:  cov,
		LogEvidence: l + 0.5*(float64(n)*log2Pi-chol.LogDet()),
	}, nil
}

// clampedCurvature returns −H with negative eigenvalues set to zero.
func clampedCurvature(hess *mat.SymDense) (*mat.SymDense, error) {
	n := hess.SymmetricDim()
	neg := mat.NewSymDense(n, nil)
	neg.ScaleSym(-1, hess)

	var es mat.EigenSym
	if !es.Factorize(neg, true) {
		return nil, dist.ErrNumericDegenerate
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	out := mat.NewSymDense(n, nil)
	for k, v := range vals {
		if v > 0 {
			out.SymRankOne(out, v, vecs.ColView(k))
		}
	}
	return out, nil
}

func acceptableVector(t VectorTarget, prior VectorPrior, next []float64, f0 float64) bool {
	for _, v := range next {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	f := t.LogValue(next) + prior.logValue(next)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if !math.IsNaN(f0) && !math.IsInf(f0, 0) && f < f0 {
		return false
	}
	grad := make([]float64, len(next))
	t.Gradient(grad, next)
	for _, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return false
		}
	}
	return true
}

// copyBounded writes g into dst scaled so that no coordinate exceeds 1.
func copyBounded(dst, g []float64) {
	copy(dst, g)
	if m := maxAbs(g); m > 1 {
		scale(dst, 1/m)
	}
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

func scale(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func symHasNaN(s *mat.SymDense) bool {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if math.IsNaN(s.At(i, j)) {
				return true
			}
		}
	}
	return false
}
