// SPDX-License-Identifier: MIT

package laplace

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/dist"
)

const (
	// MaxSteps bounds every inner fixed-point solve.
	MaxSteps = 100

	// DefaultTolerance is the relative change at which Solve stops.
	DefaultTolerance = 1e-10

	// MaxJump caps the length of a single step before backtracking.
	MaxJump = 64

	maxBacktracks = 60
)

// Buffer is the operating point a factor instance carries across sweeps.
// It is owned by the caller (one writer per factor instance); the engine
// never keeps hidden state.
type Buffer struct {
	X      float64
	Sweeps int
}

// NewBuffer initializes a buffer at x0. x0 must come from shape or constant
// information only (zero, a prior mean), never from incoming stochastic
// messages.
func NewBuffer(x0 float64) *Buffer { return &Buffer{X: x0} }

// Update advances the buffer by one damped Newton step (see Step).
func (b *Buffer) Update(t Target, prior dist.Gaussian) error {
	if b == nil {
		return ErrNilBuffer
	}
	x, err := Step(t, prior, b.X)
	if err != nil {
		return fmt.Errorf("sweep %d: %w", b.Sweeps+1, err)
	}
	b.X = x
	b.Sweeps++

	return nil
}

// Step performs one Newton step on f(x) = log prior(x) + t(x):
//
//	x' = (r·x + l'(x) + mtp) / (r + prec),   r = max(0, −l''(x))
//
// where (mtp, prec) are the prior's natural parameters. When r + prec is
// zero (flat or convex point, uniform prior) a unit-bounded gradient step is
// taken instead. The step is then halved until f does not decrease and the
// derivatives at x' are finite; if no halving qualifies, x is returned
// unchanged. NaN derivatives at x return dist.ErrNumericDegenerate.
func Step(t Target, prior dist.Gaussian, x float64) (float64, error) {
	d := t.Derivatives(x)
	if math.IsNaN(d.D1) || math.IsNaN(d.D2) {
		return x, fmt.Errorf("derivatives at x=%g: %w", x, dist.ErrNumericDegenerate)
	}
	var mtp, prec float64
	if !prior.IsUniform() {
		mtp, prec = prior.MeanTimesPrecision(), prior.Precision()
	}
	r := math.Max(0, -d.D2)

	// Stage 1: full proposal.
	var delta float64
	if den := r + prec; den > 0 {
		delta = (d.D1 + mtp - prec*x) / den
	} else {
		delta = math.Max(-1, math.Min(1, d.D1+mtp))
	}
	if math.IsNaN(delta) {
		return x, fmt.Errorf("newton step from x=%g: %w", x, dist.ErrNumericDegenerate)
	}
	delta = math.Max(-MaxJump, math.Min(MaxJump, delta))

	// Stage 2: backtrack on the objective.
	f0 := objective(t, prior, x)
	for i := 0; i < maxBacktracks && delta != 0; i, delta = i+1, delta/2 {
		next := x + delta
		if acceptable(t, prior, next, f0) {
			return next, nil
		}
	}

	return x, nil
}

// objective is log prior(x) + t(x).
func objective(t Target, prior dist.Gaussian, x float64) float64 {
	return t.LogValue(x) + priorLogValue(prior, x)
}

// acceptable reports whether next is finite, has finite first and second
// derivatives and does not lower the objective below f0. Any finite
// objective is acceptable when f0 itself is not.
func acceptable(t Target, prior dist.Gaussian, next, f0 float64) bool {
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return false
	}
	f := objective(t, prior, next)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if !math.IsNaN(f0) && !math.IsInf(f0, 0) && f < f0 {
		return false
	}
	d := t.Derivatives(next)
	return !math.IsNaN(d.D1) && !math.IsInf(d.D1, 0) && !math.IsNaN(d.D2) && !math.IsInf(d.D2, 0)
}

// Solve iterates Step from x0 until the relative change drops below tol or
// maxSteps steps were taken (1 ≤ maxSteps ≤ MaxSteps). It returns the last
// point and the number of steps used; not converging within the budget is
// not an error.
func Solve(t Target, prior dist.Gaussian, x0 float64, maxSteps int, tol float64) (x float64, steps int, err error) {
	if maxSteps < 1 || maxSteps > MaxSteps {
		return x0, 0, fmt.Errorf("maxSteps=%d: %w", maxSteps, ErrInvalidSteps)
	}
	x = x0
	for steps = 1; steps <= maxSteps; steps++ {
		var next float64
		next, err = Step(t, prior, x)
		if err != nil {
			return x, steps, err
		}
		done := math.Abs(next-x) <= tol*(1+math.Abs(x))
		x = next
		if done {
			return x, steps, nil
		}
	}

	return x, maxSteps, nil
}
