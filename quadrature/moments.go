// SPDX-License-Identifier: MIT

package quadrature

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/mathx"
)

// Result carries the log-normalizer and the first two moments of the tilted
// density ∝ w(x)·exp(logF(x)).
//
// For a Plan, LogZ is log E_proposal[exp(logF)]; for Adaptive it is the
// absolute log ∫ exp(logF(x)) dx.
type Result struct {
	LogZ     float64
	Mean     float64
	Variance float64

	// LogMeanExp is log E[exp(x)] under the tilted density, the quantity a
	// Gamma-valued projection of exp(x) needs.
	LogMeanExp float64

	Nodes     int
	Converged bool
}

// Moments integrates logF against the plan.
//
// Stage 1: log-values lv_i = log w_i + logF(x_i) and their maximum maxLogF.
// Stage 2: Z and Σ y shifted by maxLogF, so no term overflows.
// Stage 3: centered second moment around the mean from Stage 2.
//
// Returns dist.ErrNumericDegenerate when Z == 0 (every node has zero mass) or
// logF produced NaN. The variance may be non-positive on a too coarse grid;
// callers apply FloorVariance.
//
// Complexity: O(n) evaluations of logF.
func (p *Plan) Moments(logF func(float64) float64) (Result, error) {
	res, err := accumulate(p.nodes, p.logWeights, logF)
	if err != nil {
		return Result{}, fmt.Errorf("gauss-hermite N(%g, %g): %w", p.Mean, p.Variance, err)
	}
	res.Converged = true

	return res, nil
}

// NaiveLogZ is log Σ w_i·exp(logF(x_i)) without the maxLogF shift. It
// overflows for large log-values and exists as the reference the shifted
// accumulation is checked against.
func (p *Plan) NaiveLogZ(logF func(float64) float64) float64 {
	var z float64
	for i, x := range p.nodes {
		z += math.Exp(p.logWeights[i]) * math.Exp(logF(x))
	}

	return math.Log(z)
}

func accumulate(nodes, logWeights []float64, logF func(float64) float64) (Result, error) {
	// Stage 1
	var (
		n       = len(nodes)
		lv      = make([]float64, n)
		maxLogF = math.Inf(-1)
	)
	for i, x := range nodes {
		v := logWeights[i] + logF(x)
		if math.IsNaN(v) {
			return Result{}, fmt.Errorf("log-integrand NaN at x=%g: %w", x, dist.ErrNumericDegenerate)
		}
		if math.IsInf(v, 1) {
			return Result{}, fmt.Errorf("log-integrand +Inf at x=%g: %w", x, dist.ErrNumericDegenerate)
		}
		lv[i] = v
		if v > maxLogF {
			maxLogF = v
		}
	}
	if math.IsInf(maxLogF, -1) {
		return Result{}, fmt.Errorf("zero normalizer: %w", dist.ErrNumericDegenerate)
	}

	// Stage 2
	var (
		z, sumY float64
		shifted = make([]float64, n)
	)
	for i, x := range nodes {
		e := math.Exp(lv[i] - maxLogF)
		z += e
		sumY += e * x
		shifted[i] = lv[i] + x
	}
	mean := sumY / z

	// Stage 3
	var sumD2 float64
	for i, x := range nodes {
		d := x - mean
		sumD2 += math.Exp(lv[i]-maxLogF) * d * d
	}
	logZ := maxLogF + math.Log(z)
	res := Result{
		LogZ:       logZ,
		Mean:       mean,
		Variance:   sumD2 / z,
		LogMeanExp: mathx.LogSumExpSlice(shifted) - logZ,
		Nodes:      n,
	}
	if math.IsNaN(res.Mean) || math.IsNaN(res.Variance) {
		return Result{}, fmt.Errorf("moments (%g, %g): %w", res.Mean, res.Variance, dist.ErrNumericDegenerate)
	}

	return res, nil
}
