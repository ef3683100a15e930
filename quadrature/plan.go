// SPDX-License-Identifier: MIT

package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/katalvlaran/epmsg/dist"
)

// DefaultNodes is the Gauss-Hermite order used when callers pass n <= 0 to
// operators that accept an optional node count.
const DefaultNodes = 21

// Plan is a set of abscissae and log-weights sized to a Gaussian proposal
// N(Mean, Variance). Weights are normalized to sum to 1, so Σ w·f(x)
// approximates E[f(x)] under the proposal.
//
// A Plan is immutable after NewPlan and safe to reuse while the proposal is
// unchanged.
type Plan struct {
	Mean     float64
	Variance float64

	nodes      []float64
	logWeights []float64
}

// NewPlan builds an n-node Gauss-Hermite plan for N(mean, variance).
//
// Stage 1: reference nodes t_i and weights for ∫ e^(−t²) f(t) dt.
// Stage 2: map x_i = mean + √(2·variance)·t_i.
// Stage 3: normalize the weights and cache their logarithms.
//
// Complexity: O(n²) for the node computation, O(n) for the rest.
func NewPlan(mean, variance float64, n int) (*Plan, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n=%d: %w", n, ErrInvalidPlan)
	}
	if math.IsNaN(mean) || math.IsInf(mean, 0) || !(variance > 0) || math.IsInf(variance, 1) {
		return nil, fmt.Errorf("proposal N(%g, %g): %w", mean, variance, ErrInvalidPlan)
	}

	// Stage 1
	var (
		t = make([]float64, n)
		w = make([]float64, n)
	)
	quad.Hermite{}.FixedLocations(t, w, math.Inf(-1), math.Inf(1))

	// Stage 2
	scale := math.Sqrt(2 * variance)
	for i := range t {
		t[i] = mean + scale*t[i]
	}

	// Stage 3
	total := floats.Sum(w)
	lw := make([]float64, n)
	for i, wi := range w {
		lw[i] = math.Log(wi / total)
	}

	return &Plan{Mean: mean, Variance: variance, nodes: t, logWeights: lw}, nil
}

// NewPlanFor builds a plan from a proper Gaussian proposal message.
func NewPlanFor(proposal dist.Gaussian, n int) (*Plan, error) {
	if !proposal.IsProper() || proposal.IsPointMass() {
		return nil, fmt.Errorf("proposal %v: %w", proposal, ErrInvalidPlan)
	}
	m, v := proposal.MeanAndVariance()

	return NewPlan(m, v, n)
}

// Len returns the number of nodes.
func (p *Plan) Len() int { return len(p.nodes) }

// Node returns the i-th abscissa and its log-weight.
func (p *Plan) Node(i int) (x, logWeight float64) { return p.nodes[i], p.logWeights[i] }

// Reweight returns the integrand to use when the quadrature nodes come from
// proposal but the expectation is wanted under prior·exp(logFactor):
//
//	logF(x) = logFactor(x) + prior.LogDensity(x) − proposal.LogDensity(x)
//
// When the proposal equals the prior no correction is applied.
func Reweight(logFactor func(float64) float64, prior, proposal dist.Gaussian) func(float64) float64 {
	if prior == proposal {
		return logFactor
	}

	return func(x float64) float64 {
		return logFactor(x) + prior.LogDensity(x) - proposal.LogDensity(x)
	}
}

// VarianceFloor returns the positive variance substituted when a quadrature
// estimate is non-positive: 2·proposalVariance·gap².
func VarianceFloor(proposalVariance, gap float64) float64 {
	return 2 * proposalVariance * gap * gap
}

// FloorVariance applies VarianceFloor when variance is not positive and
// reports whether the floor was used.
func FloorVariance(variance, proposalVariance, gap float64) (float64, bool) {
	if variance > 0 {
		return variance, false
	}

	return VarianceFloor(proposalVariance, gap), true
}
