// SPDX-License-Identifier: MIT

package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// DefaultAdaptiveMinNodes is the first refinement level.
	DefaultAdaptiveMinNodes = 16

	// DefaultAdaptiveMaxNodes caps the doubling so every call stays bounded.
	DefaultAdaptiveMaxNodes = 1024
)

// Adaptive integrates exp(logF) over the whole real line, doubling the node
// count until LogZ, Mean and Variance change by less than relTol between two
// levels or maxNodes is exceeded.
//
// The line is mapped onto (−1, 1) with x = center + scale·t/(1−t²), so center
// and scale should roughly locate the mass of exp(logF). Gauss-Legendre
// interior nodes are used on (−1, 1); the endpoints (x = ±∞) are never
// evaluated.
//
// When the cap is hit the last level is returned with Converged == false.
// maxNodes <= 0 selects DefaultAdaptiveMaxNodes.
//
// Complexity: O(N²) node generation plus O(N) logF evaluations per level,
// N ≤ maxNodes; at most log₂(maxNodes/16)+1 levels.
func Adaptive(logF func(float64) float64, center, scale float64, maxNodes int, relTol float64) (Result, error) {
	if math.IsNaN(relTol) || relTol <= 0 || !(scale > 0) || math.IsInf(scale, 1) || math.IsNaN(center) || math.IsInf(center, 0) {
		return Result{}, fmt.Errorf("center=%g scale=%g relTol=%g: %w", center, scale, relTol, ErrInvalidTolerance)
	}
	if maxNodes <= 0 {
		maxNodes = DefaultAdaptiveMaxNodes
	}

	var (
		prev Result
		have bool
	)
	for n := DefaultAdaptiveMinNodes; n <= maxNodes; n *= 2 {
		nodes, logWeights := mappedLegendre(n, center, scale)
		res, err := accumulate(nodes, logWeights, logF)
		if err != nil {
			return Result{}, fmt.Errorf("adaptive level n=%d: %w", n, err)
		}
		if have && settled(prev, res, relTol, scale) {
			res.Converged = true
			return res, nil
		}
		prev, have = res, true
	}

	return prev, nil
}

// mappedLegendre returns Gauss-Legendre nodes on (−1, 1) pushed through
// x = c + s·t/(1−t²), with the Jacobian s·(1+t²)/(1−t²)² folded into the
// log-weights.
func mappedLegendre(n int, c, s float64) (nodes, logWeights []float64) {
	var (
		t = make([]float64, n)
		w = make([]float64, n)
	)
	quad.Legendre{}.FixedLocations(t, w, -1, 1)

	nodes = make([]float64, n)
	logWeights = make([]float64, n)
	for i, ti := range t {
		den := 1 - ti*ti
		nodes[i] = c + s*ti/den
		logWeights[i] = math.Log(w[i]) + math.Log(s*(1+ti*ti)/(den*den))
	}

	return nodes, logWeights
}

func settled(a, b Result, relTol, scale float64) bool {
	if math.Abs(a.LogZ-b.LogZ) > relTol {
		return false
	}
	if math.Abs(a.Mean-b.Mean) > relTol*(scale+math.Abs(b.Mean)) {
		return false
	}

	return math.Abs(a.Variance-b.Variance) <= relTol*math.Max(b.Variance, scale*scale*relTol)
}
