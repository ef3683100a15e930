package laplace_test

import (
	"testing"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/laplace"
)

// BenchmarkSolve_FarMode solves l = z − 1e-3·eᶻ from 0.
func BenchmarkSolve_FarMode(b *testing.B) {
	target := logGammaOfExp(1, 1e-3)
	for i := 0; i < b.N; i++ {
		if _, _, err := laplace.Solve(target, dist.GaussianUniform(), 0, laplace.MaxSteps, laplace.DefaultTolerance); err != nil {
			b.Fatalf("Solve failed: %v", err)
		}
	}
}

// BenchmarkSolveVector_Coupled solves the coupled two-coordinate target.
func BenchmarkSolveVector_Coupled(b *testing.B) {
	target := coupledGamma{a: [2]float64{1, 2}, b: [2]float64{1e-3, 1e-2}, c: 0.5}
	x0 := []float64{0, 0}
	for i := 0; i < b.N; i++ {
		if _, _, err := laplace.SolveVector(target, laplace.VectorPrior{}, x0, laplace.MaxSteps, laplace.DefaultTolerance); err != nil {
			b.Fatalf("SolveVector failed: %v", err)
		}
	}
}
