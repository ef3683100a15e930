package quadrature_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/epmsg/quadrature"
)

// tiltedGamma is log of exp((a−1)·x − b·eˣ), the exp factor seen from d.
func tiltedGamma(x float64) float64 { return 2*x - 2*math.Exp(x) }

// benchmarkMoments runs Plan.Moments with an n-node Gauss-Hermite plan.
func benchmarkMoments(b *testing.B, n int) {
	p, err := quadrature.NewPlan(0, 1, n)
	if err != nil {
		b.Fatalf("NewPlan failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Moments(tiltedGamma); err != nil {
			b.Fatalf("Moments failed: %v", err)
		}
	}
}

// BenchmarkPlan_MomentsDefault uses the default order.
func BenchmarkPlan_MomentsDefault(b *testing.B) { benchmarkMoments(b, quadrature.DefaultNodes) }

// BenchmarkPlan_MomentsLarge uses a 64-node plan.
func BenchmarkPlan_MomentsLarge(b *testing.B) { benchmarkMoments(b, 64) }

// BenchmarkNewPlan measures node generation alone.
func BenchmarkNewPlan(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := quadrature.NewPlan(0.5, 2, quadrature.DefaultNodes); err != nil {
			b.Fatalf("NewPlan failed: %v", err)
		}
	}
}

// BenchmarkAdaptive runs the doubling Gauss-Legendre scheme to 1e-10.
func BenchmarkAdaptive(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := quadrature.Adaptive(tiltedGamma, 0, 1, 0, 1e-10); err != nil {
			b.Fatalf("Adaptive failed: %v", err)
		}
	}
}
