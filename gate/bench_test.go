package gate_test

import (
	"testing"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/gate"
)

// benchmarkMixture runs the EP value message of an n-branch Gaussian gate.
func benchmarkMixture(b *testing.B, n int) {
	g := gate.New[dist.Gaussian]()
	enter := make([]dist.Gaussian, n)
	weights := make([]float64, n)
	for i := range enter {
		var err error
		if enter[i], err = dist.NewGaussian(float64(i), 1+float64(i%3)); err != nil {
			b.Fatalf("NewGaussian failed: %v", err)
		}
		weights[i] = float64(i + 1)
	}
	selector, err := dist.NewDiscrete(weights...)
	if err != nil {
		b.Fatalf("NewDiscrete failed: %v", err)
	}
	value, err := dist.NewGaussian(0, 10)
	if err != nil {
		b.Fatalf("NewGaussian failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.ValueAverageConditional(enter, selector, value); err != nil {
			b.Fatalf("ValueAverageConditional failed: %v", err)
		}
	}
}

// BenchmarkValueAverageConditional_Small mixes 4 branches.
func BenchmarkValueAverageConditional_Small(b *testing.B) { benchmarkMixture(b, 4) }

// BenchmarkValueAverageConditional_Large mixes 256 branches.
func BenchmarkValueAverageConditional_Large(b *testing.B) { benchmarkMixture(b, 256) }

// BenchmarkValueAverageLogarithm is the geometric mixture over 256 branches.
func BenchmarkValueAverageLogarithm(b *testing.B) {
	g := gate.New[dist.Gaussian]()
	enter := make([]dist.Gaussian, 256)
	weights := make([]float64, len(enter))
	for i := range enter {
		enter[i] = dist.GaussianFromNatural(float64(i), 1)
		weights[i] = 1
	}
	selector, err := dist.NewDiscrete(weights...)
	if err != nil {
		b.Fatalf("NewDiscrete failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.ValueAverageLogarithm(enter, selector); err != nil {
			b.Fatalf("ValueAverageLogarithm failed: %v", err)
		}
	}
}
