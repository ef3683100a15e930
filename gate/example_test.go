package gate_test

import (
	"fmt"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/gate"
)

func ExampleGate_ValueAverageConditional() {
	n := func(m, v float64) dist.Gaussian {
		g, _ := dist.NewGaussian(m, v)
		return g
	}
	selector, _ := dist.NewDiscrete(0.5, 0.3, 0.2)

	g := gate.New[dist.Gaussian]()
	msg, err := g.ValueAverageConditional([]dist.Gaussian{n(0, 1), n(2, 1), n(-2, 1)}, selector, dist.GaussianUniform())
	if err != nil {
		fmt.Println(err)
		return
	}
	mean, variance := msg.MeanAndVariance()
	fmt.Printf("mean=%.2f variance=%.2f\n", mean, variance)
	// Output:
	// mean=0.20 variance=2.96
}

func ExampleGate_ValuePartialTwoAverageConditional() {
	n := func(m, v float64) dist.Gaussian {
		g, _ := dist.NewGaussian(m, v)
		return g
	}
	enter := []dist.Gaussian{n(0, 1), n(10, 1)}

	g := gate.New[dist.Gaussian]()
	msg, err := g.ValuePartialTwoAverageConditional(enter, dist.BernoulliPointMass(true), dist.BernoulliFromLogOdds(0), n(0, 100))
	if err != nil {
		fmt.Println(err)
		return
	}
	mean, variance := msg.MeanAndVariance()
	fmt.Printf("mean=%.2f variance=%.2f\n", mean, variance)
	// Output:
	// mean=0.00 variance=1.00
}
