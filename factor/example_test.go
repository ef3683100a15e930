// Package factor_test shows the operator lifecycle on small models.
package factor_test

import (
	"fmt"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/factor"
)

// ExampleExpOp shows an EP message to d for exp = Exp(d) with an observed
// rate prior on exp.
func ExampleExpOp() {
	op := factor.NewExpOp()
	exp := dist.GammaFromShapeAndRate(3, 2)
	d, _ := dist.NewGaussian(0, 1)

	msg, err := op.DAverageConditional(exp, d, dist.GaussianUniform())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("proper:", msg.IsProper())
	// Output:
	// proper: true
}

// ExampleGammaProductOp shows the buffer lifecycle: init once, then update
// and read messages every sweep.
func ExampleGammaProductOp() {
	op := factor.NewGammaProductOp()
	y := dist.GammaFromShapeAndRate(5, 1)
	a := dist.GammaFromShapeAndRate(3, 1)
	b := dist.GammaFromShapeAndRate(4, 2)

	buf := op.InitBuffer()
	for sweep := 0; sweep < 20; sweep++ {
		if err := op.UpdateBuffer(buf, y, a, b); err != nil {
			fmt.Println("error:", err)
			return
		}
	}
	q, err := op.Q(buf, y, a, b)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("sweeps:", buf.Sweeps)
	fmt.Println("proper:", q.IsProper())
	// Output:
	// sweeps: 20
	// proper: true
}
