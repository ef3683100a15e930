package factor_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/factor"
)

func TestOptions_Defaults(t *testing.T) {
	o := factor.NewExpOp().Options()
	assert.Equal(t, dist.MessageOptions{ForceProper: true, SkipIfUniform: false}, o.MessageOptions())
	assert.Contains(t, o.String(), "nodes=21")
	assert.Contains(t, o.String(), "damping=false")
}

func TestOptions_LastWins(t *testing.T) {
	o := factor.NewGammaProductOp(
		factor.WithForceProper(false),
		factor.WithMessageOptions(dist.MessageOptions{ForceProper: true, SkipIfUniform: true}),
		nil,
	).Options()
	assert.Equal(t, dist.MessageOptions{ForceProper: true, SkipIfUniform: true}, o.MessageOptions())
}

func TestOptions_PanicOnInvalid(t *testing.T) {
	cases := map[string]func(){
		"nodes zero":       func() { factor.WithQuadratureNodes(0) },
		"nodes too many":   func() { factor.WithQuadratureNodes(513) },
		"rel tol zero":     func() { factor.WithAdaptiveQuadrature(0) },
		"rel tol NaN":      func() { factor.WithAdaptiveQuadrature(math.NaN()) },
		"degenerate < 0":   func() { factor.WithDegenerateVariance(-1) },
		"gap zero":         func() { factor.WithQuadratureGap(0) },
		"gap infinite":     func() { factor.WithQuadratureGap(math.Inf(1)) },
		"newton zero":      func() { factor.WithNewtonSteps(0) },
		"newton above max": func() { factor.WithNewtonSteps(1000) },
		"nil logger":       func() { factor.WithLogger(nil) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, fn)
		})
	}
}
