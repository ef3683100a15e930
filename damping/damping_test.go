package damping_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/epmsg/damping"
	"github.com/katalvlaran/epmsg/dist"
)

func TestDamper_SeedReproducible(t *testing.T) {
	a := damping.New(42, 0.5)
	b := damping.New(42, 0.5)
	for i := 0; i < 20; i++ {
		sa, sb := a.Step(), b.Step()
		assert.Equal(t, sa, sb)
		assert.GreaterOrEqual(t, sa, 0.0)
		assert.Less(t, sa, 0.5)
	}
}

func TestDamper_ZeroSeedIsFixedDefault(t *testing.T) {
	zero, one, other := damping.New(0, 0.5), damping.New(1, 0.5), damping.New(2, 0.5)
	same := true
	for i := 0; i < 10; i++ {
		s := zero.Step()
		assert.Equal(t, one.Step(), s, "draw %d", i)
		same = same && s == other.Step()
	}
	assert.False(t, same, "a non-zero seed is used verbatim")
}

func TestDamper_InvalidMaxStepPanics(t *testing.T) {
	assert.Panics(t, func() { damping.New(1, 1) })
	assert.Panics(t, func() { damping.New(1, -0.1) })
	assert.Panics(t, func() { damping.WithRand(nil, 0.5) })
}

func TestBlend_Geometric(t *testing.T) {
	prev, err := dist.NewGaussian(0, 1)
	require.NoError(t, err)
	next, err := dist.NewGaussian(4, 1)
	require.NoError(t, err)

	ref := rand.New(rand.NewSource(7))
	s := ref.Float64() * 0.5

	got, err := damping.Blend(damping.WithRand(rand.New(rand.NewSource(7)), 0.5), prev, next)
	require.NoError(t, err)
	// equal precisions: the blended mean interpolates linearly
	assert.InDelta(t, 4*(1-s), got.Mean(), 1e-12)
	assert.InDelta(t, 1.0, got.Variance(), 1e-12)
}

func TestBlend_PassThrough(t *testing.T) {
	next, err := dist.NewGamma(3, 2)
	require.NoError(t, err)

	got, err := damping.Blend[dist.Gamma](nil, dist.GammaFromShapeAndRate(2, 1), next)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	got, err = damping.Blend(damping.New(1, 0.5), dist.GammaUniform(), next)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	got, err = damping.Blend(damping.New(1, 0), dist.GammaFromShapeAndRate(2, 1), next)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}
