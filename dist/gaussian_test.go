package dist_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/epmsg/dist"
)

func mustGaussian(t *testing.T, mean, variance float64) dist.Gaussian {
	t.Helper()
	g, err := dist.NewGaussian(mean, variance)
	require.NoError(t, err)
	return g
}

func TestGaussian_Kinds(t *testing.T) {
	assert.Equal(t, dist.KindUniform, dist.GaussianUniform().Kind())
	assert.Equal(t, dist.KindPointMass, dist.GaussianPointMass(3).Kind())
	assert.Equal(t, dist.KindProper, mustGaussian(t, 1, 2).Kind())
	assert.Equal(t, dist.KindImproper, dist.GaussianFromNatural(1, -1).Kind())
	assert.Equal(t, dist.KindImproper, dist.GaussianFromNatural(1, 0).Kind(), "slope without curvature")

	pm := mustGaussian(t, 4, 0)
	assert.True(t, pm.IsPointMass())
	assert.Equal(t, 4.0, pm.Point())
	assert.True(t, mustGaussian(t, 0, math.Inf(1)).IsUniform())
}

func TestGaussian_NewRejectsInvalid(t *testing.T) {
	_, err := dist.NewGaussian(0, -1)
	assert.ErrorIs(t, err, dist.ErrImproperDistribution)
	_, err = dist.NewGaussian(math.NaN(), 1)
	assert.ErrorIs(t, err, dist.ErrNumericDegenerate)
}

func TestGaussian_ProductRatioRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		ma, va float64
		mb, vb float64
	}{
		{"standard", 0, 1, 2, 3},
		{"narrow", -5, 1e-3, 4, 10},
		{"wide", 1e3, 1e4, -7, 0.5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := mustGaussian(t, tc.ma, tc.va)
			b := mustGaussian(t, tc.mb, tc.vb)
			ab, err := a.Product(b)
			require.NoError(t, err)
			back, err := ab.Ratio(b, false)
			require.NoError(t, err)
			m, v := back.MeanAndVariance()
			assert.InDelta(t, tc.ma, m, 1e-9*math.Max(1, math.Abs(tc.ma)))
			assert.InDelta(t, tc.va, v, 1e-9*math.Max(1, tc.va))
		})
	}
}

func TestGaussian_ProductMoments(t *testing.T) {
	a := mustGaussian(t, 0, 1)
	b := mustGaussian(t, 2, 1)
	ab, err := a.Product(b)
	require.NoError(t, err)
	m, v := ab.MeanAndVariance()
	assert.InDelta(t, 1.0, m, 1e-12)
	assert.InDelta(t, 0.5, v, 1e-12)
}

func TestGaussian_PointMassAlgebra(t *testing.T) {
	p := dist.GaussianPointMass(1.5)
	g := mustGaussian(t, 0, 1)

	r, err := p.Product(g)
	require.NoError(t, err)
	assert.Equal(t, p, r)
	r, err = g.Product(p)
	require.NoError(t, err)
	assert.Equal(t, p, r)

	_, err = p.Product(dist.GaussianPointMass(2))
	assert.ErrorIs(t, err, dist.ErrAllZero)

	r, err = p.Ratio(g, true)
	require.NoError(t, err)
	assert.Equal(t, p, r)

	r, err = p.Ratio(p, false)
	require.NoError(t, err)
	assert.True(t, r.IsUniform())

	_, err = g.Ratio(p, false)
	assert.ErrorIs(t, err, dist.ErrImproperDistribution)
}

func TestGaussian_RatioForceProper(t *testing.T) {
	narrow := mustGaussian(t, 0, 1)
	wide := mustGaussian(t, 1, 4)

	raw, err := wide.Ratio(narrow, false)
	require.NoError(t, err)
	assert.Less(t, raw.Precision(), 0.0, "raw ratio is improper")

	fp, err := wide.Ratio(narrow, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fp.Precision(), "projected onto zero precision")
	assert.InDelta(t, raw.MeanTimesPrecision(), fp.MeanTimesPrecision(), 1e-15)

	// projected message times a proper prior stays proper
	post, err := fp.Product(narrow)
	require.NoError(t, err)
	assert.True(t, post.IsProper())
}

func TestGaussian_Power(t *testing.T) {
	g := mustGaussian(t, 2, 0.5)
	half, err := g.Power(0.5)
	require.NoError(t, err)
	m, v := half.MeanAndVariance()
	assert.InDelta(t, 2.0, m, 1e-12)
	assert.InDelta(t, 1.0, v, 1e-12)

	zero, err := g.Power(0)
	require.NoError(t, err)
	assert.True(t, zero.IsUniform())

	_, err = dist.GaussianPointMass(1).Power(-1)
	assert.ErrorIs(t, err, dist.ErrImproperDistribution)
}

func TestGaussian_SumMatchesMixtureMoments(t *testing.T) {
	a := mustGaussian(t, 0, 1)
	b := mustGaussian(t, 2, 1)
	s, err := a.Sum(3, b, 1)
	require.NoError(t, err)
	m, v := s.MeanAndVariance()
	// mean = .75·0 + .25·2; var = 1 + .75·.25·4
	assert.InDelta(t, 0.5, m, 1e-12)
	assert.InDelta(t, 1.75, v, 1e-12)

	same, err := a.Sum(0.2, a, 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, same.Mean(), 1e-12)
	assert.InDelta(t, 1.0, same.Variance(), 1e-12)

	u, err := a.Sum(1, dist.GaussianUniform(), 1)
	require.NoError(t, err)
	assert.True(t, u.IsUniform())

	_, err = a.Sum(0, b, 0)
	assert.ErrorIs(t, err, dist.ErrAllZero)
	_, err = a.Sum(-1, b, 1)
	assert.ErrorIs(t, err, dist.ErrImproperDistribution)
}

func TestGaussian_LogAverageOf(t *testing.T) {
	a := mustGaussian(t, 0, 1)
	b := mustGaussian(t, 1, 2)
	got, err := a.LogAverageOf(b)
	require.NoError(t, err)
	// ∫ N(x;0,1) N(x;1,2) dx = N(0; 1, 3)
	want := mustGaussian(t, 1, 3).LogDensity(0)
	assert.InDelta(t, want, got, 1e-12)

	got, err = a.LogAverageOf(dist.GaussianPointMass(0.5))
	require.NoError(t, err)
	assert.InDelta(t, a.LogDensity(0.5), got, 1e-15)

	got, err = a.LogAverageOf(dist.GaussianUniform())
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = dist.GaussianFromNatural(0, -2).LogAverageOf(a)
	assert.True(t, errors.Is(err, dist.ErrImproperDistribution))
}

func TestGaussian_FromDerivatives(t *testing.T) {
	// log N(x; 1, 0.25) has slope −(x−1)/0.25 and curvature −4
	x := 2.0
	g := dist.GaussianFromDerivatives(x, -(x-1)/0.25, -4, false)
	m, v := g.MeanAndVariance()
	assert.InDelta(t, 1.0, m, 1e-12)
	assert.InDelta(t, 0.25, v, 1e-12)

	clamped := dist.GaussianFromDerivatives(x, 0.3, 2, true)
	assert.Equal(t, 0.0, clamped.Precision())
	assert.InDelta(t, 0.3, clamped.MeanTimesPrecision(), 1e-15)
}
