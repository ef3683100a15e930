package factor_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/factor"
	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/mathx"
)

// converge runs UpdateBuffer until the operating point stops moving.
func converge(t *testing.T, update func(*laplace.Buffer) error, buf *laplace.Buffer) {
	t.Helper()
	for i := 0; i < 100; i++ {
		prev := buf.X
		require.NoError(t, update(buf))
		if math.Abs(buf.X-prev) < 1e-12 {
			return
		}
	}
	t.Fatalf("buffer did not settle: x=%g", buf.X)
}

func TestGammaProduct_PointMassClosedForms(t *testing.T) {
	op := factor.NewGammaProductOp()
	a := mustGamma(t, 3, 1)
	y := mustGamma(t, 5, 1)
	b0 := dist.GammaPointMass(2)

	toY, err := op.ProductAverageConditional(y, a, b0, nil)
	require.NoError(t, err)
	assert.Equal(t, dist.GammaFromShapeAndRate(3, 0.5), toY)

	toA, err := op.AAverageConditional(y, a, b0, nil)
	require.NoError(t, err)
	assert.Equal(t, dist.GammaFromShapeAndRate(5, 2), toA)

	toB, err := op.BAverageConditional(y, b0, a, nil)
	require.NoError(t, err)
	assert.Equal(t, dist.GammaFromShapeAndRate(5, 2), toB, "symmetric in a and b")

	both, err := op.ProductAverageConditional(y, dist.GammaPointMass(3), b0, nil)
	require.NoError(t, err)
	require.True(t, both.IsPointMass())
	assert.Equal(t, 6.0, both.Point())

	laf, err := op.LogAverageFactor(y, dist.GammaPointMass(3), b0, nil)
	require.NoError(t, err)
	assert.InDelta(t, y.LogDensity(6), laf, 1e-12)
}

func TestGammaProduct_PointEvidenceMatchesGrid(t *testing.T) {
	a := mustGamma(t, 3, 1)
	y := mustGamma(t, 5, 1)
	const b0 = 2.0
	want, _, _ := grid1(func(u float64) float64 {
		return y.LogDensity(math.Exp(u)*b0) + a.LogDensity(math.Exp(u)) + u
	}, -15, 6, 6001)

	got, err := factor.NewGammaProductOp().LogAverageFactor(y, a, dist.GammaPointMass(b0), nil)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-6)
}

func TestGammaProduct_LaplaceMatchesGrid(t *testing.T) {
	a := mustGamma(t, 3, 1)
	b := mustGamma(t, 4, 2)
	y := mustGamma(t, 5, 1)
	joint := func(u, z float64) float64 {
		return y.LogDensity(math.Exp(u+z)) + a.LogDensity(math.Exp(u)) + u + b.LogDensity(math.Exp(z)) + z
	}
	logZ, m := grid2(joint, -8, 5, 651,
		func(_, z float64) float64 { return math.Exp(z) },
		func(u, _ float64) float64 { return math.Exp(u) },
		func(u, z float64) float64 { return math.Exp(u + z) },
	)

	op := factor.NewGammaProductOp(factor.WithForceProper(false))
	buf := op.InitBuffer()
	converge(t, func(buf *laplace.Buffer) error { return op.UpdateBuffer(buf, y, a, b) }, buf)

	q, err := op.Q(buf, y, a, b)
	require.NoError(t, err)
	assert.InEpsilon(t, m[0], q.Mean(), 0.03)

	toB, err := op.BAverageConditional(y, a, b, buf)
	require.NoError(t, err)
	postB, err := toB.Product(b)
	require.NoError(t, err)
	assert.InEpsilon(t, q.Mean(), postB.Mean(), 1e-9)

	toA, err := op.AAverageConditional(y, a, b, buf)
	require.NoError(t, err)
	postA, err := toA.Product(a)
	require.NoError(t, err)
	assert.InEpsilon(t, m[1], postA.Mean(), 0.05)

	toY, err := op.ProductAverageConditional(y, a, b, buf)
	require.NoError(t, err)
	postY, err := toY.Product(y)
	require.NoError(t, err)
	assert.InEpsilon(t, m[2], postY.Mean(), 0.05)

	laf, err := op.LogAverageFactor(y, a, b, buf)
	require.NoError(t, err)
	assert.InDelta(t, logZ, laf, 0.05)
}

func TestGammaProduct_FarOperatingPoint(t *testing.T) {
	// with u = 1e-3·b the mode of log b solves u² + u − 1 = 0
	op := factor.NewGammaProductOp()
	y := mustGamma(t, 1, 1e-3)
	a := mustGamma(t, 1, 1)
	cases := []struct {
		bRate float64
		want  float64
	}{
		{1e-3, math.Log(1000 * (math.Sqrt(5) - 1) / 2)},
		{1e-5, 9.160361181906834},
	}
	for _, tc := range cases {
		b := mustGamma(t, 1, tc.bRate)
		buf := op.InitBuffer()
		for i := 0; i < 100; i++ {
			require.NoError(t, op.UpdateBuffer(buf, y, a, b), "b rate %g sweep %d", tc.bRate, i)
			require.False(t, math.IsInf(buf.X, 0) || math.IsNaN(buf.X))
		}
		assert.InDelta(t, tc.want, buf.X, 1e-6, "b rate %g", tc.bRate)

		toB, err := op.BAverageConditional(y, a, b, buf)
		require.NoError(t, err)
		assert.True(t, toB.IsProper() || toB.IsUniform())
	}
}

func TestGammaProduct_ObservedOutput(t *testing.T) {
	a := mustGamma(t, 3, 1)
	b := mustGamma(t, 4, 2)
	const y0 = 2.0
	y := dist.GammaPointMass(y0)

	// density of z = log b given a·b = y0
	logF := func(z float64) float64 {
		return a.LogDensity(y0*math.Exp(-z)) + b.LogDensity(math.Exp(z))
	}
	logZ, _, _ := grid1(logF, -10, 10, 4001)
	logZb, _, _ := grid1(func(z float64) float64 { return logF(z) + z }, -10, 10, 4001)

	op := factor.NewGammaProductOp()
	buf := op.InitBuffer()
	converge(t, func(buf *laplace.Buffer) error { return op.UpdateBuffer(buf, y, a, b) }, buf)

	q, err := op.Q(buf, y, a, b)
	require.NoError(t, err)
	assert.InEpsilon(t, math.Exp(logZb-logZ), q.Mean(), 0.03)

	laf, err := op.LogAverageFactor(y, a, b, buf)
	require.NoError(t, err)
	assert.InDelta(t, logZ, laf, 0.05)

	toY, err := op.ProductAverageConditional(y, a, b, buf)
	require.NoError(t, err)
	assert.False(t, toY.IsPointMass())
	assert.Greater(t, toY.Shape(), 0.0)
}

func TestGammaProduct_UniformOutputEvidence(t *testing.T) {
	op := factor.NewGammaProductOp()
	laf, err := op.LogAverageFactor(dist.GammaUniform(), mustGamma(t, 3, 1), mustGamma(t, 4, 2), op.InitBuffer())
	require.NoError(t, err)
	assert.Equal(t, 0.0, laf)
}

func TestGammaProduct_Errors(t *testing.T) {
	op := factor.NewGammaProductOp()
	a := mustGamma(t, 3, 1)
	b := mustGamma(t, 4, 2)
	y := mustGamma(t, 5, 1)

	assert.ErrorIs(t, op.UpdateBuffer(nil, y, a, b), factor.ErrNilBuffer)

	_, err := op.ProductAverageConditional(y, a, b, nil)
	assert.ErrorIs(t, err, factor.ErrNilBuffer)

	err = op.UpdateBuffer(op.InitBuffer(), mustGamma(t, 0.5, 1), mustGamma(t, 0.3, 1), b)
	assert.ErrorIs(t, err, dist.ErrImproperDistribution)

	_, err = op.AAverageConditional(y, dist.GammaUniform(), b, op.InitBuffer())
	assert.ErrorIs(t, err, dist.ErrImproperMessage)

	_, err = op.AAverageConditional(y, dist.GammaPointMass(0), b, op.InitBuffer())
	assert.ErrorIs(t, err, dist.ErrAllZero)
}

func TestGammaProduct_NewtonStepsOption(t *testing.T) {
	a := mustGamma(t, 3, 1)
	b := mustGamma(t, 4, 2)
	y := mustGamma(t, 5, 1)

	slow := factor.NewGammaProductOp()
	ref := slow.InitBuffer()
	converge(t, func(buf *laplace.Buffer) error { return slow.UpdateBuffer(buf, y, a, b) }, ref)

	fast := factor.NewGammaProductOp(factor.WithNewtonSteps(laplace.MaxSteps))
	buf := fast.InitBuffer()
	require.NoError(t, fast.UpdateBuffer(buf, y, a, b))
	assert.Equal(t, 1, buf.Sweeps)
	assert.InDelta(t, ref.X, buf.X, 1e-9)
}

func TestGammaProduct_VMP(t *testing.T) {
	op := factor.NewGammaProductOp()
	a := mustGamma(t, 3, 1)
	b := mustGamma(t, 4, 2)

	toY, err := op.ProductAverageLogarithm(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, toY.Mean(), 1e-9)
	assert.InDelta(t, mathx.Digamma(3)+mathx.Digamma(4)-math.Log(2), toY.MeanLog(), 1e-9)

	toA, err := op.AAverageLogarithm(mustGamma(t, 5, 1), b)
	require.NoError(t, err)
	assert.Equal(t, dist.GammaFromShapeAndRate(5, 2), toA)

	toB, err := op.BAverageLogarithm(mustGamma(t, 5, 1), a)
	require.NoError(t, err)
	assert.Equal(t, dist.GammaFromShapeAndRate(5, 3), toB)

	_, err = op.AAverageLogarithm(dist.GammaPointMass(2), b)
	assert.ErrorIs(t, err, dist.ErrNotSupported)
	assert.Equal(t, 0.0, op.AverageLogFactor())
}
