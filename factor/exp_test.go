package factor_test

import (
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/epmsg/damping"
	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/factor"
)

// tiltedExp returns log d(x) + (a−1)·x − b·eˣ.
func tiltedExp(exp dist.Gamma, d dist.Gaussian) func(float64) float64 {
	return func(x float64) float64 {
		return d.LogDensity(x) + (exp.Shape()-1)*x - exp.Rate()*math.Exp(x)
	}
}

func TestExp_DAverageConditionalMatchesGrid(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0, 1)
	_, wantMean, wantVar := grid1(tiltedExp(exp, d), -10, 10, 4001)

	op := factor.NewExpOp()
	msg, err := op.DAverageConditional(exp, d, dist.GaussianUniform())
	require.NoError(t, err)
	assert.Greater(t, msg.Precision(), 0.0)

	post, err := msg.Product(d)
	require.NoError(t, err)
	mean, variance := post.MeanAndVariance()
	assert.InDelta(t, wantMean, mean, 1e-4)
	assert.InDelta(t, wantVar, variance, 1e-3*wantVar)
}

func TestExp_DAverageConditionalFedBack(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0, 1)
	_, wantMean, wantVar := grid1(tiltedExp(exp, d), -10, 10, 4001)

	op := factor.NewExpOp()
	toD := dist.GaussianUniform()
	var prev dist.Gaussian
	for i := 0; i < 5; i++ {
		msg, err := op.DAverageConditional(exp, d, toD)
		require.NoError(t, err, "iteration %d", i)
		prev, toD = toD, msg

		post, err := toD.Product(d)
		require.NoError(t, err)
		mean, variance := post.MeanAndVariance()
		assert.InDelta(t, wantMean, mean, 1e-4, "iteration %d", i)
		assert.InDelta(t, wantVar, variance, 1e-3*wantVar, "iteration %d", i)
	}
	assert.InDelta(t, prev.Precision(), toD.Precision(), 1e-4, "fixed point")
	assert.InDelta(t, prev.MeanTimesPrecision(), toD.MeanTimesPrecision(), 1e-4, "fixed point")
}

func TestExp_AdaptiveQuadratureMatchesGrid(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0.5, 2)
	_, wantMean, wantVar := grid1(tiltedExp(exp, d), -15, 15, 6001)

	op := factor.NewExpOp(factor.WithAdaptiveQuadrature(1e-10))
	msg, err := op.DAverageConditional(exp, d, dist.GaussianUniform())
	require.NoError(t, err)
	post, err := msg.Product(d)
	require.NoError(t, err)
	mean, variance := post.MeanAndVariance()
	assert.InDelta(t, wantMean, mean, 1e-4)
	assert.InDelta(t, wantVar, variance, 1e-3*wantVar)
}

func TestExp_ExpAverageConditionalMatchesGrid(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0, 1)
	logF := tiltedExp(exp, d)
	logZ, wantMeanLog, _ := grid1(logF, -10, 10, 4001)
	logZExp, _, _ := grid1(func(x float64) float64 { return logF(x) + x }, -10, 10, 4001)

	op := factor.NewExpOp(factor.WithForceProper(false))
	msg, err := op.ExpAverageConditional(exp, d, dist.GaussianUniform())
	require.NoError(t, err)
	post, err := msg.Product(exp)
	require.NoError(t, err)
	assert.InDelta(t, wantMeanLog, post.MeanLog(), 1e-4)
	assert.InDelta(t, logZExp-logZ, math.Log(post.Mean()), 1e-4)
}

func TestExp_LogAverageFactorMatchesGrid(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0, 1)
	want, _, _ := grid1(func(x float64) float64 {
		return d.LogDensity(x) + exp.LogDensity(math.Exp(x))
	}, -10, 10, 4001)

	op := factor.NewExpOp()
	got, err := op.LogAverageFactor(exp, d, dist.GaussianUniform())
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-5)

	ratio, err := op.LogEvidenceRatio(exp, d, dist.GaussianUniform(), dist.GammaUniform())
	require.NoError(t, err)
	assert.InDelta(t, got, ratio, 1e-12, "uniform toExp contributes nothing")
}

func TestExp_PointMassClosedForms(t *testing.T) {
	rec := &recorder{}
	op := factor.NewExpOp(factor.WithLogger(slog.New(rec)))
	exp := mustGamma(t, 3, 2)

	msg, err := op.DAverageConditional(exp, dist.GaussianPointMass(0.5), dist.GaussianUniform())
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(0.5), msg.Precision(), 1e-12)
	assert.InDelta(t, 0.5*2*math.Exp(0.5)+2-2*math.Exp(0.5), msg.MeanTimesPrecision(), 1e-12)

	toExp, err := op.ExpAverageConditional(exp, dist.GaussianPointMass(0.3), dist.GaussianUniform())
	require.NoError(t, err)
	require.True(t, toExp.IsPointMass())
	assert.InDelta(t, math.Exp(0.3), toExp.Point(), 1e-15)

	laf, err := op.LogAverageFactor(exp, dist.GaussianPointMass(0.5), dist.GaussianUniform())
	require.NoError(t, err)
	assert.InDelta(t, exp.LogDensity(math.Exp(0.5)), laf, 1e-12)

	toD, err := op.DAverageConditional(dist.GammaPointMass(2), mustGaussian(t, 0, 1), dist.GaussianUniform())
	require.NoError(t, err)
	require.True(t, toD.IsPointMass())
	assert.InDelta(t, math.Ln2, toD.Point(), 1e-15)

	assert.False(t, rec.saw("quadrature"), "point masses never reach quadrature")

	_, err = op.DAverageConditional(dist.GammaPointMass(-1), mustGaussian(t, 0, 1), dist.GaussianUniform())
	assert.ErrorIs(t, err, dist.ErrAllZero)
}

func TestExp_QuadratureIsLogged(t *testing.T) {
	rec := &recorder{}
	op := factor.NewExpOp(factor.WithLogger(slog.New(rec)))
	_, err := op.DAverageConditional(mustGamma(t, 3, 2), mustGaussian(t, 0, 1), dist.GaussianUniform())
	require.NoError(t, err)
	assert.True(t, rec.saw("quadrature"))
}

func TestExp_DegenerateProposal(t *testing.T) {
	rec := &recorder{}
	op := factor.NewExpOp(factor.WithLogger(slog.New(rec)))
	exp := mustGamma(t, 3, 2)

	msg, err := op.DAverageConditional(exp, mustGaussian(t, 0, 1e-9), dist.GaussianUniform())
	require.NoError(t, err)
	assert.True(t, rec.saw("degenerate proposal, analytic fallback"))
	assert.False(t, rec.saw("quadrature"))
	assert.InDelta(t, 2.0, msg.Precision(), 1e-3)
}

func TestExp_ZeroRateAndUniform(t *testing.T) {
	op := factor.NewExpOp()
	d := mustGaussian(t, 0, 1)

	msg, err := op.DAverageConditional(mustGamma(t, 3, 0), d, dist.GaussianUniform())
	require.NoError(t, err)
	assert.Equal(t, 0.0, msg.Precision())
	assert.Equal(t, 2.0, msg.MeanTimesPrecision())

	msg, err = op.DAverageConditional(dist.GammaUniform(), d, dist.GaussianUniform())
	require.NoError(t, err)
	assert.True(t, msg.IsUniform())

	laf, err := op.LogAverageFactor(dist.GammaUniform(), d, dist.GaussianUniform())
	require.NoError(t, err)
	assert.Equal(t, 0.0, laf)
}

func TestExp_ImproperInputs(t *testing.T) {
	exp := mustGamma(t, 3, 2)

	_, err := factor.NewExpOp().DAverageConditional(mustGamma(t, 2, -1), mustGaussian(t, 0, 1), dist.GaussianUniform())
	assert.ErrorIs(t, err, dist.ErrImproperMessage)

	_, err = factor.NewExpOp().DAverageConditional(exp, dist.GaussianUniform(), dist.GaussianUniform())
	assert.ErrorIs(t, err, dist.ErrImproperMessage)

	msg, err := factor.NewExpOp(factor.WithSkipIfUniform(true)).
		DAverageConditional(exp, dist.GaussianUniform(), dist.GaussianUniform())
	require.NoError(t, err)
	assert.True(t, msg.IsUniform())
}

func TestExp_ExpAverageLogarithm(t *testing.T) {
	op := factor.NewExpOp()
	g, err := op.ExpAverageLogarithm(mustGaussian(t, 1, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 1.25, math.Log(g.Mean()), 1e-9)
	assert.InDelta(t, 1.0, g.MeanLog(), 1e-9)
	assert.Equal(t, 0.0, op.AverageLogFactor())
}

func TestExp_DAverageLogarithm(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0.2, 0.3)
	toD := mustGaussian(t, 0, 2)

	msg, err := factor.NewExpOp().DAverageLogarithm(exp, d, toD)
	require.NoError(t, err)
	be := 2 * math.Exp(0.2+0.15)
	assert.InDelta(t, be, msg.Precision(), 1e-12)
	assert.InDelta(t, 0.2*be+2-be, msg.MeanTimesPrecision(), 1e-12)
}

func TestExp_DampingReproducible(t *testing.T) {
	exp := mustGamma(t, 3, 2)
	d := mustGaussian(t, 0.2, 0.3)

	run := func() []dist.Gaussian {
		op := factor.NewExpOp(factor.WithDamper(damping.New(7, 0.5)))
		toD := mustGaussian(t, 0, 2)
		var out []dist.Gaussian
		for i := 0; i < 3; i++ {
			msg, err := op.DAverageLogarithm(exp, d, toD)
			require.NoError(t, err)
			out = append(out, msg)
			toD = msg
		}
		return out
	}
	first, second := run(), run()
	assert.Equal(t, first, second)

	undamped, err := factor.NewExpOp().DAverageLogarithm(exp, d, mustGaussian(t, 0, 2))
	require.NoError(t, err)
	assert.NotEqual(t, undamped, first[0])
}
