package mathx_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/epmsg/mathx"
)

func TestLogSumExp(t *testing.T) {
	negInf := math.Inf(-1)
	for _, tc := range []struct {
		name string
		a, b float64
		want float64
	}{
		{"equal", 0, 0, math.Ln2},
		{"ordered", math.Log(3), math.Log(5), math.Log(8)},
		{"left -Inf", negInf, 1.5, 1.5},
		{"right -Inf", 1.5, negInf, 1.5},
		{"both -Inf", negInf, negInf, negInf},
		{"large gap", 0, -100, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, mathx.LogSumExp(tc.a, tc.b), 1e-12)
		})
	}
}

func TestLogSumExpSlice(t *testing.T) {
	assert.True(t, math.IsInf(mathx.LogSumExpSlice(nil), -1), "empty slice is log(0)")
	assert.True(t, math.IsInf(mathx.LogSumExpSlice([]float64{math.Inf(-1), math.Inf(-1)}), -1))
	assert.InDelta(t, math.Log(6), mathx.LogSumExpSlice([]float64{0, math.Log(2), math.Log(3)}), 1e-12)
	// no overflow for large entries
	assert.InDelta(t, 1000+math.Ln2, mathx.LogSumExpSlice([]float64{1000, 1000}), 1e-9)
}

func TestLog1MinusExp(t *testing.T) {
	for _, x := range []float64{-1e-12, -1e-3, -0.5, -math.Ln2, -1, -10, -50} {
		want := math.Log(1 - math.Exp(x))
		if x > -1e-6 {
			want = math.Log(-x) // 1-e^x ≈ -x
		}
		assert.InDelta(t, want, mathx.Log1MinusExp(x), 1e-6*math.Max(1, math.Abs(want)), "x=%g", x)
	}
	assert.True(t, math.IsInf(mathx.Log1MinusExp(0), -1))
	assert.True(t, math.IsNaN(mathx.Log1MinusExp(0.1)))
	assert.Equal(t, 0.0, mathx.Log1MinusExp(math.Inf(-1)))
}

func TestLogDifferenceOfExp(t *testing.T) {
	assert.InDelta(t, math.Log(2), mathx.LogDifferenceOfExp(math.Log(5), math.Log(3)), 1e-12)
	assert.True(t, math.IsInf(mathx.LogDifferenceOfExp(1, 1), -1))
	assert.Equal(t, 2.0, mathx.LogDifferenceOfExp(2, math.Inf(-1)))
}

func TestLogistic(t *testing.T) {
	assert.InDelta(t, 0.5, mathx.Logistic(0), 1e-15)
	assert.InDelta(t, 1/(1+math.Exp(-3)), mathx.Logistic(3), 1e-15)
	assert.InDelta(t, 1/(1+math.Exp(4)), mathx.Logistic(-4), 1e-15)
	assert.InDelta(t, -800.0, mathx.LogisticLn(-800), 1e-9)
	assert.InDelta(t, math.Log(mathx.Logistic(2)), mathx.LogisticLn(2), 1e-14)
}
