package mathx_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/epmsg/mathx"
)

// eulerGamma is the Euler–Mascheroni constant γ.
const eulerGamma = 0.57721566490153286

func TestDigamma_KnownValues(t *testing.T) {
	assert.InDelta(t, -eulerGamma, mathx.Digamma(1), 1e-10)
	assert.InDelta(t, 1-eulerGamma, mathx.Digamma(2), 1e-10)
	// recurrence ψ(x+1) = ψ(x) + 1/x
	assert.InDelta(t, mathx.Digamma(3.7)+1/3.7, mathx.Digamma(4.7), 1e-10)
}

func TestTrigamma_KnownValues(t *testing.T) {
	assert.InDelta(t, math.Pi*math.Pi/6, mathx.Trigamma(1), 1e-10)
	assert.InDelta(t, math.Pi*math.Pi/6-1, mathx.Trigamma(2), 1e-10)
	// recurrence ψ'(x+1) = ψ'(x) − 1/x²
	assert.InDelta(t, mathx.Trigamma(2.5)-1/(2.5*2.5), mathx.Trigamma(3.5), 1e-10)
	assert.True(t, math.IsNaN(mathx.Trigamma(0)))
}

func TestTetragamma_MatchesFiniteDifference(t *testing.T) {
	const h = 1e-5
	for _, x := range []float64{0.5, 1, 3, 10} {
		fd := (mathx.Trigamma(x+h) - mathx.Trigamma(x-h)) / (2 * h)
		assert.InDelta(t, fd, mathx.Tetragamma(x), 1e-5*math.Max(1, math.Abs(fd)), "x=%g", x)
	}
	assert.True(t, math.IsNaN(mathx.Tetragamma(-1)))
}

func TestLogGamma(t *testing.T) {
	assert.InDelta(t, math.Log(24), mathx.LogGamma(5), 1e-12)
	assert.InDelta(t, 0.5*math.Log(math.Pi), mathx.LogGamma(0.5), 1e-12)
}
