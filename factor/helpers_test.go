package factor_test

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/mathx"
)

func mustGamma(t *testing.T, shape, rate float64) dist.Gamma {
	t.Helper()
	g, err := dist.NewGamma(shape, rate)
	require.NoError(t, err)
	return g
}

func mustGaussian(t *testing.T, mean, variance float64) dist.Gaussian {
	t.Helper()
	g, err := dist.NewGaussian(mean, variance)
	require.NoError(t, err)
	return g
}

// recorder is a slog.Handler that keeps record messages.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *recorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, rec.Message)
	return nil
}

func (r *recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *recorder) WithGroup(string) slog.Handler      { return r }

func (r *recorder) saw(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

// grid1 integrates exp(logF) over [lo, hi] by the trapezoid rule and returns
// log Z, E[x] and Var[x] under the normalized density.
func grid1(logF func(float64) float64, lo, hi float64, n int) (logZ, mean, variance float64) {
	h := (hi - lo) / float64(n-1)
	lf := make([]float64, n)
	for i := range lf {
		lf[i] = logF(lo + float64(i)*h)
		if i == 0 || i == n-1 {
			lf[i] -= math.Ln2
		}
	}
	shift := mathx.LogSumExpSlice(lf)
	var s0, s1, s2 float64
	for i, l := range lf {
		x := lo + float64(i)*h
		w := math.Exp(l - shift)
		s0 += w
		s1 += w * x
		s2 += w * x * x
	}
	mean = s1 / s0
	variance = s2/s0 - mean*mean
	logZ = shift + math.Log(s0) + math.Log(h)

	return logZ, mean, variance
}

// grid2 integrates exp(logF(u, z)) over a square and returns log Z together
// with E[g(u, z)] for each g.
func grid2(logF func(u, z float64) float64, lo, hi float64, n int, gs ...func(u, z float64) float64) (logZ float64, means []float64) {
	h := (hi - lo) / float64(n-1)
	lf := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lf = append(lf, logF(lo+float64(i)*h, lo+float64(j)*h))
		}
	}
	shift := mathx.LogSumExpSlice(lf)
	means = make([]float64, len(gs))
	var s0 float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			u, z := lo+float64(i)*h, lo+float64(j)*h
			w := math.Exp(lf[i*n+j] - shift)
			s0 += w
			for k, g := range gs {
				means[k] += w * g(u, z)
			}
		}
	}
	for k := range means {
		means[k] /= s0
	}
	logZ = shift + math.Log(s0) + 2*math.Log(h)

	return logZ, means
}
