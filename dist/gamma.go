// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/epmsg/mathx"
)

// Gamma is a Gamma message over a positive variable with density
// proportional to x^(shape−1)·exp(−rate·x).
//
// Representation:
//   - proper:     shape > 0 and rate > 0
//   - uniform:    shape == 1 and rate == 0
//   - improper:   anything else finite (e.g. rate == 0 with shape ≠ 1)
//   - point mass: shape == +Inf, the point is stored in rate
//
// Natural parameters are (shape−1, −rate).
type Gamma struct {
	shape float64
	rate  float64
}

// GammaUniform returns the flat message (shape 1, rate 0).
func GammaUniform() Gamma { return Gamma{shape: 1} }

// GammaPointMass returns a point mass at x.
func GammaPointMass(x float64) Gamma {
	return Gamma{shape: math.Inf(1), rate: x}
}

// NewGamma builds a Gamma from shape and rate. Any finite pair is accepted
// (improper messages are legal); NaN or infinite inputs return
// ErrNumericDegenerate.
func NewGamma(shape, rate float64) (Gamma, error) {
	if math.IsNaN(shape) || math.IsNaN(rate) || math.IsInf(shape, 0) || math.IsInf(rate, 0) {
		return Gamma{}, fmt.Errorf("gamma(shape=%g, rate=%g): %w", shape, rate, ErrNumericDegenerate)
	}

	return Gamma{shape: shape, rate: rate}, nil
}

// GammaFromShapeAndRate is NewGamma without validation, for operator
// internals whose inputs are already checked.
func GammaFromShapeAndRate(shape, rate float64) Gamma {
	return Gamma{shape: shape, rate: rate}
}

// GammaFromMeanAndVariance matches mean and variance.
// variance == 0 gives a point mass at mean.
func GammaFromMeanAndVariance(mean, variance float64) (Gamma, error) {
	switch {
	case math.IsNaN(mean) || math.IsNaN(variance):
		return Gamma{}, fmt.Errorf("gamma(mean=%g, variance=%g): %w", mean, variance, ErrNumericDegenerate)
	case mean <= 0 || variance < 0:
		return Gamma{}, fmt.Errorf("gamma(mean=%g, variance=%g): %w", mean, variance, ErrImproperDistribution)
	case variance == 0:
		return GammaPointMass(mean), nil
	case math.IsInf(variance, 1):
		return GammaUniform(), nil
	}
	rate := mean / variance

	return Gamma{shape: mean * rate, rate: rate}, nil
}

// GammaFromMeanAndMeanLog returns the Gamma with E[x] = mean and
// E[log x] = meanLog (the KL projection onto the Gamma family).
func GammaFromMeanAndMeanLog(mean, meanLog float64) (Gamma, error) {
	if !(mean > 0) {
		return Gamma{}, fmt.Errorf("gamma mean %g: %w", mean, ErrImproperDistribution)
	}

	return GammaFromLogMeanAndMeanLog(math.Log(mean), meanLog)
}

// GammaFromLogMeanAndMeanLog is GammaFromMeanAndMeanLog with log E[x]
// given directly, which avoids overflow for large means.
//
// Jensen's inequality requires logMean ≥ meanLog; equality (or rounding
// below it) collapses to a point mass at exp(logMean).
func GammaFromLogMeanAndMeanLog(logMean, meanLog float64) (Gamma, error) {
	if math.IsNaN(logMean) || math.IsNaN(meanLog) || math.IsInf(logMean, 0) {
		return Gamma{}, fmt.Errorf("gamma(logMean=%g, meanLog=%g): %w", logMean, meanLog, ErrNumericDegenerate)
	}
	delta := logMean - meanLog
	if delta <= 0 {
		return GammaPointMass(math.Exp(logMean)), nil
	}
	shape := shapeFromLogGap(delta)

	return Gamma{shape: shape, rate: shape * math.Exp(-logMean)}, nil
}

// maxShapeIterations bounds the Newton solve for the shape parameter.
const maxShapeIterations = 100

// shapeFromLogGap solves log(a) − ψ(a) = delta for a > 0.
// Stage 1: closed-form starting point (Minka, "Estimating a Gamma distribution").
// Stage 2: Newton on a with positivity guard, at most maxShapeIterations steps.
func shapeFromLogGap(delta float64) float64 {
	a := (3 - delta + math.Sqrt((delta-3)*(delta-3)+24*delta)) / (12 * delta)
	for i := 0; i < maxShapeIterations; i++ {
		f := math.Log(a) - mathx.Digamma(a) - delta
		df := 1/a - mathx.Trigamma(a)
		if df == 0 {
			break
		}
		next := a - f/df
		if !(next > 0) {
			next = a / 2
		}
		if math.Abs(next-a) <= 1e-13*a {
			return next
		}
		a = next
	}

	return a
}

// GammaFromDerivatives returns the Gamma whose log-density has first
// derivative dlogp and second derivative ddlogp at x > 0.
//
// With forceProper the result is kept inside shape ≥ 1, rate ≥ 0: when the
// matched rate would be negative it is set to zero and the shape absorbs the
// slope; when the matched shape would drop below one the rate absorbs it.
func GammaFromDerivatives(x, dlogp, ddlogp float64, forceProper bool) (Gamma, error) {
	if !(x > 0) {
		return Gamma{}, fmt.Errorf("gamma derivatives at x=%g: %w", x, ErrImproperDistribution)
	}
	a := -x * x * ddlogp // shape − 1
	b := a/x - dlogp     // rate
	if forceProper {
		if b < 0 {
			b = 0
			a = math.Max(0, x*dlogp)
		}
		if a < 0 {
			a = 0
			b = math.Max(0, -dlogp)
		}
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return Gamma{}, fmt.Errorf("gamma derivatives (%g, %g) at %g: %w", dlogp, ddlogp, x, ErrNumericDegenerate)
	}

	return Gamma{shape: a + 1, rate: b}, nil
}

// Shape returns the shape parameter (+Inf for a point mass).
func (g Gamma) Shape() float64 { return g.shape }

// Rate returns the rate parameter (the point for a point mass).
func (g Gamma) Rate() float64 { return g.rate }

func (g Gamma) IsPointMass() bool { return math.IsInf(g.shape, 1) }

// Point returns the location of a point mass. Only meaningful when IsPointMass.
func (g Gamma) Point() float64 { return g.rate }

func (g Gamma) IsUniform() bool { return g.shape == 1 && g.rate == 0 }

func (g Gamma) IsProper() bool { return g.shape > 0 && g.rate > 0 }

func (g Gamma) ToUniform() Gamma { return GammaUniform() }

// Kind classifies the message.
func (g Gamma) Kind() Kind {
	switch {
	case g.IsPointMass():
		return KindPointMass
	case g.IsUniform():
		return KindUniform
	case g.IsProper():
		return KindProper
	default:
		return KindImproper
	}
}

// Mean returns E[x]; +Inf unless the message is proper or a point mass.
func (g Gamma) Mean() float64 {
	switch g.Kind() {
	case KindPointMass:
		return g.Point()
	case KindProper:
		return g.shape / g.rate
	}
	return math.Inf(1)
}

// Variance returns Var[x]; +Inf unless the message is proper or a point mass.
func (g Gamma) Variance() float64 {
	switch g.Kind() {
	case KindPointMass:
		return 0
	case KindProper:
		return g.shape / (g.rate * g.rate)
	}
	return math.Inf(1)
}

// MeanAndVariance returns Mean and Variance together.
func (g Gamma) MeanAndVariance() (mean, variance float64) {
	return g.Mean(), g.Variance()
}

// MeanLog returns E[log x] = ψ(shape) − log(rate).
func (g Gamma) MeanLog() float64 {
	switch g.Kind() {
	case KindPointMass:
		return math.Log(g.Point())
	case KindProper:
		return mathx.Digamma(g.shape) - math.Log(g.rate)
	}
	return math.NaN()
}

// MeanInverse returns E[1/x] = rate/(shape−1); +Inf when shape ≤ 1.
func (g Gamma) MeanInverse() float64 {
	switch g.Kind() {
	case KindPointMass:
		return 1 / g.Point()
	case KindProper:
		if g.shape <= 1 {
			return math.Inf(1)
		}
		return g.rate / (g.shape - 1)
	}
	return math.Inf(1)
}

// LogDensity evaluates the log-density at x. Proper messages are normalized,
// others return the unnormalized (shape−1)·log x − rate·x. x ≤ 0 yields -Inf.
func (g Gamma) LogDensity(x float64) float64 {
	if g.IsPointMass() {
		if x == g.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if x <= 0 {
		if x == 0 && g.IsUniform() {
			return 0
		}
		return math.Inf(-1)
	}
	if g.IsProper() {
		return distuv.Gamma{Alpha: g.shape, Beta: g.rate}.LogProb(x)
	}

	return (g.shape-1)*math.Log(x) - g.rate*x
}

// logNormalizer is log Γ(shape) − shape·log(rate) for a proper message, 0 otherwise.
func (g Gamma) logNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}

	return mathx.LogGamma(g.shape) - g.shape*math.Log(g.rate)
}

// LogNormalizer exposes log ∫ x^(shape−1)·exp(−rate·x) dx for proper messages.
func (g Gamma) LogNormalizer() float64 { return g.logNormalizer() }

// Product multiplies two messages: shape = s1+s2−1, rate = r1+r2.
// A point mass collapses onto the other operand's density at that point;
// zero density (or two different point masses) fails with ErrAllZero.
func (g Gamma) Product(o Gamma) (Gamma, error) {
	switch {
	case g.IsPointMass():
		if math.IsInf(o.LogDensity(g.Point()), -1) {
			return Gamma{}, fmt.Errorf("gamma product at point %g: %w", g.Point(), ErrAllZero)
		}
		return g, nil
	case o.IsPointMass():
		if math.IsInf(g.LogDensity(o.Point()), -1) {
			return Gamma{}, fmt.Errorf("gamma product at point %g: %w", o.Point(), ErrAllZero)
		}
		return o, nil
	}
	r := Gamma{shape: g.shape + o.shape - 1, rate: g.rate + o.rate}
	if math.IsNaN(r.shape) || math.IsNaN(r.rate) {
		return Gamma{}, fmt.Errorf("gamma product: %w", ErrNumericDegenerate)
	}

	return r, nil
}

// Ratio divides g by o: shape = s1−s2+1, rate = r1−r2.
// With forceProper a negative rate is projected to zero.
// Point-mass rules match Gaussian.Ratio.
func (g Gamma) Ratio(o Gamma, forceProper bool) (Gamma, error) {
	switch {
	case o.IsPointMass():
		if g.IsPointMass() && g.Point() == o.Point() {
			return GammaUniform(), nil
		}
		return Gamma{}, fmt.Errorf("gamma ratio by point mass %g: %w", o.Point(), ErrImproperDistribution)
	case g.IsPointMass():
		return g, nil
	}
	r := Gamma{shape: g.shape - o.shape + 1, rate: g.rate - o.rate}
	if forceProper && r.rate < 0 {
		r.rate = 0
	}
	if math.IsNaN(r.shape) || math.IsNaN(r.rate) {
		return Gamma{}, fmt.Errorf("gamma ratio: %w", ErrNumericDegenerate)
	}

	return r, nil
}

// Power raises the message to s: shape = (shape−1)·s + 1, rate = rate·s.
func (g Gamma) Power(s float64) (Gamma, error) {
	if g.IsPointMass() {
		switch {
		case s == 0:
			return GammaUniform(), nil
		case s < 0:
			return Gamma{}, fmt.Errorf("gamma point mass to power %g: %w", s, ErrImproperDistribution)
		}
		return g, nil
	}

	return Gamma{shape: (g.shape-1)*s + 1, rate: g.rate * s}, nil
}

// Sum returns the Gamma matching mean and variance of w1·g + w2·o.
func (g Gamma) Sum(w1 float64, o Gamma, w2 float64) (Gamma, error) {
	if err := checkWeights(w1, w2); err != nil {
		return Gamma{}, err
	}
	switch {
	case w1 == 0:
		return o, nil
	case w2 == 0:
		return g, nil
	case g.IsUniform() || o.IsUniform():
		return GammaUniform(), nil
	case g.IsPointMass() && o.IsPointMass() && g.Point() == o.Point():
		return g, nil
	}
	if g.Kind() == KindImproper || o.Kind() == KindImproper {
		return Gamma{}, fmt.Errorf("gamma sum of improper component: %w", ErrImproperDistribution)
	}
	m1, v1 := g.MeanAndVariance()
	m2, v2 := o.MeanAndVariance()
	p1 := w1 / (w1 + w2)
	p2 := 1 - p1
	mean := p1*m1 + p2*m2
	diff := m1 - m2

	return GammaFromMeanAndVariance(mean, p1*v1+p2*v2+p1*p2*diff*diff)
}

// LogAverageOf returns log ∫ g(x)·o(x) dx (see Gaussian.LogAverageOf).
func (g Gamma) LogAverageOf(o Gamma) (float64, error) {
	switch {
	case g.IsPointMass() && o.IsPointMass():
		if g.Point() == o.Point() {
			return 0, nil
		}
		return math.Inf(-1), nil
	case g.IsPointMass():
		return o.LogDensity(g.Point()), nil
	case o.IsPointMass():
		return g.LogDensity(o.Point()), nil
	case g.IsUniform() || o.IsUniform():
		return 0, nil
	}
	prod, err := g.Product(o)
	if err != nil {
		return 0, err
	}
	if !prod.IsProper() {
		return 0, fmt.Errorf("gamma average: product (%g, %g): %w", prod.shape, prod.rate, ErrImproperDistribution)
	}

	return prod.logNormalizer() - g.logNormalizer() - o.logNormalizer(), nil
}

// String implements fmt.Stringer.
func (g Gamma) String() string {
	switch g.Kind() {
	case KindPointMass:
		return fmt.Sprintf("Gamma.PointMass(%g)", g.Point())
	case KindUniform:
		return "Gamma.Uniform"
	default:
		return fmt.Sprintf("Gamma(%g, %g)", g.shape, g.rate)
	}
}
