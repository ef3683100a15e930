// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const log2Pi = 1.8378770664093453 // log(2π)

// Gaussian is a univariate Gaussian message in natural form.
//
// Representation:
//   - proper:     precision > 0, meanTimesPrecision = mean·precision
//   - uniform:    precision == 0 and meanTimesPrecision == 0
//   - improper:   precision < 0, or precision == 0 with a non-zero slope
//   - point mass: precision == +Inf, the point is stored in meanTimesPrecision
//
// The zero value is the uniform message.
type Gaussian struct {
	meanTimesPrecision float64
	precision          float64
}

// GaussianUniform returns the flat message.
func GaussianUniform() Gaussian { return Gaussian{} }

// GaussianPointMass returns a point mass at x.
func GaussianPointMass(x float64) Gaussian {
	return Gaussian{meanTimesPrecision: x, precision: math.Inf(1)}
}

// NewGaussian builds a Gaussian from mean and variance.
// variance == 0 gives a point mass, variance == +Inf the uniform message.
// Returns ErrImproperDistribution for negative variance and
// ErrNumericDegenerate for NaN inputs or an infinite mean.
func NewGaussian(mean, variance float64) (Gaussian, error) {
	if math.IsNaN(mean) || math.IsNaN(variance) || math.IsInf(mean, 0) {
		return Gaussian{}, fmt.Errorf("gaussian(mean=%g, variance=%g): %w", mean, variance, ErrNumericDegenerate)
	}
	switch {
	case variance < 0:
		return Gaussian{}, fmt.Errorf("gaussian variance %g: %w", variance, ErrImproperDistribution)
	case variance == 0:
		return GaussianPointMass(mean), nil
	case math.IsInf(variance, 1):
		return GaussianUniform(), nil
	}
	prec := 1 / variance

	return Gaussian{meanTimesPrecision: mean * prec, precision: prec}, nil
}

// GaussianFromMeanAndVariance is NewGaussian under the name the other
// families use for their moment constructors.
func GaussianFromMeanAndVariance(mean, variance float64) (Gaussian, error) {
	return NewGaussian(mean, variance)
}

// GaussianFromNatural builds a Gaussian from (mean·precision, precision).
// No validation: improper natural parameters are legal messages.
func GaussianFromNatural(meanTimesPrecision, precision float64) Gaussian {
	return Gaussian{meanTimesPrecision: meanTimesPrecision, precision: precision}
}

// GaussianFromDerivatives returns the Gaussian whose log-density has first
// derivative dlogp and second derivative ddlogp at x.
// With forceProper a positive curvature is clamped to zero precision, keeping
// the slope dlogp.
func GaussianFromDerivatives(x, dlogp, ddlogp float64, forceProper bool) Gaussian {
	prec := -ddlogp
	if forceProper && prec < 0 {
		prec = 0
	}

	return Gaussian{meanTimesPrecision: prec*x + dlogp, precision: prec}
}

// MeanTimesPrecision returns the first natural parameter.
func (g Gaussian) MeanTimesPrecision() float64 { return g.meanTimesPrecision }

// Precision returns the second natural parameter (+Inf for a point mass).
func (g Gaussian) Precision() float64 { return g.precision }

func (g Gaussian) IsPointMass() bool { return math.IsInf(g.precision, 1) }

// Point returns the location of a point mass. Only meaningful when IsPointMass.
func (g Gaussian) Point() float64 { return g.meanTimesPrecision }

func (g Gaussian) IsUniform() bool { return g.precision == 0 && g.meanTimesPrecision == 0 }

func (g Gaussian) IsProper() bool { return g.precision > 0 }

func (g Gaussian) ToUniform() Gaussian { return Gaussian{} }

// Kind classifies the message.
func (g Gaussian) Kind() Kind {
	switch {
	case g.IsPointMass():
		return KindPointMass
	case g.IsUniform():
		return KindUniform
	case g.precision > 0:
		return KindProper
	default:
		return KindImproper
	}
}

// MeanAndVariance returns (point, 0) for a point mass, (0, +Inf) for the
// uniform message and the natural-parameter ratios otherwise (negative
// variance for improper messages; callers check IsProper first).
func (g Gaussian) MeanAndVariance() (mean, variance float64) {
	switch g.Kind() {
	case KindPointMass:
		return g.Point(), 0
	case KindUniform:
		return 0, math.Inf(1)
	}
	if g.precision == 0 {
		return math.Inf(int(sign(g.meanTimesPrecision))), math.Inf(1)
	}

	return g.meanTimesPrecision / g.precision, 1 / g.precision
}

// Mean returns the mean (see MeanAndVariance).
func (g Gaussian) Mean() float64 {
	m, _ := g.MeanAndVariance()
	return m
}

// Variance returns the variance (see MeanAndVariance).
func (g Gaussian) Variance() float64 {
	_, v := g.MeanAndVariance()
	return v
}

// LogDensity evaluates the log-density at x. Proper messages are normalized;
// uniform and improper messages return the unnormalized natural form
// meanTimesPrecision·x − ½·precision·x². A point mass returns 0 at its point
// and -Inf elsewhere.
func (g Gaussian) LogDensity(x float64) float64 {
	switch g.Kind() {
	case KindPointMass:
		if x == g.Point() {
			return 0
		}
		return math.Inf(-1)
	case KindProper:
		m, v := g.MeanAndVariance()
		return distuv.Normal{Mu: m, Sigma: math.Sqrt(v)}.LogProb(x)
	default:
		return g.meanTimesPrecision*x - 0.5*g.precision*x*x
	}
}

// logNormalizer is log ∫ exp(mtp·x − ½·prec·x²) dx for a proper message and 0
// for anything else (improper messages count as unnormalized).
func (g Gaussian) logNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	mean := g.meanTimesPrecision / g.precision

	return 0.5 * (log2Pi - math.Log(g.precision) + g.meanTimesPrecision*mean)
}

// Product multiplies two messages (natural parameters add).
// A point mass absorbs the other operand; two different point masses fail
// with ErrAllZero.
func (g Gaussian) Product(o Gaussian) (Gaussian, error) {
	switch {
	case g.IsPointMass():
		if o.IsPointMass() && o.Point() != g.Point() {
			return Gaussian{}, fmt.Errorf("gaussian product of point masses %g and %g: %w", g.Point(), o.Point(), ErrAllZero)
		}
		return g, nil
	case o.IsPointMass():
		return o, nil
	}
	r := Gaussian{
		meanTimesPrecision: g.meanTimesPrecision + o.meanTimesPrecision,
		precision:          g.precision + o.precision,
	}
	if math.IsNaN(r.meanTimesPrecision) || math.IsNaN(r.precision) {
		return Gaussian{}, fmt.Errorf("gaussian product: %w", ErrNumericDegenerate)
	}

	return r, nil
}

// Ratio divides g by o (natural parameters subtract).
//
// Point masses: a point numerator is returned unchanged; a point denominator
// is only legal against the identical point (result: uniform), otherwise
// ErrImproperDistribution.
//
// With forceProper a negative resulting precision is projected to zero; the
// slope term is kept, so the result times any proper message stays proper.
func (g Gaussian) Ratio(o Gaussian, forceProper bool) (Gaussian, error) {
	switch {
	case o.IsPointMass():
		if g.IsPointMass() && g.Point() == o.Point() {
			return Gaussian{}, nil
		}
		return Gaussian{}, fmt.Errorf("gaussian ratio by point mass %g: %w", o.Point(), ErrImproperDistribution)
	case g.IsPointMass():
		return g, nil
	}
	r := Gaussian{
		meanTimesPrecision: g.meanTimesPrecision - o.meanTimesPrecision,
		precision:          g.precision - o.precision,
	}
	if forceProper && r.precision < 0 {
		r.precision = 0
	}
	if math.IsNaN(r.meanTimesPrecision) || math.IsNaN(r.precision) {
		return Gaussian{}, fmt.Errorf("gaussian ratio: %w", ErrNumericDegenerate)
	}

	return r, nil
}

// Power raises the message to the real power s.
func (g Gaussian) Power(s float64) (Gaussian, error) {
	if g.IsPointMass() {
		switch {
		case s == 0:
			return Gaussian{}, nil
		case s < 0:
			return Gaussian{}, fmt.Errorf("gaussian point mass to power %g: %w", s, ErrImproperDistribution)
		}
		return g, nil
	}

	return Gaussian{meanTimesPrecision: s * g.meanTimesPrecision, precision: s * g.precision}, nil
}

// Sum returns the Gaussian matching the first two moments of the mixture
// w1·g + w2·o. A uniform component with positive weight makes the result
// uniform.
func (g Gaussian) Sum(w1 float64, o Gaussian, w2 float64) (Gaussian, error) {
	if err := checkWeights(w1, w2); err != nil {
		return Gaussian{}, err
	}
	switch {
	case w1 == 0:
		return o, nil
	case w2 == 0:
		return g, nil
	case g.IsUniform() || o.IsUniform():
		return Gaussian{}, nil
	case g.IsPointMass() && o.IsPointMass() && g.Point() == o.Point():
		return g, nil
	}
	if g.Kind() == KindImproper || o.Kind() == KindImproper {
		return Gaussian{}, fmt.Errorf("gaussian sum of improper component: %w", ErrImproperDistribution)
	}
	m1, v1 := g.MeanAndVariance()
	m2, v2 := o.MeanAndVariance()
	p1 := w1 / (w1 + w2)
	p2 := 1 - p1
	mean := p1*m1 + p2*m2
	diff := m1 - m2
	variance := p1*v1 + p2*v2 + p1*p2*diff*diff

	return NewGaussian(mean, variance)
}

// LogAverageOf returns log ∫ g(x)·o(x) dx. Improper or uniform operands are
// treated as unnormalized; their product must be proper.
func (g Gaussian) LogAverageOf(o Gaussian) (float64, error) {
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
		return 0, fmt.Errorf("gaussian average: product precision %g: %w", prod.precision, ErrImproperDistribution)
	}

	return prod.logNormalizer() - g.logNormalizer() - o.logNormalizer(), nil
}

// String implements fmt.Stringer.
func (g Gaussian) String() string {
	switch g.Kind() {
	case KindPointMass:
		return fmt.Sprintf("Gaussian.PointMass(%g)", g.Point())
	case KindUniform:
		return "Gaussian.Uniform"
	case KindProper:
		m, v := g.MeanAndVariance()
		return fmt.Sprintf("Gaussian(%g, %g)", m, v)
	default:
		return fmt.Sprintf("Gaussian.Natural(%g, %g)", g.meanTimesPrecision, g.precision)
	}
}

func checkWeights(w1, w2 float64) error {
	if math.IsNaN(w1) || math.IsNaN(w2) {
		return fmt.Errorf("mixture weights (%g, %g): %w", w1, w2, ErrNumericDegenerate)
	}
	if w1 < 0 || w2 < 0 {
		return fmt.Errorf("mixture weights (%g, %g): %w", w1, w2, ErrImproperDistribution)
	}
	if w1 == 0 && w2 == 0 {
		return fmt.Errorf("mixture weights: %w", ErrAllZero)
	}

	return nil
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
