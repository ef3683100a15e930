// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Discrete is a normalized distribution over {0, …, n−1}.
// Values are immutable: constructors and Probs copy the backing slice.
// The zero value has dimension 0 and is not proper.
type Discrete struct {
	prob []float64
}

// NewDiscrete normalizes the given non-negative weights.
// Negative or NaN weights return ErrImproperDistribution, an all-zero
// vector ErrAllZero.
func NewDiscrete(weights ...float64) (Discrete, error) {
	if len(weights) == 0 {
		return Discrete{}, fmt.Errorf("discrete with no outcomes: %w", ErrDimensionMismatch)
	}
	p := make([]float64, len(weights))
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 || math.IsInf(w, 1) {
			return Discrete{}, fmt.Errorf("discrete weight[%d]=%g: %w", i, w, ErrImproperDistribution)
		}
		p[i] = w
	}

	return normalizeDiscrete(p)
}

// DiscreteUniform returns the uniform distribution over n outcomes.
func DiscreteUniform(n int) Discrete {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return Discrete{prob: p}
}

// DiscretePointMass returns the distribution concentrated on i out of n outcomes.
func DiscretePointMass(i, n int) Discrete {
	p := make([]float64, n)
	p[i] = 1
	return Discrete{prob: p}
}

func normalizeDiscrete(p []float64) (Discrete, error) {
	total := floats.Sum(p)
	if total == 0 {
		return Discrete{}, fmt.Errorf("discrete normalization: %w", ErrAllZero)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Discrete{}, fmt.Errorf("discrete normalization total %g: %w", total, ErrNumericDegenerate)
	}
	floats.Scale(1/total, p)

	return Discrete{prob: p}, nil
}

// Dimension returns the number of outcomes.
func (d Discrete) Dimension() int { return len(d.prob) }

// Prob returns P(i).
func (d Discrete) Prob(i int) float64 { return d.prob[i] }

// LogProb returns log P(i) (-Inf for impossible outcomes).
func (d Discrete) LogProb(i int) float64 { return math.Log(d.prob[i]) }

// Probs returns a copy of the probability vector.
func (d Discrete) Probs() []float64 {
	out := make([]float64, len(d.prob))
	copy(out, d.prob)
	return out
}

// IsPointMass reports whether exactly one outcome has non-zero probability.
func (d Discrete) IsPointMass() bool { return d.Point() >= 0 }

// Point returns the outcome of a point mass, or −1.
func (d Discrete) Point() int {
	idx := -1
	for i, p := range d.prob {
		if p > 0 {
			if idx >= 0 {
				return -1
			}
			idx = i
		}
	}
	return idx
}

// IsUniform reports whether all outcomes are equally likely.
func (d Discrete) IsUniform() bool {
	if len(d.prob) == 0 {
		return false
	}
	for _, p := range d.prob[1:] {
		if p != d.prob[0] {
			return false
		}
	}
	return true
}

func (d Discrete) IsProper() bool { return len(d.prob) > 0 }

func (d Discrete) ToUniform() Discrete { return DiscreteUniform(len(d.prob)) }

// Kind classifies the distribution. A one-outcome distribution is both
// uniform and a point mass; it reports KindPointMass.
func (d Discrete) Kind() Kind {
	switch {
	case len(d.prob) == 0:
		return KindImproper
	case d.IsPointMass():
		return KindPointMass
	case d.IsUniform():
		return KindUniform
	default:
		return KindProper
	}
}

func (d Discrete) sameDim(o Discrete) error {
	if len(d.prob) != len(o.prob) || len(d.prob) == 0 {
		return fmt.Errorf("discrete dims %d vs %d: %w", len(d.prob), len(o.prob), ErrDimensionMismatch)
	}
	return nil
}

// Product multiplies elementwise and renormalizes.
func (d Discrete) Product(o Discrete) (Discrete, error) {
	if err := d.sameDim(o); err != nil {
		return Discrete{}, err
	}
	p := make([]float64, len(d.prob))
	floats.MulTo(p, d.prob, o.prob)

	return normalizeDiscrete(p)
}

// Ratio divides elementwise and renormalizes. 0/0 is taken as 0; a positive
// numerator over a zero denominator returns ErrImproperDistribution.
// forceProper has no effect: a discrete ratio is always proper.
func (d Discrete) Ratio(o Discrete, _ bool) (Discrete, error) {
	if err := d.sameDim(o); err != nil {
		return Discrete{}, err
	}
	p := make([]float64, len(d.prob))
	for i := range p {
		switch {
		case o.prob[i] > 0:
			p[i] = d.prob[i] / o.prob[i]
		case d.prob[i] > 0:
			return Discrete{}, fmt.Errorf("discrete ratio at outcome %d: %w", i, ErrImproperDistribution)
		}
	}

	return normalizeDiscrete(p)
}

// Power raises every probability to s and renormalizes.
func (d Discrete) Power(s float64) (Discrete, error) {
	p := make([]float64, len(d.prob))
	for i, v := range d.prob {
		if v == 0 {
			if s < 0 {
				return Discrete{}, fmt.Errorf("discrete zero probability to power %g: %w", s, ErrImproperDistribution)
			}
			if s == 0 {
				p[i] = 1
			}
			continue
		}
		p[i] = math.Pow(v, s)
	}

	return normalizeDiscrete(p)
}

// Sum returns the exact mixture w1·d + w2·o (normalized).
func (d Discrete) Sum(w1 float64, o Discrete, w2 float64) (Discrete, error) {
	if err := checkWeights(w1, w2); err != nil {
		return Discrete{}, err
	}
	if err := d.sameDim(o); err != nil {
		return Discrete{}, err
	}
	p := make([]float64, len(d.prob))
	floats.AddScaledTo(p, p, w1, d.prob)
	floats.AddScaledTo(p, p, w2, o.prob)

	return normalizeDiscrete(p)
}

// LogAverageOf returns log Σᵢ d(i)·o(i).
func (d Discrete) LogAverageOf(o Discrete) (float64, error) {
	if err := d.sameDim(o); err != nil {
		return 0, err
	}

	return math.Log(floats.Dot(d.prob, o.prob)), nil
}

// String implements fmt.Stringer.
func (d Discrete) String() string { return fmt.Sprintf("Discrete%v", d.prob) }
