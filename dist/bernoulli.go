// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epmsg/mathx"
)

// Bernoulli is a distribution over {true, false} stored as log-odds.
// Point masses sit at ±Inf; the zero value is uniform (p = ½).
type Bernoulli struct {
	logOdds float64
}

// NewBernoulli builds a Bernoulli with P(true) = p.
func NewBernoulli(p float64) (Bernoulli, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Bernoulli{}, fmt.Errorf("bernoulli p=%g: %w", p, ErrImproperDistribution)
	}

	return Bernoulli{logOdds: math.Log(p) - math.Log1p(-p)}, nil
}

// BernoulliFromLogOdds builds a Bernoulli from log(p/(1−p)).
func BernoulliFromLogOdds(logOdds float64) Bernoulli { return Bernoulli{logOdds: logOdds} }

// BernoulliPointMass returns the distribution concentrated on b.
func BernoulliPointMass(b bool) Bernoulli {
	if b {
		return Bernoulli{logOdds: math.Inf(1)}
	}
	return Bernoulli{logOdds: math.Inf(-1)}
}

// LogOdds returns log(p/(1−p)).
func (b Bernoulli) LogOdds() float64 { return b.logOdds }

// ProbTrue returns P(true).
func (b Bernoulli) ProbTrue() float64 { return mathx.Logistic(b.logOdds) }

// LogProbTrue returns log P(true) without underflow.
func (b Bernoulli) LogProbTrue() float64 { return mathx.LogisticLn(b.logOdds) }

// LogProbFalse returns log P(false) without underflow.
func (b Bernoulli) LogProbFalse() float64 { return mathx.LogisticLn(-b.logOdds) }

func (b Bernoulli) IsPointMass() bool { return math.IsInf(b.logOdds, 0) }

// Point returns the value of a point mass. Only meaningful when IsPointMass.
func (b Bernoulli) Point() bool { return b.logOdds > 0 }

func (b Bernoulli) IsUniform() bool { return b.logOdds == 0 }

func (b Bernoulli) IsProper() bool { return !math.IsNaN(b.logOdds) }

func (b Bernoulli) ToUniform() Bernoulli { return Bernoulli{} }

// Kind classifies the distribution.
func (b Bernoulli) Kind() Kind {
	switch {
	case b.IsPointMass():
		return KindPointMass
	case b.IsUniform():
		return KindUniform
	case b.IsProper():
		return KindProper
	default:
		return KindImproper
	}
}

// ToDiscrete maps the Bernoulli onto a two-outcome Discrete with
// outcome 0 = true and outcome 1 = false, the case order used by gates.
func (b Bernoulli) ToDiscrete() Discrete {
	p := b.ProbTrue()
	return Discrete{prob: []float64{p, 1 - p}}
}

// Product adds log-odds; opposite point masses fail with ErrAllZero.
func (b Bernoulli) Product(o Bernoulli) (Bernoulli, error) {
	lo := b.logOdds + o.logOdds
	if math.IsNaN(lo) {
		return Bernoulli{}, fmt.Errorf("bernoulli product of opposite point masses: %w", ErrAllZero)
	}

	return Bernoulli{logOdds: lo}, nil
}

// Ratio subtracts log-odds; point-mass rules match Gaussian.Ratio.
func (b Bernoulli) Ratio(o Bernoulli, _ bool) (Bernoulli, error) {
	switch {
	case o.IsPointMass():
		if b.IsPointMass() && b.Point() == o.Point() {
			return Bernoulli{}, nil
		}
		return Bernoulli{}, fmt.Errorf("bernoulli ratio by point mass: %w", ErrImproperDistribution)
	case b.IsPointMass():
		return b, nil
	}

	return Bernoulli{logOdds: b.logOdds - o.logOdds}, nil
}

// Power scales the log-odds by s.
func (b Bernoulli) Power(s float64) (Bernoulli, error) {
	if b.IsPointMass() {
		switch {
		case s == 0:
			return Bernoulli{}, nil
		case s < 0:
			return Bernoulli{}, fmt.Errorf("bernoulli point mass to power %g: %w", s, ErrImproperDistribution)
		}
		return b, nil
	}

	return Bernoulli{logOdds: b.logOdds * s}, nil
}

// Sum returns the exact mixture w1·b + w2·o.
func (b Bernoulli) Sum(w1 float64, o Bernoulli, w2 float64) (Bernoulli, error) {
	if err := checkWeights(w1, w2); err != nil {
		return Bernoulli{}, err
	}
	p := (w1*b.ProbTrue() + w2*o.ProbTrue()) / (w1 + w2)

	return NewBernoulli(p)
}

// LogAverageOf returns log(p₁p₂ + (1−p₁)(1−p₂)).
func (b Bernoulli) LogAverageOf(o Bernoulli) (float64, error) {
	return mathx.LogSumExp(b.LogProbTrue()+o.LogProbTrue(), b.LogProbFalse()+o.LogProbFalse()), nil
}

// String implements fmt.Stringer.
func (b Bernoulli) String() string { return fmt.Sprintf("Bernoulli(%g)", b.ProbTrue()) }
