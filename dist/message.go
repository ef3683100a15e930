// SPDX-License-Identifier: MIT

package dist

// Kind is the tagged classification every algorithm switches on before doing
// arithmetic on a message. The four cases are mutually exclusive.
type Kind uint8

const (
	// KindUniform is the flat (possibly improper) message carrying no information.
	KindUniform Kind = iota

	// KindPointMass is a degenerate distribution concentrated on one value.
	KindPointMass

	// KindProper is a normalizable, non-degenerate distribution.
	KindProper

	// KindImproper is a non-uniform message whose density does not integrate.
	// Legal as a message; illegal as a posterior.
	KindImproper
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindUniform:
		return "uniform"
	case KindPointMass:
		return "point-mass"
	case KindProper:
		return "proper"
	case KindImproper:
		return "improper"
	default:
		return "unknown"
	}
}

// Message is the algebra a family must expose to be routed through the
// generic gate engine and the VMP damper.
//
// Contracts (mirrored by every implementation in this package):
//   - Product adds natural parameters; disjoint point masses fail with ErrAllZero.
//   - Ratio subtracts natural parameters; with forceProper, a negative
//     precision/rate is projected onto the zero boundary.
//   - Power scales natural parameters by s.
//   - Sum returns the moment-matched projection of w1·a + w2·b (weights are
//     relative; they need not sum to 1).
//   - LogAverageOf returns log ∫ a(x)·b(x) dx.
//   - ToUniform returns the uniform member with the receiver's shape.
type Message[T any] interface {
	Kind() Kind
	IsUniform() bool
	IsPointMass() bool
	IsProper() bool
	ToUniform() T
	Product(other T) (T, error)
	Ratio(other T, forceProper bool) (T, error)
	Power(s float64) (T, error)
	Sum(w1 float64, other T, w2 float64) (T, error)
	LogAverageOf(other T) (float64, error)
}

// MessageOptions carries the per-call attributes of an operator.
//
//   - ForceProper:   project improper ratios onto the proper boundary.
//   - SkipIfUniform: when a required incoming message is uniform, return a
//     uniform result instead of failing with ErrImproperMessage.
type MessageOptions struct {
	ForceProper   bool
	SkipIfUniform bool
}

// compile-time checks
var (
	_ Message[Gaussian]  = Gaussian{}
	_ Message[Gamma]     = Gamma{}
	_ Message[Discrete]  = Discrete{}
	_ Message[Bernoulli] = Bernoulli{}
)
