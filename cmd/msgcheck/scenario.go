// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/epmsg/damping"
	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/factor"
	"github.com/katalvlaran/epmsg/laplace"
)

var (
	// errStepKind is returned when a step does not name exactly one of
	// exp, gate or gamma.
	errStepKind = errors.New("msgcheck: step must set exactly one of exp, gate, gamma")

	// errCandidates is returned when gate probabilities, candidates and
	// indices disagree in length.
	errCandidates = errors.New("msgcheck: gate candidates do not match selector")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Scenario is one msgcheck input document.
type Scenario struct {
	Name    string      `yaml:"name" validate:"required"`
	Options OptionsSpec `yaml:"options"`
	Steps   []Step      `yaml:"steps" validate:"required,min=1,dive"`
}

// OptionsSpec maps onto factor.Option / gate.Option values.
type OptionsSpec struct {
	ForceProper     *bool   `yaml:"force_proper"`
	QuadratureNodes int     `yaml:"quadrature_nodes" validate:"omitempty,min=1,max=512"`
	AdaptiveRelTol  float64 `yaml:"adaptive_rel_tol" validate:"gte=0,lt=1"`
	NewtonSteps     int     `yaml:"newton_steps" validate:"omitempty,min=1,max=100"`
	Seed            int64   `yaml:"seed"`
	Damping         float64 `yaml:"damping" validate:"gte=0,lt=1"`
}

// GaussianSpec is a Gaussian given by moments.
type GaussianSpec struct {
	Mean     float64 `yaml:"mean"`
	Variance float64 `yaml:"variance" validate:"gt=0"`
}

// GammaSpec is a Gamma given by shape and rate.
type GammaSpec struct {
	Shape float64 `yaml:"shape" validate:"gt=0"`
	Rate  float64 `yaml:"rate" validate:"gte=0"`
}

// Step is one operator evaluation.
type Step struct {
	Name  string     `yaml:"name" validate:"required"`
	Exp   *ExpStep   `yaml:"exp" validate:"omitempty"`
	Gate  *GateStep  `yaml:"gate" validate:"omitempty"`
	Gamma *GammaStep `yaml:"gamma" validate:"omitempty"`
}

// ExpStep runs the exp factor exp = e^d for a number of EP iterations.
type ExpStep struct {
	Exp        GammaSpec    `yaml:"exp"`
	D          GaussianSpec `yaml:"d"`
	Iterations int          `yaml:"iterations" validate:"omitempty,min=1,max=1000"`
}

// GateStep combines Gaussian candidates under a discrete selector.
// Indices, when set, makes the gate partial.
type GateStep struct {
	Probs      []float64      `yaml:"probs" validate:"required,min=1,dive,gte=0"`
	Candidates []GaussianSpec `yaml:"candidates" validate:"required,min=1,dive"`
	Value      *GaussianSpec  `yaml:"value" validate:"omitempty"`
	Indices    []int          `yaml:"indices" validate:"omitempty,dive,gte=0"`
}

// GammaStep sweeps a set of product or ratio factor instances.
type GammaStep struct {
	Factor    string          `yaml:"factor" validate:"required,oneof=product ratio"`
	Sweeps    int             `yaml:"sweeps" validate:"omitempty,min=1,max=10000"`
	Instances []GammaInstance `yaml:"instances" validate:"required,min=1,dive"`
}

// GammaInstance is one factor occurrence. Observed fixes y to a point.
type GammaInstance struct {
	Y        *GammaSpec `yaml:"y" validate:"required_without=Observed"`
	A        GammaSpec  `yaml:"a"`
	B        GammaSpec  `yaml:"b"`
	Observed *float64   `yaml:"observed" validate:"omitempty,gt=0"`
}

// loadScenario reads, decodes and validates a scenario file.
func loadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("msgcheck: open scenario: %w", err)
	}
	defer f.Close()

	return decodeScenario(f)
}

func decodeScenario(r io.Reader) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("msgcheck: decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (sc Scenario) Validate() error {
	if err := validate.Struct(sc); err != nil {
		return fmt.Errorf("msgcheck: scenario %q: %w", sc.Name, err)
	}
	for i, st := range sc.Steps {
		set := 0
		for _, ok := range []bool{st.Exp != nil, st.Gate != nil, st.Gamma != nil} {
			if ok {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("step %d (%s): %w", i, st.Name, errStepKind)
		}
		if g := st.Gate; g != nil {
			want := len(g.Probs)
			if g.Indices != nil {
				want = len(g.Indices)
				for _, k := range g.Indices {
					if k >= len(g.Probs) {
						return fmt.Errorf("step %d (%s): index %d: %w", i, st.Name, k, errCandidates)
					}
				}
			}
			if len(g.Candidates) != want {
				return fmt.Errorf("step %d (%s): %d candidates, want %d: %w", i, st.Name, len(g.Candidates), want, errCandidates)
			}
		}
	}
	return nil
}

// factorOptions resolves the scenario options for the factor operators.
func (o OptionsSpec) factorOptions(extra ...factor.Option) []factor.Option {
	var opts []factor.Option
	if o.ForceProper != nil {
		opts = append(opts, factor.WithForceProper(*o.ForceProper))
	}
	if o.QuadratureNodes > 0 {
		opts = append(opts, factor.WithQuadratureNodes(o.QuadratureNodes))
	}
	if o.AdaptiveRelTol > 0 {
		opts = append(opts, factor.WithAdaptiveQuadrature(o.AdaptiveRelTol))
	}
	if o.NewtonSteps > 0 {
		opts = append(opts, factor.WithNewtonSteps(o.NewtonSteps))
	}
	if o.Damping > 0 {
		opts = append(opts, factor.WithDamper(damping.New(o.Seed, o.Damping)))
	}
	return append(opts, extra...)
}

func (s GaussianSpec) gaussian() (dist.Gaussian, error) {
	return dist.NewGaussian(s.Mean, s.Variance)
}

func (s GammaSpec) gamma() (dist.Gamma, error) {
	return dist.NewGamma(s.Shape, s.Rate)
}

// inputs resolves an instance to its three incoming messages.
func (in GammaInstance) inputs() (y, a, b dist.Gamma, err error) {
	switch {
	case in.Observed != nil:
		y = dist.GammaPointMass(*in.Observed)
	case in.Y == nil:
		return y, a, b, fmt.Errorf("y: %w", dist.ErrImproperMessage)
	default:
		if y, err = in.Y.gamma(); err != nil {
			return y, a, b, fmt.Errorf("y: %w", err)
		}
	}
	if a, err = in.A.gamma(); err != nil {
		return y, a, b, fmt.Errorf("a: %w", err)
	}
	if b, err = in.B.gamma(); err != nil {
		return y, a, b, fmt.Errorf("b: %w", err)
	}
	return y, a, b, nil
}

// gammaFactor is the operator surface shared by the product and ratio
// factors.
type gammaFactor interface {
	InitBuffer() *laplace.Buffer
	UpdateBuffer(buf *laplace.Buffer, y, a, b dist.Gamma) error
	YAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error)
	AAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error)
	BAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error)
	LogAverageFactor(y, a, b dist.Gamma, buf *laplace.Buffer) (float64, error)
}

// productFactor and ratioFactor adapt the output message to a common name.
type productFactor struct{ *factor.GammaProductOp }

func (f productFactor) YAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	return f.ProductAverageConditional(y, a, b, buf)
}

type ratioFactor struct{ *factor.GammaRatioOp }

func (f ratioFactor) YAverageConditional(y, a, b dist.Gamma, buf *laplace.Buffer) (dist.Gamma, error) {
	return f.RatioAverageConditional(y, a, b, buf)
}
