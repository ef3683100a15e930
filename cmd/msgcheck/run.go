// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/factor"
	"github.com/katalvlaran/epmsg/gate"
	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/state"
)

// DefaultSweeps is the number of buffer sweeps of a gamma step that does
// not set one.
const DefaultSweeps = 20

// Report is the YAML document msgcheck writes.
type Report struct {
	Scenario string       `yaml:"scenario"`
	Steps    []StepResult `yaml:"steps"`
}

// StepResult holds the outgoing messages of one step, printed with their
// String form, and the evidence terms.
type StepResult struct {
	Name      string             `yaml:"name"`
	Kind      string             `yaml:"kind"`
	Messages  map[string]string  `yaml:"messages,omitempty"`
	Evidence  map[string]float64 `yaml:"evidence,omitempty"`
	Sweeps    int                `yaml:"sweeps,omitempty"`
	Instances []StepResult       `yaml:"instances,omitempty"`
}

type runner struct {
	logger *slog.Logger
	opts   OptionsSpec
}

// runScenario executes every step in order and writes the report to w.
// The first failing step aborts the run.
func runScenario(sc Scenario, logger *slog.Logger, w io.Writer) error {
	r := runner{logger: logger, opts: sc.Options}
	rep := Report{Scenario: sc.Name, Steps: make([]StepResult, 0, len(sc.Steps))}
	for _, st := range sc.Steps {
		var (
			res StepResult
			err error
		)
		switch {
		case st.Exp != nil:
			res, err = r.exp(*st.Exp)
		case st.Gate != nil:
			res, err = r.gate(*st.Gate)
		case st.Gamma != nil:
			res, err = r.gamma(*st.Gamma)
		default:
			err = errStepKind
		}
		if err != nil {
			return fmt.Errorf("step %s: %w", st.Name, err)
		}
		res.Name = st.Name
		logger.Info("step done", slog.String("step", st.Name), slog.String("kind", res.Kind))
		rep.Steps = append(rep.Steps, res)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("msgcheck: encode report: %w", err)
	}
	return enc.Close()
}

func (r runner) exp(st ExpStep) (StepResult, error) {
	op := factor.NewExpOp(r.opts.factorOptions(factor.WithLogger(r.logger))...)
	exp, err := st.Exp.gamma()
	if err != nil {
		return StepResult{}, fmt.Errorf("exp: %w", err)
	}
	d, err := st.D.gaussian()
	if err != nil {
		return StepResult{}, fmt.Errorf("d: %w", err)
	}

	iters := st.Iterations
	if iters == 0 {
		iters = 1
	}
	toD := dist.GaussianUniform()
	for i := 0; i < iters; i++ {
		if toD, err = op.DAverageConditional(exp, d, toD); err != nil {
			return StepResult{}, fmt.Errorf("iteration %d: %w", i, err)
		}
	}
	toExp, err := op.ExpAverageConditional(exp, d, toD)
	if err != nil {
		return StepResult{}, err
	}
	laf, err := op.LogAverageFactor(exp, d, toD)
	if err != nil {
		return StepResult{}, err
	}
	post, err := d.Product(toD)
	if err != nil {
		return StepResult{}, err
	}
	vmp, err := op.ExpAverageLogarithm(d)
	if err != nil {
		return StepResult{}, err
	}

	return StepResult{
		Kind: "exp",
		Messages: map[string]string{
			"to_d":        toD.String(),
			"to_exp":      toExp.String(),
			"posterior_d": post.String(),
			"vmp_to_exp":  vmp.String(),
		},
		Evidence: map[string]float64{"log_average_factor": laf},
	}, nil
}

func (r runner) gate(st GateStep) (StepResult, error) {
	opts := []gate.Option{gate.WithLogger(r.logger)}
	if r.opts.ForceProper != nil {
		opts = append(opts, gate.WithForceProper(*r.opts.ForceProper))
	}
	g := gate.New[dist.Gaussian](opts...)

	selector, err := dist.NewDiscrete(st.Probs...)
	if err != nil {
		return StepResult{}, fmt.Errorf("selector: %w", err)
	}
	enter := make([]dist.Gaussian, len(st.Candidates))
	for i, c := range st.Candidates {
		if enter[i], err = c.gaussian(); err != nil {
			return StepResult{}, fmt.Errorf("candidate %d: %w", i, err)
		}
	}
	value := dist.GaussianUniform()
	if st.Value != nil {
		if value, err = st.Value.gaussian(); err != nil {
			return StepResult{}, fmt.Errorf("value: %w", err)
		}
	}

	res := StepResult{Kind: "gate", Messages: map[string]string{}}
	var ep, vmp dist.Gaussian
	if st.Indices == nil {
		if ep, err = g.ValueAverageConditional(enter, selector, value); err != nil {
			return StepResult{}, err
		}
		if vmp, err = g.ValueAverageLogarithm(enter, selector); err != nil {
			return StepResult{}, err
		}
		laf, err := g.ExitLogAverageFactor(enter, selector, value)
		if err != nil {
			return StepResult{}, err
		}
		res.Evidence = map[string]float64{"log_average_factor": laf}
	} else {
		res.Kind = "gate_partial"
		if ep, err = g.ValuePartialAverageConditional(enter, selector, value, st.Indices); err != nil {
			return StepResult{}, err
		}
		if vmp, err = g.ValuePartialAverageLogarithm(enter, selector, st.Indices); err != nil {
			return StepResult{}, err
		}
	}
	res.Messages["to_value"] = ep.String()
	res.Messages["vmp_to_value"] = vmp.String()

	return res, nil
}

func (r runner) gamma(st GammaStep) (StepResult, error) {
	opts := r.opts.factorOptions(factor.WithLogger(r.logger))
	var f gammaFactor
	switch st.Factor {
	case "product":
		f = productFactor{factor.NewGammaProductOp(opts...)}
	case "ratio":
		f = ratioFactor{factor.NewGammaRatioOp(opts...)}
	default:
		return StepResult{}, fmt.Errorf("factor %q: %w", st.Factor, dist.ErrNotSupported)
	}
	sweeps := st.Sweeps
	if sweeps == 0 {
		sweeps = DefaultSweeps
	}

	// Stage 1: one buffer per factor instance.
	type instance struct {
		handle  uuid.UUID
		y, a, b dist.Gamma
	}
	table := state.NewTable[*laplace.Buffer]()
	insts := make([]instance, len(st.Instances))
	for i, in := range st.Instances {
		y, a, b, err := in.inputs()
		if err != nil {
			return StepResult{}, fmt.Errorf("instance %d: %w", i, err)
		}
		h, err := table.Register(f.InitBuffer())
		if err != nil {
			return StepResult{}, err
		}
		r.logger.Debug("factor instance registered", slog.Int("instance", i), slog.String("handle", h.String()))
		insts[i] = instance{handle: h, y: y, a: a, b: b}
	}
	defer func() {
		for _, h := range table.Handles() {
			_ = table.Delete(h)
		}
	}()

	// Stage 2: sweeps over every instance.
	for s := 0; s < sweeps; s++ {
		for i, in := range insts {
			buf, err := table.Get(in.handle)
			if err != nil {
				return StepResult{}, err
			}
			if err := f.UpdateBuffer(buf, in.y, in.a, in.b); err != nil {
				return StepResult{}, fmt.Errorf("sweep %d instance %d: %w", s, i, err)
			}
			if err := table.Put(in.handle, buf); err != nil {
				return StepResult{}, err
			}
		}
	}

	// Stage 3: outgoing messages at the converged operating points.
	res := StepResult{Kind: "gamma_" + st.Factor, Instances: make([]StepResult, len(insts))}
	for i, in := range insts {
		buf, err := table.Get(in.handle)
		if err != nil {
			return StepResult{}, err
		}
		toY, err := f.YAverageConditional(in.y, in.a, in.b, buf)
		if err != nil {
			return StepResult{}, fmt.Errorf("instance %d: %w", i, err)
		}
		toA, err := f.AAverageConditional(in.y, in.a, in.b, buf)
		if err != nil {
			return StepResult{}, fmt.Errorf("instance %d: %w", i, err)
		}
		toB, err := f.BAverageConditional(in.y, in.a, in.b, buf)
		if err != nil {
			return StepResult{}, fmt.Errorf("instance %d: %w", i, err)
		}
		laf, err := f.LogAverageFactor(in.y, in.a, in.b, buf)
		if err != nil {
			return StepResult{}, fmt.Errorf("instance %d: %w", i, err)
		}
		res.Instances[i] = StepResult{
			Name: fmt.Sprintf("instance-%d", i),
			Kind: res.Kind,
			Messages: map[string]string{
				"to_y": toY.String(),
				"to_a": toA.String(),
				"to_b": toB.String(),
			},
			Evidence: map[string]float64{"log_average_factor": laf},
			Sweeps:   buf.Sweeps,
		}
	}
	return res, nil
}
