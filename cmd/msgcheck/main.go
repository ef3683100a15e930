// SPDX-License-Identifier: MIT

// Command msgcheck evaluates message operators on small scenarios and prints
// the outgoing messages and evidence terms as YAML.
//
//	msgcheck exp --shape 3 --rate 2 --mean 0 --variance 1
//	msgcheck gate --probs 0.5,0.3,0.2 --means 0,2,-2 --variances 1,1,1
//	msgcheck gamma --factor product --y 5,1 --a 3,1 --b 4,2 --sweeps 20
//	msgcheck run -f scenario.yaml
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the persistent flags and the logger built from them.
type cli struct {
	logFormat string
	logLevel  string
	opts      OptionsSpec
	proper    bool
	logger    *slog.Logger
}

// newRootCmd wires the command tree; out receives reports, logw receives
// log records.
func newRootCmd(out, logw io.Writer) *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "msgcheck",
		Short:        "Evaluate EP/VMP message operators on small scenarios",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(logw, c.logFormat, c.logLevel)
			if err != nil {
				return err
			}
			c.logger = logger
			if cmd.Flags().Changed("force-proper") {
				c.opts.ForceProper = &c.proper
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(logw)

	pf := root.PersistentFlags()
	pf.StringVar(&c.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVar(&c.proper, "force-proper", true, "project improper outgoing messages onto proper ones")
	pf.IntVar(&c.opts.QuadratureNodes, "nodes", 0, "Gauss-Hermite order (0 = default)")
	pf.Float64Var(&c.opts.AdaptiveRelTol, "adaptive", 0, "adaptive quadrature relative tolerance (0 = off)")
	pf.IntVar(&c.opts.NewtonSteps, "newton-steps", 0, "Newton steps per Laplace buffer update (0 = default)")
	pf.Int64Var(&c.opts.Seed, "seed", 0, "damping seed (0 = fixed default)")
	pf.Float64Var(&c.opts.Damping, "damping", 0, "VMP damping max step in [0,1) (0 = off)")

	root.AddCommand(c.expCmd(), c.gateCmd(), c.gammaCmd(), c.runCmd())
	return root
}

// newLogger builds a slog text or JSON handler at the requested level.
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("msgcheck: log level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("msgcheck: log format %q: want text or json", format)
	}
}

// runOne validates a single-step scenario built from flags and runs it.
func (c *cli) runOne(cmd *cobra.Command, name string, st Step) error {
	sc := Scenario{Name: name, Options: c.opts, Steps: []Step{st}}
	if err := sc.Validate(); err != nil {
		return err
	}
	return runScenario(sc, c.logger, cmd.OutOrStdout())
}

func (c *cli) expCmd() *cobra.Command {
	var st ExpStep
	cmd := &cobra.Command{
		Use:   "exp",
		Short: "Messages of the factor exp = e^d",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runOne(cmd, "exp", Step{Name: "exp", Exp: &st})
		},
	}
	f := cmd.Flags()
	f.Float64Var(&st.Exp.Shape, "shape", 1, "shape of the incoming message to exp")
	f.Float64Var(&st.Exp.Rate, "rate", 0, "rate of the incoming message to exp")
	f.Float64Var(&st.D.Mean, "mean", 0, "mean of the incoming message to d")
	f.Float64Var(&st.D.Variance, "variance", 1, "variance of the incoming message to d")
	f.IntVar(&st.Iterations, "iterations", 1, "EP iterations of the message to d")
	return cmd
}

func (c *cli) gateCmd() *cobra.Command {
	var (
		st                  GateStep
		means, variances    []float64
		valueMean, valueVar float64
	)
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Combine Gaussian branch messages under a discrete selector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(means) != len(variances) {
				return fmt.Errorf("%d means for %d variances: %w", len(means), len(variances), errCandidates)
			}
			st.Candidates = make([]GaussianSpec, len(means))
			for i := range means {
				st.Candidates[i] = GaussianSpec{Mean: means[i], Variance: variances[i]}
			}
			if valueVar > 0 {
				st.Value = &GaussianSpec{Mean: valueMean, Variance: valueVar}
			}
			if !cmd.Flags().Changed("indices") {
				st.Indices = nil
			}
			return c.runOne(cmd, "gate", Step{Name: "gate", Gate: &st})
		},
	}
	f := cmd.Flags()
	f.Float64SliceVar(&st.Probs, "probs", nil, "selector probabilities")
	f.Float64SliceVar(&means, "means", nil, "candidate means")
	f.Float64SliceVar(&variances, "variances", nil, "candidate variances")
	f.Float64Var(&valueMean, "value-mean", 0, "mean of the incoming message to value")
	f.Float64Var(&valueVar, "value-variance", 0, "variance of the incoming message to value (0 = uniform)")
	f.IntSliceVar(&st.Indices, "indices", nil, "selector outcomes covered by the candidates (partial gate)")
	return cmd
}

func (c *cli) gammaCmd() *cobra.Command {
	var (
		st       GammaStep
		y, a, b  []float64
		observed float64
	)
	cmd := &cobra.Command{
		Use:   "gamma",
		Short: "Sweep a Gamma product or ratio factor with Laplace buffers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := GammaInstance{}
			for _, p := range []struct {
				name string
				v    []float64
				dst  *GammaSpec
			}{{"a", a, &in.A}, {"b", b, &in.B}} {
				spec, err := gammaFlag(p.name, p.v)
				if err != nil {
					return err
				}
				*p.dst = spec
			}
			if observed > 0 {
				in.Observed = &observed
			} else {
				spec, err := gammaFlag("y", y)
				if err != nil {
					return err
				}
				in.Y = &spec
			}
			st.Instances = []GammaInstance{in}
			return c.runOne(cmd, "gamma", Step{Name: "gamma", Gamma: &st})
		},
	}
	f := cmd.Flags()
	f.StringVar(&st.Factor, "factor", "product", "factor: product (y = a·b) or ratio (y = a/b)")
	f.IntVar(&st.Sweeps, "sweeps", DefaultSweeps, "buffer sweeps")
	f.Float64SliceVar(&y, "y", []float64{1, 0}, "shape,rate of the incoming message to y")
	f.Float64SliceVar(&a, "a", []float64{1, 1}, "shape,rate of the incoming message to a")
	f.Float64SliceVar(&b, "b", []float64{1, 1}, "shape,rate of the incoming message to b")
	f.Float64Var(&observed, "observed", 0, "observed value of y (0 = not observed)")
	return cmd
}

func gammaFlag(name string, v []float64) (GammaSpec, error) {
	if len(v) != 2 {
		return GammaSpec{}, fmt.Errorf("--%s wants shape,rate, got %v", name, v)
	}
	return GammaSpec{Shape: v[0], Rate: v[1]}, nil
}

func (c *cli) runCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a YAML scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := loadScenario(path)
			if err != nil {
				return err
			}
			if c.opts.ForceProper != nil {
				sc.Options.ForceProper = c.opts.ForceProper
			}
			return runScenario(sc, c.logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "scenario file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
