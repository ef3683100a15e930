// SPDX-License-Identifier: MIT

// Package factor: functional configuration shared by every operator.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that resolves defaults.
//
// Design goals:
//   - Deterministic behavior: no global state; randomness only through an
//     explicitly injected damping.Damper.
//   - Silent by default: the logger discards unless WithLogger is given.
//   - Safe by construction: panic only on invalid parameters (programmer error).
package factor

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/epmsg/damping"
	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/quadrature"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultForceProper projects improper outgoing messages onto the proper
	// boundary (zero precision / rate).
	DefaultForceProper = true

	// DefaultSkipIfUniform makes operators fail with dist.ErrImproperMessage
	// on a required uniform input instead of returning a uniform result.
	DefaultSkipIfUniform = false

	// DefaultQuadratureNodes is the Gauss-Hermite order.
	DefaultQuadratureNodes = quadrature.DefaultNodes

	// DefaultAdaptiveRelTol disables the adaptive engine (0 ⇒ Gauss-Hermite only).
	DefaultAdaptiveRelTol = 0.0

	// DefaultDegenerateVariance is the proposal variance below which
	// quadrature is skipped for the analytic expansion.
	DefaultDegenerateVariance = 1e-6

	// DefaultQuadratureGap sets the variance floor 2·v·gap² used when a
	// quadrature variance estimate is non-positive.
	DefaultQuadratureGap = 0.1

	// DefaultNewtonSteps is the number of Newton steps per buffer update:
	// one per sweep, convergence happens across sweeps.
	DefaultNewtonSteps = 1
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicNodesInvalid      = "factor: WithQuadratureNodes: n must be in [1, 512]"
	panicRelTolInvalid     = "factor: WithAdaptiveQuadrature: relTol must be finite and > 0"
	panicDegenerateInvalid = "factor: WithDegenerateVariance: threshold must be finite and >= 0"
	panicGapInvalid        = "factor: WithQuadratureGap: gap must be finite and > 0"
	panicNewtonInvalid     = "factor: WithNewtonSteps: steps must be in [1, laplace.MaxSteps]"
	panicNilLogger         = "factor: WithLogger: nil logger"
)

const maxQuadratureNodes = 512

// ---------- Public option type (functional) ----------

// Option mutates internal options. Safe to apply repeatedly (idempotent).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
// Fields are unexported; operators resolve them once in their constructor.
type Options struct {
	msg dist.MessageOptions

	nodes              int     // DefaultQuadratureNodes
	adaptiveRelTol     float64 // DefaultAdaptiveRelTol; 0 disables
	degenerateVariance float64 // DefaultDegenerateVariance
	gap                float64 // DefaultQuadratureGap

	newtonSteps int // DefaultNewtonSteps

	logger *slog.Logger
	damper *damping.Damper // nil ⇒ no VMP damping
}

// ---------- Constructors (WithX) ----------

// WithForceProper toggles projection of improper outgoing messages.
func WithForceProper(on bool) Option {
	return func(o *Options) { o.msg.ForceProper = on }
}

// WithSkipIfUniform makes operators return a uniform message instead of
// dist.ErrImproperMessage when a required input is uniform.
func WithSkipIfUniform(on bool) Option {
	return func(o *Options) { o.msg.SkipIfUniform = on }
}

// WithMessageOptions sets both per-call attributes at once.
func WithMessageOptions(m dist.MessageOptions) Option {
	return func(o *Options) { o.msg = m }
}

// WithQuadratureNodes sets the Gauss-Hermite order.
// Panics unless 1 ≤ n ≤ 512.
func WithQuadratureNodes(n int) Option {
	if n < 1 || n > maxQuadratureNodes {
		panic(panicNodesInvalid)
	}
	return func(o *Options) { o.nodes = n }
}

// WithAdaptiveQuadrature switches the quadrature operators to the adaptive
// doubling engine with the given relative tolerance.
//
// Notes:
//   - Slower than Gauss-Hermite; use when the tilted density is far from the
//     Gaussian proposal (heavy skew, multi-modality).
//   - A level that does not converge is still used, with a debug record.
func WithAdaptiveQuadrature(relTol float64) Option {
	if math.IsNaN(relTol) || math.IsInf(relTol, 0) || relTol <= 0 {
		panic(panicRelTolInvalid)
	}
	return func(o *Options) { o.adaptiveRelTol = relTol }
}

// WithDegenerateVariance sets the proposal variance below which quadrature is
// replaced by the analytic expansion at the proposal mean. 0 disables the
// fallback.
func WithDegenerateVariance(threshold float64) Option {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		panic(panicDegenerateInvalid)
	}
	return func(o *Options) { o.degenerateVariance = threshold }
}

// WithQuadratureGap sets the gap of the variance floor 2·v·gap².
//
// Notes:
//   - The floor is empirical; tune it per model.
func WithQuadratureGap(gap float64) Option {
	if math.IsNaN(gap) || math.IsInf(gap, 0) || gap <= 0 {
		panic(panicGapInvalid)
	}
	return func(o *Options) { o.gap = gap }
}

// WithNewtonSteps sets the number of Newton steps per buffer update.
// Panics unless 1 ≤ steps ≤ laplace.MaxSteps.
func WithNewtonSteps(steps int) Option {
	if steps < 1 || steps > laplace.MaxSteps {
		panic(panicNewtonInvalid)
	}
	return func(o *Options) { o.newtonSteps = steps }
}

// WithLogger routes debug records for the recoverable edge cases (variance
// floor, curvature clamp, degenerate fallback) to l.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic(panicNilLogger)
	}
	return func(o *Options) { o.logger = l }
}

// WithDamper enables random damping of VMP messages through d.
// A nil damper disables damping.
func WithDamper(d *damping.Damper) Option {
	return func(o *Options) { o.damper = d }
}

// ---------- Resolution ----------

func defaultOptions() Options {
	return Options{
		msg: dist.MessageOptions{
			ForceProper:   DefaultForceProper,
			SkipIfUniform: DefaultSkipIfUniform,
		},
		nodes:              DefaultQuadratureNodes,
		adaptiveRelTol:     DefaultAdaptiveRelTol,
		degenerateVariance: DefaultDegenerateVariance,
		gap:                DefaultQuadratureGap,
		newtonSteps:        DefaultNewtonSteps,
		logger:             slog.New(slog.DiscardHandler),
	}
}

// gatherOptions applies opts over the defaults in order (last wins).
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// MessageOptions returns the resolved per-call attributes.
func (o Options) MessageOptions() dist.MessageOptions { return o.msg }

// String summarizes the configuration for logs.
func (o Options) String() string {
	return fmt.Sprintf("forceProper=%t skipIfUniform=%t nodes=%d adaptive=%g floorGap=%g degenerate=%g newton=%d damping=%t",
		o.msg.ForceProper, o.msg.SkipIfUniform, o.nodes, o.adaptiveRelTol, o.gap, o.degenerateVariance, o.newtonSteps, o.damper != nil)
}
