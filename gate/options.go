// SPDX-License-Identifier: MIT

package gate

import (
	"log/slog"
)

// Defaults.
const (
	// DefaultForceProper projects an improper final ratio onto the proper
	// boundary.
	DefaultForceProper = true
)

const panicNilLogger = "gate: WithLogger: nil logger"

// Option mutates Options.
type Option func(*Options)

// Options is the resolved gate configuration.
type Options struct {
	forceProper bool
	logger      *slog.Logger
}

// WithForceProper toggles projection of the final ratio by the value message.
func WithForceProper(on bool) Option {
	return func(o *Options) { o.forceProper = on }
}

// WithLogger routes debug records for skipped branches to l.
// Panics on a nil logger.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic(panicNilLogger)
	}
	return func(o *Options) { o.logger = l }
}

func gatherOptions(opts ...Option) Options {
	o := Options{
		forceProper: DefaultForceProper,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// ForceProper reports the resolved projection flag.
func (o Options) ForceProper() bool { return o.forceProper }
