// SPDX-License-Identifier: MIT

package factor

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/epmsg/dist"
)

type classified interface {
	IsPointMass() bool
	IsProper() bool
	IsUniform() bool
}

// requireProper enforces the "proper input" contract of an operator argument.
// Point masses and proper messages pass. A uniform input returns skip=true
// under SkipIfUniform; anything else is dist.ErrImproperMessage.
func (o Options) requireProper(op, arg string, m classified) (skip bool, err error) {
	switch {
	case m.IsPointMass() || m.IsProper():
		return false, nil
	case m.IsUniform() && o.msg.SkipIfUniform:
		o.logger.Debug("uniform input, returning uniform", slog.String("op", op), slog.String("arg", arg))
		return true, nil
	}

	return false, fmt.Errorf("%s: %s=%v: %w", op, arg, m, dist.ErrImproperMessage)
}

// degenerate reports whether a proposal variance is below the threshold at
// which quadrature nodes would collapse.
func (o Options) degenerate(variance float64) bool {
	return variance < o.degenerateVariance
}
