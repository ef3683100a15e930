// SPDX-License-Identifier: MIT

package gate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/mathx"
)

// ExitAverageConditional returns the EP message to the exit variable of a
// gate that routes values[i] out when the selector picks i: the moment
// matched mixture of exit×values[i] weighted by the selector, divided by
// exit. A point-mass selector returns the selected value message.
//
// Errors: as ValueAverageConditional.
//
// Complexity: O(n) message operations.
func (g *Gate[T]) ExitAverageConditional(values []T, selector dist.Discrete, exit T) (T, error) {
	return g.valueEP("gate.ExitAverageConditional", values, selector, exit, nil)
}

// ExitAverageLogarithm returns the VMP message to exit: ∏ values[i]^P(i).
func (g *Gate[T]) ExitAverageLogarithm(values []T, selector dist.Discrete) (T, error) {
	return g.valueVMP("gate.ExitAverageLogarithm", values, selector, nil)
}

// ValuesAverageConditional returns the message to each of the n branch
// values: the exit message.
func (g *Gate[T]) ValuesAverageConditional(exit T, n int) ([]T, error) {
	return g.EnterAverageConditional(exit, n)
}

// ExitLogAverageFactor returns log Σᵢ P(i)·∫ exit·values[i]. Zero-probability
// branches and candidates without a finite overlap are skipped; no
// contribution at all is dist.ErrAllZero.
func (g *Gate[T]) ExitLogAverageFactor(values []T, selector dist.Discrete, exit T) (float64, error) {
	const op = "gate.ExitLogAverageFactor"
	branches, err := selectorBranches(op, values, selector, nil)
	if err != nil {
		return 0, err
	}
	terms := make([]float64, 0, len(branches))
	for i, br := range branches {
		if math.IsInf(br.LogProb, -1) {
			continue
		}
		avg, err := exit.LogAverageOf(br.Candidate)
		if err != nil || math.IsNaN(avg) {
			g.opts.logger.Debug("invalid candidate skipped", slog.String("op", op), slog.Int("branch", i))
			continue
		}
		terms = append(terms, br.LogProb+avg)
	}
	total := mathx.LogSumExpSlice(terms)
	if math.IsInf(total, -1) {
		return 0, fmt.Errorf("%s: %w", op, dist.ErrAllZero)
	}
	return total, nil
}

// ExitLogEvidenceRatio returns ExitLogAverageFactor − log ∫ exit·toExit.
func (g *Gate[T]) ExitLogEvidenceRatio(values []T, selector dist.Discrete, exit, toExit T) (float64, error) {
	laf, err := g.ExitLogAverageFactor(values, selector, exit)
	if err != nil {
		return 0, err
	}
	norm, err := exit.LogAverageOf(toExit)
	if err != nil {
		return 0, fmt.Errorf("gate.ExitLogEvidenceRatio: %w", err)
	}
	return laf - norm, nil
}
