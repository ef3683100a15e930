// SPDX-License-Identifier: MIT

package gate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/epmsg/dist"
	"github.com/katalvlaran/epmsg/mathx"
)

// logElseCutoff drops an implicit branch whose probability is rounding
// residue of a fully covered selector.
const logElseCutoff = -27.6 // ≈ log(1e-12)

// Branch pairs a candidate message with the log-probability that its branch
// is selected.
type Branch[T any] struct {
	LogProb   float64
	Candidate T
}

// usable reports whether a value×candidate product can enter a mixture.
func usable[T dist.Message[T]](m T) bool {
	return m.IsProper() || m.IsPointMass() || m.IsUniform()
}

// mixture runs the EP combination over branches and divides the result by
// value.
//
// Stage 1: per branch, skip zero probability; form value×candidate and skip
// it when the product fails or is improper. A skipped candidate never
// touches the shift tracking.
// Stage 2: streaming log-domain accumulation
//
//	shift = max(logProbSum, logProbᵢ)
//	acc   = Sum(exp(logProbSum−shift), acc, exp(logProbᵢ−shift), prodᵢ)
//	logProbSum = logSumExp(logProbSum, logProbᵢ)
//
// Stage 3: for a partial gate (partial=true) the implicit branch "value
// unchanged" enters with probability 1 − Σ P(covered).
// Stage 4: acc / value with forceProper.
//
// No contributing branch at all is dist.ErrAllZero.
func (g *Gate[T]) mixture(op string, value T, branches []Branch[T], partial bool) (T, error) {
	var zero T
	if len(branches) == 0 && !partial {
		return zero, fmt.Errorf("%s: %w", op, ErrNoBranches)
	}

	// Stage 1 and 2
	var (
		acc        T
		have       bool
		logProbSum = math.Inf(-1)
		covered    = make([]float64, 0, len(branches))
	)
	add := func(i int, logProb float64, prod T) error {
		if !have {
			acc, logProbSum, have = prod, logProb, true
			return nil
		}
		shift := math.Max(logProbSum, logProb)
		next, err := acc.Sum(math.Exp(logProbSum-shift), prod, math.Exp(logProb-shift))
		if err != nil {
			return fmt.Errorf("%s: branch %d: %w", op, i, err)
		}
		acc = next
		logProbSum = mathx.LogSumExp(logProbSum, logProb)
		return nil
	}
	for i, br := range branches {
		if math.IsNaN(br.LogProb) {
			return zero, fmt.Errorf("%s: branch %d log-probability NaN: %w", op, i, dist.ErrNumericDegenerate)
		}
		covered = append(covered, br.LogProb)
		if math.IsInf(br.LogProb, -1) {
			g.opts.logger.Debug("zero-probability branch skipped", slog.String("op", op), slog.Int("branch", i))
			continue
		}
		prod, err := value.Product(br.Candidate)
		if err != nil || !usable(prod) {
			g.opts.logger.Debug("invalid candidate skipped",
				slog.String("op", op), slog.Int("branch", i), slog.Any("candidate", br.Candidate))
			continue
		}
		if err := add(i, br.LogProb, prod); err != nil {
			return zero, err
		}
	}

	// Stage 3
	if partial {
		logCovered := mathx.LogSumExpSlice(covered)
		if logCovered < 0 {
			if logElse := mathx.Log1MinusExp(logCovered); logElse > logElseCutoff {
				if err := add(len(branches), logElse, value); err != nil {
					return zero, err
				}
			}
		}
	}
	if !have {
		return zero, fmt.Errorf("%s: no branch contributes: %w", op, dist.ErrAllZero)
	}

	// Stage 4
	msg, err := acc.Ratio(value, g.opts.forceProper)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// geometric runs the VMP combination: ∏ candidateᵢ^P(i). Zero-probability
// branches are skipped; like is the message whose uniform member seeds the
// product.
func (g *Gate[T]) geometric(op string, like T, branches []Branch[T]) (T, error) {
	var zero T
	acc := like.ToUniform()
	seen := false
	for i, br := range branches {
		p := math.Exp(br.LogProb)
		if math.IsNaN(p) {
			return zero, fmt.Errorf("%s: branch %d probability NaN: %w", op, i, dist.ErrNumericDegenerate)
		}
		if p == 0 {
			continue
		}
		pw, err := br.Candidate.Power(p)
		if err != nil {
			return zero, fmt.Errorf("%s: branch %d: %w", op, i, err)
		}
		if acc, err = acc.Product(pw); err != nil {
			return zero, fmt.Errorf("%s: branch %d: %w", op, i, err)
		}
		seen = true
	}
	if !seen {
		return zero, fmt.Errorf("%s: no branch contributes: %w", op, dist.ErrAllZero)
	}
	return acc, nil
}

// selectorBranches pairs candidates with the selector outcomes named by
// indices (nil ⇒ 0…n−1, which must cover the selector exactly).
func selectorBranches[T any](op string, candidates []T, selector dist.Discrete, indices []int) ([]Branch[T], error) {
	if indices == nil {
		if len(candidates) != selector.Dimension() {
			return nil, fmt.Errorf("%s: %d candidates for %d outcomes: %w",
				op, len(candidates), selector.Dimension(), dist.ErrDimensionMismatch)
		}
	} else if err := checkIndices(op, indices, selector.Dimension(), len(candidates)); err != nil {
		return nil, err
	}
	out := make([]Branch[T], len(candidates))
	for j, c := range candidates {
		k := j
		if indices != nil {
			k = indices[j]
		}
		out[j] = Branch[T]{LogProb: selector.LogProb(k), Candidate: c}
	}
	return out, nil
}

func checkIndices(op string, indices []int, dim, n int) error {
	if len(indices) != n {
		return fmt.Errorf("%s: %d candidates for %d indices: %w", op, n, len(indices), dist.ErrDimensionMismatch)
	}
	seen := make(map[int]struct{}, len(indices))
	for _, k := range indices {
		if k < 0 || k >= dim {
			return fmt.Errorf("%s: index %d of %d outcomes: %w", op, k, dim, ErrIndexOutOfRange)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%s: index %d: %w", op, k, ErrDuplicateIndex)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// routed is the point-selector short circuit: the candidate whose index is
// the selected outcome, or uniform when no branch covers it.
func routed[T dist.Message[T]](value T, candidates []T, indices []int, point int) T {
	for j, c := range candidates {
		k := j
		if indices != nil {
			k = indices[j]
		}
		if k == point {
			return c
		}
	}
	return value.ToUniform()
}
