// SPDX-License-Identifier: MIT

package gate

import (
	"fmt"

	"github.com/katalvlaran/epmsg/dist"
)

// Gate computes messages for gate factors over a message family T. A Gate
// holds only its options and is safe to share.
type Gate[T dist.Message[T]] struct {
	opts Options
}

// New builds a gate engine for the family T.
func New[T dist.Message[T]](opts ...Option) *Gate[T] {
	return &Gate[T]{opts: gatherOptions(opts...)}
}

// Options returns the resolved configuration.
func (g *Gate[T]) Options() Options { return g.opts }

// ---------- Enter: value is copied into every branch ----------

// EnterAverageConditional returns the message to each of the n branch copies
// of value: value itself.
func (g *Gate[T]) EnterAverageConditional(value T, n int) ([]T, error) {
	if n <= 0 {
		return nil, fmt.Errorf("gate.EnterAverageConditional: n=%d: %w", n, ErrNoBranches)
	}
	out := make([]T, n)
	for i := range out {
		out[i] = value
	}
	return out, nil
}

// ValueAverageConditional returns the EP message to value from an Enter gate
// whose branch i is selected with probability selector(i) and sends enter[i]
// back.
//
// Implementation:
//   - Stage 1: pair every candidate with log P(i); a point-mass selector
//     returns the selected candidate directly.
//   - Stage 2: stream value×enter[i] into a running moment-matched sum with
//     weights shifted by the running log-normalizer. Zero-probability and
//     unusable products are skipped and logged at debug level.
//   - Stage 3: divide the mixture by value (forceProper per options).
//
// Inputs:
//   - enter: one message per selector outcome.
//   - selector: the current distribution over branches.
//   - value: the incoming message to value.
//
// Returns the outgoing message, of the same family as value.
//
// Errors: dist.ErrDimensionMismatch when len(enter) differs from the
// selector dimension; dist.ErrAllZero when no branch contributes;
// dist.ErrNumericDegenerate for a NaN log-probability.
//
// Complexity: O(n) message operations, O(1) extra space beyond the branch
// list.
func (g *Gate[T]) ValueAverageConditional(enter []T, selector dist.Discrete, value T) (T, error) {
	return g.valueEP("gate.ValueAverageConditional", enter, selector, value, nil)
}

// ValueAverageLogarithm returns the VMP message to value: ∏ enter[i]^P(i).
func (g *Gate[T]) ValueAverageLogarithm(enter []T, selector dist.Discrete) (T, error) {
	return g.valueVMP("gate.ValueAverageLogarithm", enter, selector, nil)
}

// LogEvidenceRatio of an Enter gate is 0: its evidence is carried by the
// branch factors.
func (g *Gate[T]) LogEvidenceRatio() float64 { return 0 }

// ---------- EnterPartial: only the outcomes in indices have branches ----------

// EnterPartialAverageConditional returns value to each branch named by
// indices.
func (g *Gate[T]) EnterPartialAverageConditional(value T, indices []int) ([]T, error) {
	return g.EnterAverageConditional(value, len(indices))
}

// EnterPartialFromMarginal extracts the message to each branch from the
// marginal of value: marginal / toValue, where toValue is the message this
// gate last sent to value.
func (g *Gate[T]) EnterPartialFromMarginal(marginal, toValue T, indices []int) ([]T, error) {
	const op = "gate.EnterPartialFromMarginal"
	msg, err := marginal.Ratio(toValue, g.opts.forceProper)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := g.EnterAverageConditional(msg, len(indices))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ValuePartialAverageConditional is ValueAverageConditional for a partial
// gate: enter[j] belongs to outcome indices[j]; the outcomes not listed leave
// value unchanged.
func (g *Gate[T]) ValuePartialAverageConditional(enter []T, selector dist.Discrete, value T, indices []int) (T, error) {
	if indices == nil {
		indices = []int{}
	}
	return g.valueEP("gate.ValuePartialAverageConditional", enter, selector, value, indices)
}

// ValuePartialAverageLogarithm is the VMP message of a partial gate.
func (g *Gate[T]) ValuePartialAverageLogarithm(enter []T, selector dist.Discrete, indices []int) (T, error) {
	if indices == nil {
		indices = []int{}
	}
	return g.valueVMP("gate.ValuePartialAverageLogarithm", enter, selector, indices)
}

// ---------- EnterOne: a single routed case ----------

// ValueOneAverageConditional is the partial gate with the single branch
// enter for outcome index.
func (g *Gate[T]) ValueOneAverageConditional(enter T, selector dist.Discrete, index int, value T) (T, error) {
	return g.valueEP("gate.ValueOneAverageConditional", []T{enter}, selector, value, []int{index})
}

// ValueOneAverageLogarithm is the VMP message of a single routed case:
// enter^P(index).
func (g *Gate[T]) ValueOneAverageLogarithm(enter T, selector dist.Discrete, index int) (T, error) {
	return g.valueVMP("gate.ValueOneAverageLogarithm", []T{enter}, selector, []int{index})
}

// ---------- Bool selectors (outcome 0 = true) ----------

// ValueAverageConditionalBool is ValueAverageConditional with a Bernoulli
// selector; enter[0] is the true branch.
func (g *Gate[T]) ValueAverageConditionalBool(enter []T, selector dist.Bernoulli, value T) (T, error) {
	return g.valueEP("gate.ValueAverageConditionalBool", enter, selector.ToDiscrete(), value, nil)
}

// ValueAverageLogarithmBool is ValueAverageLogarithm with a Bernoulli
// selector.
func (g *Gate[T]) ValueAverageLogarithmBool(enter []T, selector dist.Bernoulli) (T, error) {
	return g.valueVMP("gate.ValueAverageLogarithmBool", enter, selector.ToDiscrete(), nil)
}

// ValuePartialAverageConditionalBool is the partial gate over a Bernoulli
// selector (indices ⊆ {0 = true, 1 = false}).
func (g *Gate[T]) ValuePartialAverageConditionalBool(enter []T, selector dist.Bernoulli, value T, indices []int) (T, error) {
	if indices == nil {
		indices = []int{}
	}
	return g.valueEP("gate.ValuePartialAverageConditionalBool", enter, selector.ToDiscrete(), value, indices)
}

// ---------- EnterPartialTwo: two Bernoulli case variables ----------

// ValuePartialTwoAverageConditional combines two branches gated by their own
// Bernoulli case variables (branch k is entered when case k is true). The
// cases are treated as exclusive; the remaining mass leaves value unchanged.
//
// Implementation:
//   - A case that is certainly true routes its branch straight to value.
//   - A case that is certainly false drops its branch from the mixture.
//   - Otherwise the two branches are mixed with weights P(case k) in the
//     log domain and the remainder keeps value.
//
// Errors: dist.ErrDimensionMismatch unless len(enter) == 2;
// dist.ErrAllZero when both cases are certainly true.
//
// Complexity: O(1) message operations.
func (g *Gate[T]) ValuePartialTwoAverageConditional(enter []T, case0, case1 dist.Bernoulli, value T) (T, error) {
	const op = "gate.ValuePartialTwoAverageConditional"
	var zero T
	branches, k, err := twoCases(op, enter, case0, case1)
	switch {
	case err != nil:
		return zero, err
	case k >= 0:
		return enter[k], nil
	case len(branches) == 0:
		return value.ToUniform(), nil
	}
	return g.mixture(op, value, branches, true)
}

// ValuePartialTwoAverageLogarithm is the VMP message for two case variables.
// A certainly true case routes its branch; otherwise the result is the
// geometric mixture of the branches that may be entered.
func (g *Gate[T]) ValuePartialTwoAverageLogarithm(enter []T, case0, case1 dist.Bernoulli) (T, error) {
	const op = "gate.ValuePartialTwoAverageLogarithm"
	var zero T
	branches, k, err := twoCases(op, enter, case0, case1)
	switch {
	case err != nil:
		return zero, err
	case k >= 0:
		return enter[k], nil
	case len(branches) == 0:
		return zero, fmt.Errorf("%s: both cases false: %w", op, dist.ErrAllZero)
	}
	return g.geometric(op, branches[0].Candidate, branches)
}

// twoCases routes two Bernoulli case variables. k ≥ 0 names a branch that is
// certainly entered; otherwise branches holds the cases that are not
// certainly false.
func twoCases[T dist.Message[T]](op string, enter []T, case0, case1 dist.Bernoulli) (branches []Branch[T], k int, err error) {
	if len(enter) != 2 {
		return nil, -1, fmt.Errorf("%s: %d candidates: %w", op, len(enter), dist.ErrDimensionMismatch)
	}
	cases := [2]dist.Bernoulli{case0, case1}
	certain := func(c dist.Bernoulli, v bool) bool { return c.IsPointMass() && c.Point() == v }

	switch {
	case certain(case0, true) && certain(case1, true):
		return nil, -1, fmt.Errorf("%s: both cases true: %w", op, dist.ErrAllZero)
	case certain(case0, true):
		return nil, 0, nil
	case certain(case1, true):
		return nil, 1, nil
	}
	for i, c := range cases {
		if certain(c, false) {
			continue
		}
		branches = append(branches, Branch[T]{LogProb: c.LogProbTrue(), Candidate: enter[i]})
	}
	return branches, -1, nil
}

// ---------- shared ----------

// valueEP validates, short-circuits a point selector and otherwise runs the
// EP mixture. indices == nil means a full gate.
func (g *Gate[T]) valueEP(op string, enter []T, selector dist.Discrete, value T, indices []int) (T, error) {
	var zero T
	branches, err := selectorBranches(op, enter, selector, indices)
	if err != nil {
		return zero, err
	}
	if k := selector.Point(); k >= 0 {
		return routed(value, enter, indices, k), nil
	}
	partial := indices != nil && len(indices) < selector.Dimension()

	return g.mixture(op, value, branches, partial)
}

func (g *Gate[T]) valueVMP(op string, enter []T, selector dist.Discrete, indices []int) (T, error) {
	var zero T
	branches, err := selectorBranches(op, enter, selector, indices)
	if err != nil {
		return zero, err
	}
	if len(enter) == 0 {
		return zero, fmt.Errorf("%s: %w", op, ErrNoBranches)
	}
	return g.geometric(op, enter[0], branches)
}
