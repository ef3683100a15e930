// SPDX-License-Identifier: MIT

// Package gate combines branch-specific messages for a selector variable
// that routes a shared value through exactly one of several branches.
//
// A Gate[T] works on any family implementing dist.Message[T] (Gaussian,
// Gamma, Discrete, Bernoulli). Variants:
//
//   - Enter: value is copied into every branch (ValueAverageConditional,
//     ValueAverageLogarithm, EnterAverageConditional).
//   - EnterPartial: only the listed selector outcomes have branches; the rest
//     leave value unchanged (ValuePartial*, EnterPartialFromMarginal).
//   - EnterOne: a single routed case (ValueOne*).
//   - EnterPartialTwo: two branches, each gated by its own Bernoulli case
//     variable (ValuePartialTwo*).
//   - *Bool: Bernoulli selectors, outcome 0 = true.
//   - Exit: the selected branch value is routed out (Exit*).
//
// EP combination is a streaming log-domain mixture of value×candidate terms
// projected back onto T and divided by value; VMP combination is the
// geometric mixture ∏ candidateᵢ^P(i). A point-mass selector short-circuits
// to the selected candidate.
//
// Recoverable cases (zero-probability branch, invalid candidate) are skipped
// with a debug record; a mixture to which no branch contributes returns
// dist.ErrAllZero.
package gate
