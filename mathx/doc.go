// SPDX-License-Identifier: MIT

// Package mathx collects the scalar numeric kernels shared by the message
// engines: log-domain arithmetic and the polygamma family.
//
// Everything in mathx operates on plain float64 values and follows IEEE rules
// outside its documented domain (returning -Inf or NaN); nothing here panics
// or logs.
//
// Log-domain arithmetic:
//
//   - LogSumExp(a, b)          log(eᵃ + eᵇ), stable for ±Inf inputs
//   - LogSumExpSlice(xs)       same over a slice (gonum floats)
//   - Log1MinusExp(x)          log(1 − eˣ) for x ≤ 0
//   - LogDifferenceOfExp(a, b) log(eᵃ − eᵇ) for a ≥ b
//   - Logistic / LogisticLn    σ(x) and log σ(x)
//
// Special functions:
//
//   - Digamma    ψ(x)       (gonum mathext)
//   - Trigamma   ψ'(x)  = ζ(2, x)
//   - Tetragamma ψ''(x) = −2·ζ(3, x)
//   - LogGamma   log Γ(x)
package mathx
