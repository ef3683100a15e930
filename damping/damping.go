// SPDX-License-Identifier: MIT

// Package damping blends successive VMP messages with a random step size.
//
// The randomness is controlled: every Damper owns a seeded *rand.Rand, so a
// fixed seed reproduces the same sequence of steps. seed == 0 maps to a
// fixed default seed; no time-based source is used anywhere.
//
// Concurrency: a Damper is NOT goroutine-safe (math/rand.Rand is not).
// Give each sweep loop its own Damper.
package damping

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/katalvlaran/epmsg/dist"
)

const (
	// defaultRNGSeed is used when callers pass seed == 0.
	defaultRNGSeed int64 = 1

	// DefaultMaxStep bounds the blend weight of the previous message.
	DefaultMaxStep = 0.5
)

// Damper draws blend weights s ∈ [0, maxStep).
type Damper struct {
	rng     *rand.Rand
	maxStep float64
}

// New returns a Damper seeded with seed (0 ⇒ defaultRNGSeed).
// Panics if maxStep is outside [0, 1): a step of 1 would discard the update.
func New(seed int64, maxStep float64) *Damper {
	if math.IsNaN(maxStep) || maxStep < 0 || maxStep >= 1 {
		panic(fmt.Sprintf("damping: maxStep must be in [0,1), got %v", maxStep))
	}

	return &Damper{rng: rngFromSeed(seed), maxStep: maxStep}
}

// WithRand returns a Damper drawing from r. Panics on a nil source or an
// invalid maxStep.
func WithRand(r *rand.Rand, maxStep float64) *Damper {
	if r == nil {
		panic("damping: nil *rand.Rand")
	}
	d := New(defaultRNGSeed, maxStep)
	d.rng = r

	return d
}

// rngFromSeed returns a deterministic *rand.Rand.
// Policy: seed==0 ⇒ use defaultRNGSeed; otherwise use the provided seed verbatim.
func rngFromSeed(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultRNGSeed
	}
	return rand.New(rand.NewSource(seed))
}

// MaxStep returns the upper bound of the blend weight.
func (d *Damper) MaxStep() float64 { return d.maxStep }

// Step draws the next blend weight. A nil Damper always returns 0.
func (d *Damper) Step() float64 {
	if d == nil || d.maxStep == 0 {
		return 0
	}
	return d.rng.Float64() * d.maxStep
}

// Blend returns the geometric blend prev^s · next^(1−s) with s = d.Step().
// A nil Damper, a uniform or point-mass previous message, or a zero step
// return next unchanged.
func Blend[T dist.Message[T]](d *Damper, prev, next T) (T, error) {
	if d == nil || prev.IsUniform() || prev.IsPointMass() || next.IsPointMass() {
		return next, nil
	}
	s := d.Step()
	if s == 0 {
		return next, nil
	}
	a, err := prev.Power(s)
	if err != nil {
		return next, fmt.Errorf("damping prev^%g: %w", s, err)
	}
	b, err := next.Power(1 - s)
	if err != nil {
		return next, fmt.Errorf("damping next^%g: %w", 1-s, err)
	}

	return a.Product(b)
}
