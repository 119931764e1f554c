// Package backoff provides pluggable idle-delay strategies for the
// retry-cache flusher. When consecutive flush cycles find nothing to
// deliver, the flusher stretches the gap between cycles using one of
// these strategies. All strategies are safe for concurrent use (they
// are stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before cycle n of an idle streak.
// Cycle 1 is the first cycle after the streak began.
type Strategy interface {
	Delay(cycle int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of cycle number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the cycle number.
// Delay = min(Initial * cycle, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * cycle, capped at Max.
func (l *Linear) Delay(cycle int) time.Duration {
	d := l.Initial * time.Duration(cycle)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each cycle.
// Delay = min(Initial * 2^(cycle-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(cycle-1), capped at Max.
func (e *Exponential) Delay(cycle int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(cycle-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^(cycle-1), Max)].
// This prevents thundering herd when many clients wake at once.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(cycle-1), Max)].
func (e *ExponentialWithJitter) Delay(cycle int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(cycle-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default idle backoff used by the flusher:
// Exponential with 1m initial and 15m max.
func DefaultStrategy() Strategy {
	return NewExponential(1*time.Minute, 15*time.Minute)
}
