// Package backoff provides pluggable delay strategies for the job loop's
// reconnect path. Strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before reconnect attempt n (1-indexed).
// Attempt 1 is the first retry after the initial whitelisted failure.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Fixed always returns the same delay regardless of attempt number.
type Fixed time.Duration

// Delay returns the fixed interval.
func (f Fixed) Delay(_ int) time.Duration { return time.Duration(f) }

// Linear grows the delay linearly: min(Step * attempt, Max).
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

// Delay returns Step * attempt, capped at Max when Max is set.
func (l Linear) Delay(attempt int) time.Duration {
	d := l.Step * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// Exponential doubles the delay each attempt, optionally with full jitter:
// base = min(Initial * 2^(attempt-1), Max), and with Jitter the result is a
// random duration in [0, base], preventing synchronized reconnect storms.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// Delay returns the exponential delay for the given attempt.
func (e Exponential) Delay(attempt int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	if e.Jitter {
		return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
	}
	return time.Duration(base)
}

// Default returns the strategy the job loop uses when none is configured:
// exponential with full jitter, 500ms initial and 30s max.
func Default() Strategy {
	return Exponential{Initial: 500 * time.Millisecond, Max: 30 * time.Second, Jitter: true}
}
