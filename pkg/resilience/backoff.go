package resilience

import (
	"math/rand"
	"time"
)

// BackoffStrategy yields the wait before a given retry attempt.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically and spreads it with
// jitter so simultaneous failures do not retry in lockstep.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // fraction of the delay, 0.1 means ±10%
}

// ProductionBackoff waits 2s, 4s, 8s... capped at 30s. The live gateway
// rejects hammering, and a debit confirmation is worth the patience.
func ProductionBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// SandboxBackoff waits 1s, 2s... capped at 15s. Test runs should fail fast.
func SandboxBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  1 * time.Second,
		MaxDelay:   15 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay returns the wait before retry number attempt (0-indexed), which
// is BaseDelay scaled by Multiplier^attempt, capped at MaxDelay, then
// jittered within ±(Jitter * delay).
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return b.BaseDelay
	}

	delay := float64(b.BaseDelay)
	ceiling := float64(b.MaxDelay)

	for i := 0; i < attempt; i++ {
		delay *= b.Multiplier
		if delay >= ceiling {
			delay = ceiling
			break
		}
	}
	if delay > ceiling {
		delay = ceiling
	}

	if b.Jitter > 0 {
		spread := delay * b.Jitter
		delay += (rand.Float64()*2 - 1) * spread
	}

	if delay < 0 {
		return b.BaseDelay
	}
	return time.Duration(delay)
}

// FixedBackoff waits the same delay every time.
type FixedBackoff struct {
	Delay time.Duration
}

func (b *FixedBackoff) NextDelay(int) time.Duration {
	return b.Delay
}
