package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns how long a Machine waits before the handshake that
// follows failure cycle n (1-based). Cycle 1 waits InitialDelay; each later
// cycle grows by Multiplier up to MaxDelay. With Jitter the delay is scaled
// by a factor in [0.5, 1.5), or exactly 0.5 when rng is nil.
func NextBackoffDelay(cfg BackoffConfig, cycle int, rng *rand.Rand) time.Duration {
	base := cfg.InitialDelay
	if cycle <= 1 || base <= 0 {
		return max(base, 0)
	}
	growth := math.Max(cfg.Multiplier, 1)
	delay := float64(base) * math.Pow(growth, float64(cycle-1))
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if !cfg.Jitter {
		return time.Duration(delay)
	}
	scale := 0.5
	if rng != nil {
		scale += rng.Float64()
	}
	return time.Duration(delay * scale)
}
