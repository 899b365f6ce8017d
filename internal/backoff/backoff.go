package backoff

import (
	"math/rand"
	"time"
)

const (
	DefaultMin = 100 * time.Millisecond
	DefaultMax = 10 * time.Second
)

// Backoff computes jittered exponential delays between reconnect attempts.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// Duration returns the delay before attempt number retries (starting at 0).
func (b Backoff) Duration(retries int) time.Duration {
	minDelay, maxDelay := b.Min, b.Max
	if minDelay <= 0 {
		minDelay = DefaultMin
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMax
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if retries > 30 {
		return maxDelay
	}
	//nolint:gosec // it's a jitter.
	jitter := time.Duration(rand.Int63n(int64(minDelay)))
	base := minDelay + jitter
	if base > maxDelay>>retries {
		return maxDelay
	}
	return min(base<<retries, maxDelay)
}
