package app

import (
	"context"
	crand "crypto/rand"
	"time"
)

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff returns an exponential delay (20ms, 40ms, 80ms...) with up to +50%
// jitter so that writers that lost the same lock do not retry in lockstep.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 20 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
