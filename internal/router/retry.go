package router

import (
	"math/rand"
	"time"
)

// backoffPolicy implements the exponential-backoff-with-jitter schedule
// from §4.5: base 100ms, factor 2, jitter ±25%, capped at 2s. Grounded on
// the shape of the teacher's session backoff calculation, generalized to
// the router's retry loop instead of a transport reconnect loop.
type backoffPolicy struct {
	Base   time.Duration
	Factor float64
	Jitter float64
	Cap    time.Duration
}

var defaultBackoff = backoffPolicy{
	Base:   100 * time.Millisecond,
	Factor: 2,
	Jitter: 0.25,
	Cap:    2 * time.Second,
}

// delay returns the backoff duration to wait before retry attempt N
// (1-indexed: attempt 1 is the first retry after the initial call).
func (b backoffPolicy) delay(attempt int, rng *rand.Rand) time.Duration {
	d := float64(b.Base)
	for i := 1; i < attempt; i++ {
		d *= b.Factor
	}
	if cap := float64(b.Cap); d > cap {
		d = cap
	}
	if b.Jitter > 0 {
		spread := d * b.Jitter
		d += (rng.Float64()*2 - 1) * spread
		if d < 0 {
			d = 0
		}
	}
	return time.Duration(d)
}
