package appstore

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limitWindow is the span in which at most N requests may start. The extra
// milliseconds absorb transport jitter between a start and its arrival.
const limitWindow = time.Second + 5*time.Millisecond

// Limiter throttles requests to at most N per one-second window. One Limiter
// is shared by every call on a Client; configuring a new N applies to all
// subsequent waits, including ones for unrelated apps.
//
// Pacing comes from a token bucket with burst one. The bucket alone admits
// the (N+1)th start exactly one interval after the Nth, so admitted start
// times are also tracked and a start is held back until the one N places
// earlier has left the window.
type Limiter struct {
	mu  sync.Mutex
	n   int
	lim *rate.Limiter

	admit  sync.Mutex
	starts []time.Time
}

// NewLimiter returns an unconfigured Limiter. Until Configure is called with
// n > 0, Wait returns immediately.
func NewLimiter() *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
}

// Configure sets the limit to n requests per second.
func (l *Limiter) Configure(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.n == n {
		return
	}
	l.n = n
	l.lim.SetLimit(rate.Every(time.Second / time.Duration(n)))
}

// Limit returns the currently configured requests-per-second value, or 0.
func (l *Limiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Wait blocks until the next request may start or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		return err
	}
	n := l.Limit()
	if n == 0 {
		return nil
	}

	l.admit.Lock()
	defer l.admit.Unlock()
	for len(l.starts) >= n {
		d := limitWindow - time.Since(l.starts[len(l.starts)-n])
		if d <= 0 {
			break
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	l.starts = append(l.starts, time.Now())
	if len(l.starts) > n {
		l.starts = append(l.starts[:0], l.starts[len(l.starts)-n:]...)
	}
	return nil
}
