// Package ratelimit provides the shared attempt counter used by the PIN
// verification flow. Counters are created lazily on the first hit,
// carry a decay window, and expire on their own once the window
// elapses.
package ratelimit

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Limiter is a TTL-capable attempt counter. Implementations must be
// safe for concurrent use; Hit in particular must not be a
// read-then-write so that two simultaneous attempts against the same
// key cannot both observe a stale low count.
type Limiter interface {
	// Hit records one attempt and returns the attempt count within the
	// current window, starting a new window if none is open.
	Hit(key string) int
	// Attempts returns the count within the current window, zero if no
	// window is open.
	Attempts(key string) int
	// AvailableIn returns the time until the current window decays,
	// zero if no window is open.
	AvailableIn(key string) time.Duration
	// Clear drops the counter for key.
	Clear(key string)
}

// CacheLimiter implements Limiter over a go-cache instance. Add and
// Increment are individually atomic under the cache's lock; the
// Add-then-Increment pair cannot lose updates, only race over which
// caller opens the window.
type CacheLimiter struct {
	c      *cache.Cache
	window time.Duration
}

// New creates a limiter whose counters decay after window.
func New(window time.Duration) *CacheLimiter {
	return &CacheLimiter{
		c:      cache.New(window, 2*window),
		window: window,
	}
}

func (l *CacheLimiter) Hit(key string) int {
	// Add is a no-op returning an error when a live window already
	// exists for key, so the window deadline is set exactly once.
	_ = l.c.Add(key, 0, l.window)
	n, err := l.c.IncrementInt(key, 1)
	if err != nil {
		// The window expired between Add and Increment. Open a fresh one.
		l.c.Set(key, 1, l.window)
		return 1
	}
	return n
}

func (l *CacheLimiter) Attempts(key string) int {
	v, found := l.c.Get(key)
	if !found {
		return 0
	}
	return v.(int)
}

func (l *CacheLimiter) AvailableIn(key string) time.Duration {
	_, expiry, found := l.c.GetWithExpiration(key)
	if !found || expiry.IsZero() {
		return 0
	}
	d := time.Until(expiry)
	if d < 0 {
		return 0
	}
	return d
}

func (l *CacheLimiter) Clear(key string) {
	l.c.Delete(key)
}
