// Package ratelimit provides fixed-window request limiting keyed by client
// IP or user id. A denial short-circuits the request before any model work.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time until the current window resets; only
	// meaningful when Allowed is false.
	RetryAfter time.Duration
}

type window struct {
	count int
	reset time.Time
}

// Limiter counts requests per key within fixed windows. Counters are
// in-process and mutex-protected since concurrent requests race on the same
// key; they intentionally do not survive restarts.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	maxKeys int
}

// NewLimiter creates a limiter allowing limit requests per period per key.
func NewLimiter(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = 30
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		maxKeys: 10000,
	}
}

// Check atomically increments the counter for key and reports whether the
// request is allowed. There is no read without an increment-or-reject.
func (l *Limiter) Check(key string) Decision {
	return l.CheckAt(key, time.Now())
}

// CheckAt is Check with an explicit clock, for tests.
func (l *Limiter) CheckAt(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		if !ok && len(l.windows) >= l.maxKeys {
			l.prune(now)
		}
		w = &window{reset: now.Add(l.period)}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return Decision{Allowed: false, RetryAfter: w.reset.Sub(now)}
	}
	w.count++
	return Decision{Allowed: true, Remaining: l.limit - w.count}
}

// Reset drops the window for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// prune removes expired windows; must be called with the lock held.
func (l *Limiter) prune(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, key)
		}
	}
}

// IPKey and UserKey build the canonical limiter keys.
func IPKey(addr string) string { return "ip:" + addr }

func UserKey(id string) string { return "user:" + id }
