package relationship

import (
	"sync"
	"time"
)

// RateLimiter caps repeated social actions per identity within a rolling
// window. Advisory local policy, not a cryptographic control.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	actions map[string][]time.Time
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		actions: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one action for id and reports whether it fits the window.
// Timestamps outside the window are pruned as a side effect.
func (l *RateLimiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.actions[id][:0]
	for _, ts := range l.actions[id] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.actions[id] = recent
		return false
	}
	l.actions[id] = append(recent, now)
	return true
}
