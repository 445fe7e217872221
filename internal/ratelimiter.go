package internal

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter keyed by connection.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for key and reports whether it fits in the window.
// A non-positive limit disables throttling.
func (r *RateLimiter) Allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	now := r.now()
	start := now.Add(-r.window)
	r.mu.Lock()
	defer r.mu.Unlock()
	// hits are kept oldest first, so expired ones form a prefix
	hits := r.hits[key]
	expired := 0
	for expired < len(hits) && !hits[expired].After(start) {
		expired++
	}
	hits = hits[expired:]
	if len(hits) >= r.limit {
		r.hits[key] = hits
		return false
	}
	r.hits[key] = append(hits, now)
	return true
}

// Forget drops the history of key once its connection is gone.
func (r *RateLimiter) Forget(key string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hits, key)
}

func (r *RateLimiter) Window() time.Duration {
	return r.window
}
