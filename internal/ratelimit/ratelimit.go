package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides if a request from key should be allowed.
// Allow returns (allowed, retryAfterSeconds). When allowed is false, retryAfterSeconds
// may be set for the Retry-After response header (0 = omit).
type Limiter interface {
	Allow(key string) (allowed bool, retryAfterSec int)
}

// Noop allows all requests.
type Noop struct{}

func (Noop) Allow(key string) (bool, int) { return true, 0 }

// InMemory is a sliding-window rate limiter per key (single instance only).
type InMemory struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	window  time.Duration
	nowFunc func() time.Time
}

// NewInMemory allows up to limit requests per key per window. A non-positive limit
// returns a limiter that allows everything.
func NewInMemory(limit int, window time.Duration) *InMemory {
	return &InMemory{
		entries: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		nowFunc: time.Now,
	}
}

func (r *InMemory) Allow(key string) (allowed bool, retryAfterSec int) {
	if r.limit <= 0 {
		return true, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFunc()
	times := trim(r.entries[key], now.Add(-r.window))
	if len(times) >= r.limit {
		r.entries[key] = times
		if retryAfter := times[0].Add(r.window).Sub(now); retryAfter > 0 {
			retryAfterSec = int(retryAfter.Seconds())
			if retryAfterSec < 1 {
				retryAfterSec = 1
			}
		}
		return false, retryAfterSec
	}
	r.entries[key] = append(times, now)
	return true, 0
}

// Prune drops keys with no requests inside the window and returns how many remain.
func (r *InMemory) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.nowFunc().Add(-r.window)
	for key, times := range r.entries {
		if times = trim(times, cutoff); len(times) == 0 {
			delete(r.entries, key)
		} else {
			r.entries[key] = times
		}
	}
	return len(r.entries)
}

// trim keeps the timestamps after cutoff, in place.
func trim(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for _, t := range times {
		if t.After(cutoff) {
			times[i] = t
			i++
		}
	}
	return times[:i]
}
