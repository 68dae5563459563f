package main

import (
	"sync"
	"time"
)

// Sliding-window abuse guard, kept in memory per connection id.
const (
	rateWindow = 4 * time.Second
	rateMax    = 15 // events per window
)

type rateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time // swapped out in tests
	buckets map[string][]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

// checkRate records one event for the id and reports whether it still fits
// inside the window budget. A false return means the caller should drop the
// delivery it was about to make, nothing more: state changes already applied
// are never reversed. Buckets live for the process lifetime and are not
// evicted when a connection goes away.
func (rl *rateLimiter) checkRate(id string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	winStart := now.Add(-rateWindow)

	recent := rl.buckets[id][:0]
	for _, t := range rl.buckets[id] {
		if t.After(winStart) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	rl.buckets[id] = recent

	return len(recent) <= rateMax
}
