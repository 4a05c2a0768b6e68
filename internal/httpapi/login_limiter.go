package httpapi

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or refuses one attempt for key at now.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
}

const (
	loginWindow      = 5 * time.Minute
	loginMaxAttempts = 10
)

// memoryLimiter is the single-instance fallback used when Redis is not
// configured.
type memoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
}

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{
		window:  loginWindow,
		max:     loginMaxAttempts,
		entries: make(map[string][]time.Time),
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	ts := l.entries[key]

	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ts = kept
	if len(ts) >= l.max {
		l.entries[key] = ts
		return false, nil
	}

	l.entries[key] = append(ts, now)
	return true, nil
}
