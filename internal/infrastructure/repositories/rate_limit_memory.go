package repositories

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/henzogomes/git-shame/internal/core/ports"
)

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter is a process-local fixed-window limiter. State lives and
// dies with the process; a restart clears all windows. Every Allow sweeps
// expired entries, which is O(active identifiers) and fine at this scale.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryRateLimiter creates a limiter admitting max requests per window
// per identifier.
func NewMemoryRateLimiter(max int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]*rateLimitEntry),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

var _ ports.RateLimiter = (*MemoryRateLimiter)(nil)

// Allow reports whether the identifier may make another request now.
// The check and increment happen under one lock so concurrent requests
// cannot over-admit.
func (l *MemoryRateLimiter) Allow(_ context.Context, identifier string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.entries {
		if entry.resetAt.Before(now) || entry.resetAt.Equal(now) {
			delete(l.entries, key)
		}
	}

	entry, ok := l.entries[identifier]
	if !ok {
		l.entries[identifier] = &rateLimitEntry{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	if entry.count >= l.max {
		return false, nil
	}
	entry.count++
	return true, nil
}

// ResetSeconds returns the seconds until the identifier's window resets,
// rounded up, or 0 when no window is active.
func (l *MemoryRateLimiter) ResetSeconds(_ context.Context, identifier string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok {
		return 0, nil
	}
	remaining := entry.resetAt.Sub(l.now())
	if remaining <= 0 {
		return 0, nil
	}
	return int(math.Ceil(remaining.Seconds())), nil
}
