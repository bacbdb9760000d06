package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepThreshold = 10000

type fixedWindow struct {
	// budget never refills: with a zero limit every Allow spends from the burst.
	budget  *rate.Limiter
	resetAt time.Time
}

// MemoryLimiter is the in-process fixed window: like RedisLimiter, a key's
// window opens on its first hit and admits max requests until it expires.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*fixedWindow),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) >= sweepThreshold {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{budget: rate.NewLimiter(0, l.max), resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	allowed := w.budget.AllowN(now, 1)

	return Result{
		Allowed:   allowed,
		Limit:     l.max,
		Remaining: w.budget.Burst(),
		ResetAt:   w.resetAt,
	}, nil
}

// sweep drops expired windows.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
