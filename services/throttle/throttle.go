// Package throttlesvc counts failed login attempts per key and locks the key out once too many pile up.
package throttlesvc

import (
	"context"
	"sync"
	"time"

	"github.com/amork0112-rgb/frageedu/core"
)

// Limiter is implemented by the throttle stores.
type Limiter interface {
	// Locked returns how long key stays locked; zero when it may try again.
	Locked(ctx context.Context, key string) (time.Duration, error)
	// Fail records a failed attempt.
	Fail(ctx context.Context, key string) error
	// Reset forgets every failure of key, e.g. after a successful login.
	Reset(ctx context.Context, key string) error
}

// NowFunc is overridden in tests.
var NowFunc = time.Now

type counter struct {
	failures int
	expires  time.Time
}

// sweepAt is the counter count past which Fail drops every expired counter.
const sweepAt = 1024

type memoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	max      int
	window   time.Duration
	sweepAt  int
}

var _ Limiter = (*memoryLimiter)(nil)

// NewMemoryLimiter keeps counters in process. The window starts at the first failure.
func NewMemoryLimiter(conf *core.Config) Limiter {
	return &memoryLimiter{
		counters: make(map[string]*counter),
		max:      conf.Auth.LoginMaxAttempts,
		window:   conf.Auth.LoginLockout,
		sweepAt:  sweepAt,
	}
}

// get returns the live counter of key, dropping an expired one. mu must be held.
func (l *memoryLimiter) get(key string, now time.Time) *counter {
	c, ok := l.counters[key]
	if !ok {
		return nil
	}
	if !now.Before(c.expires) {
		delete(l.counters, key)
		return nil
	}
	return c
}

func (l *memoryLimiter) Locked(_ context.Context, key string) (time.Duration, error) {
	if l.max <= 0 {
		return 0, nil
	}
	now := NowFunc()
	l.mu.Lock()
	defer l.mu.Unlock()

	if c := l.get(key, now); c != nil && c.failures >= l.max {
		return c.expires.Sub(now), nil
	}
	return 0, nil
}

func (l *memoryLimiter) Fail(_ context.Context, key string) error {
	now := NowFunc()
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.get(key, now)
	if c == nil {
		if len(l.counters) >= l.sweepAt {
			l.sweep(now)
		}
		c = &counter{expires: now.Add(l.window)}
		l.counters[key] = c
	}
	c.failures++
	return nil
}

// sweep drops the expired counters of keys that never came back. mu must be held.
func (l *memoryLimiter) sweep(now time.Time) {
	for key, c := range l.counters {
		if !now.Before(c.expires) {
			delete(l.counters, key)
		}
	}
}

func (l *memoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.counters, key)
	l.mu.Unlock()
	return nil
}
