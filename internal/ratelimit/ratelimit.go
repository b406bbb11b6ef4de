// Package ratelimit implements the per-user command cooldown. It is a soft
// UX guard against command spam, not a security control: state lives in
// process memory and is owned by whoever constructs the Limiter.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

func New(cooldown time.Duration) *Limiter {
	return &Limiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// NewWithClock is used by tests to control time.
func NewWithClock(cooldown time.Duration, now func() time.Time) *Limiter {
	l := New(cooldown)
	l.now = now
	return l
}

// Allow reports whether the user may act now; an allowed call starts the
// user's next cooldown window.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[userID]; ok && now.Sub(last) < l.cooldown {
		return false
	}
	l.last[userID] = now
	return true
}

func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}
