// Package throttle guards the authentication endpoints with a sliding-window
// rate limiter and a progressive login lockout. Both tables live in process
// memory only and reset on restart; they are not an authoritative security
// boundary on their own.
package throttle

import (
	"strings"
	"sync"
	"time"
)

// Key builds the throttle key from action, client address and phone. Empty
// parts are kept so "no phone" and "no action" stay distinct key spaces.
func Key(action, addr, phone string) string {
	return strings.Join([]string{action, addr, phone}, "|")
}

// Limiter is a sliding-window rate limiter: at most Max attempts within
// Window per key.
type Limiter struct {
	window time.Duration
	max    int

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewLimiter(window time.Duration, max int) *Limiter {
	return &Limiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow evicts timestamps older than the window, then either records the
// attempt or rejects it. On rejection it returns how long until the oldest
// in-window attempt expires (the retry-after hint).
func (l *Limiter) Allow(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.hits[key] = recent
		return recent[0].Sub(cutoff), false
	}

	l.hits[key] = append(recent, now)
	return 0, true
}
