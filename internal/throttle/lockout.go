package throttle

import (
	"sync"
	"time"
)

// Lockout tracks failed logins per (address, phone) and denies further
// attempts for a fixed duration once the in-window failure count reaches the
// threshold. An expired lock heals itself on the next check; no sweeper runs.
type Lockout struct {
	window    time.Duration
	threshold int
	duration  time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
	locked   map[string]time.Time // lock expiry per key
	now      func() time.Time
}

func NewLockout(window time.Duration, threshold int, duration time.Duration) *Lockout {
	return &Lockout{
		window:    window,
		threshold: threshold,
		duration:  duration,
		failures:  make(map[string][]time.Time),
		locked:    make(map[string]time.Time),
		now:       time.Now,
	}
}

func lockKey(addr, phone string) string {
	return addr + "|" + phone
}

// IsLocked reports whether (addr, phone) is currently locked and, if so, for
// how much longer. An expired lock is cleared together with the failure
// history that caused it.
func (l *Lockout) IsLocked(addr, phone string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := lockKey(addr, phone)
	until, ok := l.locked[key]
	if !ok {
		return 0, false
	}

	now := l.now()
	if now.Before(until) {
		return until.Sub(now), true
	}

	delete(l.locked, key)
	delete(l.failures, key)
	return 0, false
}

// RecordFailure notes a failed login and sets the lock when the in-window
// count reaches the threshold.
func (l *Lockout) RecordFailure(addr, phone string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := lockKey(addr, phone)
	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.failures[key][:0]
	for _, ts := range l.failures[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	recent = append(recent, now)
	l.failures[key] = recent

	if len(recent) >= l.threshold {
		l.locked[key] = now.Add(l.duration)
	}
}

// Clear wipes the failure history for (addr, phone); called after a
// successful login.
func (l *Lockout) Clear(addr, phone string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := lockKey(addr, phone)
	delete(l.failures, key)
	delete(l.locked, key)
}
