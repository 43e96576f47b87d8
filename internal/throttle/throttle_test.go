package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SixthCallWithinWindowRejected(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := NewLimiter(time.Minute, 5)
	l.now = func() time.Time { return now }

	key := Key("login", "10.0.0.1", "+15550001")
	for i := 0; i < 5; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		_, ok := l.Allow(key)
		require.True(t, ok, "attempt %d should pass", i+1)
	}

	now = base.Add(30 * time.Second)
	retryAfter, ok := l.Allow(key)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestLimiter_SixthCallAfterWindowAllowed(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := NewLimiter(time.Minute, 5)
	l.now = func() time.Time { return now }

	key := Key("login", "10.0.0.1", "+15550001")
	for i := 0; i < 5; i++ {
		_, ok := l.Allow(key)
		require.True(t, ok)
	}

	now = base.Add(61 * time.Second)
	_, ok := l.Allow(key)
	assert.True(t, ok)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(time.Minute, 1)

	_, ok := l.Allow(Key("login", "10.0.0.1", "+15550001"))
	require.True(t, ok)

	_, ok = l.Allow(Key("login", "10.0.0.2", "+15550001"))
	assert.True(t, ok)

	_, ok = l.Allow(Key("register", "10.0.0.1", "+15550001"))
	assert.True(t, ok)
}

func TestLockout_ThresholdLocks(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	lo := NewLockout(10*time.Minute, 5, 10*time.Minute)
	lo.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		lo.RecordFailure("10.0.0.1", "+15550001")
		_, locked := lo.IsLocked("10.0.0.1", "+15550001")
		require.False(t, locked, "should not lock before threshold")
	}

	lo.RecordFailure("10.0.0.1", "+15550001")
	remaining, locked := lo.IsLocked("10.0.0.1", "+15550001")
	assert.True(t, locked)
	assert.Equal(t, 10*time.Minute, remaining)

	// Other keys unaffected.
	_, locked = lo.IsLocked("10.0.0.2", "+15550001")
	assert.False(t, locked)
}

func TestLockout_SuccessClearsFailures(t *testing.T) {
	lo := NewLockout(10*time.Minute, 5, 10*time.Minute)

	for i := 0; i < 4; i++ {
		lo.RecordFailure("10.0.0.1", "+15550001")
	}
	lo.Clear("10.0.0.1", "+15550001")

	// Four more failures only reach 4 again, not 8.
	for i := 0; i < 4; i++ {
		lo.RecordFailure("10.0.0.1", "+15550001")
	}
	_, locked := lo.IsLocked("10.0.0.1", "+15550001")
	assert.False(t, locked)
}

func TestLockout_ExpiryHealsLockAndHistory(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	lo := NewLockout(10*time.Minute, 5, 10*time.Minute)
	lo.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		lo.RecordFailure("10.0.0.1", "+15550001")
	}
	_, locked := lo.IsLocked("10.0.0.1", "+15550001")
	require.True(t, locked)

	now = base.Add(10*time.Minute + time.Second)
	_, locked = lo.IsLocked("10.0.0.1", "+15550001")
	assert.False(t, locked)

	// History was cleared with the lock: one more failure must not re-lock.
	lo.RecordFailure("10.0.0.1", "+15550001")
	_, locked = lo.IsLocked("10.0.0.1", "+15550001")
	assert.False(t, locked)
}

func TestLockout_OldFailuresFallOutOfWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	lo := NewLockout(10*time.Minute, 5, 10*time.Minute)
	lo.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		lo.RecordFailure("10.0.0.1", "+15550001")
	}

	now = base.Add(11 * time.Minute)
	lo.RecordFailure("10.0.0.1", "+15550001")
	_, locked := lo.IsLocked("10.0.0.1", "+15550001")
	assert.False(t, locked)
}
