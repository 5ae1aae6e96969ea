package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter mimics expiring Redis counters with a manual clock.
type fakeCounter struct {
	now     time.Time
	counts  map[string]int64
	expires map[string]time.Time
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		now:     time.Unix(1700000000, 0),
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeCounter) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fakeCounter) expireStale(key string) {
	if exp, ok := f.expires[key]; ok && !f.now.Before(exp) {
		delete(f.counts, key)
		delete(f.expires, key)
	}
}

func (f *fakeCounter) GetCount(key string) (int64, error) {
	f.expireStale(key)
	return f.counts[key], nil
}

func (f *fakeCounter) IncrWithWindow(key string, window time.Duration) (int64, error) {
	f.expireStale(key)
	f.counts[key]++
	if f.counts[key] == 1 {
		f.expires[key] = f.now.Add(window)
	}
	return f.counts[key], nil
}

func TestLimiterAllow(t *testing.T) {
	t.Run("allows up to the limit", func(t *testing.T) {
		counter := newFakeCounter()
		l := NewLimiter(counter)

		for i := 0; i < 3; i++ {
			ok, err := l.Allow("general", 42, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "request %d should be allowed", i+1)
		}

		ok, err := l.Allow("general", 42, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		counter := newFakeCounter()
		l := NewLimiter(counter)

		for i := 0; i < 4; i++ {
			_, err := l.Allow("general", 42, 3, time.Minute)
			require.NoError(t, err)
		}

		counter.advance(time.Minute + time.Second)

		ok, err := l.Allow("general", 42, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("actors are throttled independently", func(t *testing.T) {
		counter := newFakeCounter()
		l := NewLimiter(counter)

		for i := 0; i < 3; i++ {
			_, err := l.Allow("general", 1, 3, time.Minute)
			require.NoError(t, err)
		}

		ok, err := l.Allow("general", 2, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestLimiterAtCap(t *testing.T) {
	t.Run("reading does not consume", func(t *testing.T) {
		counter := newFakeCounter()
		l := NewLimiter(counter)

		require.NoError(t, l.Record("support_ticket", 7, time.Hour))
		require.NoError(t, l.Record("support_ticket", 7, time.Hour))

		for i := 0; i < 5; i++ {
			atCap, err := l.AtCap("support_ticket", 7, 3)
			require.NoError(t, err)
			assert.False(t, atCap)
		}

		n, err := counter.GetCount("rate_limit:support_ticket:7")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("cap reached after recording the cap", func(t *testing.T) {
		counter := newFakeCounter()
		l := NewLimiter(counter)

		for i := 0; i < 2; i++ {
			atCap, err := l.AtCap("support_ticket", 7, 3)
			require.NoError(t, err)
			assert.False(t, atCap)
			require.NoError(t, l.Record("support_ticket", 7, time.Hour))
		}

		require.NoError(t, l.Record("support_ticket", 7, time.Hour))

		atCap, err := l.AtCap("support_ticket", 7, 3)
		require.NoError(t, err)
		assert.True(t, atCap)
	})

	t.Run("window expiry lifts the cap", func(t *testing.T) {
		counter := newFakeCounter()
		l := NewLimiter(counter)

		for i := 0; i < 3; i++ {
			require.NoError(t, l.Record("support_ticket", 7, time.Hour))
		}
		atCap, err := l.AtCap("support_ticket", 7, 3)
		require.NoError(t, err)
		require.True(t, atCap)

		counter.advance(time.Hour + time.Second)

		atCap, err = l.AtCap("support_ticket", 7, 3)
		require.NoError(t, err)
		assert.False(t, atCap)
	})
}
