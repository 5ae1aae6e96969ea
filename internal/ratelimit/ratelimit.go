package ratelimit

import (
	"fmt"
	"time"
)

// Counter is the expiring-key primitive the limiter runs on. The Redis
// client satisfies it; tests substitute a fake with a manual clock.
type Counter interface {
	GetCount(key string) (int64, error)
	IncrWithWindow(key string, window time.Duration) (int64, error)
}

// Limiter throttles per-actor actions with rolling expiry windows. Counters
// are monotonic within a window; the window starts on the first increment
// after the previous one expired.
type Limiter struct {
	counter Counter
}

func NewLimiter(counter Counter) *Limiter {
	return &Limiter{counter: counter}
}

func key(scope string, actorID int64) string {
	return fmt.Sprintf("rate_limit:%s:%d", scope, actorID)
}

// Allow increments the actor's counter for the scope and reports whether the
// action stays within limit. The increment counts against the window even
// when the answer is no.
func (l *Limiter) Allow(scope string, actorID int64, limit int, window time.Duration) (bool, error) {
	n, err := l.counter.IncrWithWindow(key(scope, actorID), window)
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}

// AtCap checks the counter without consuming from it. Used where refusal
// must leave the counter unchanged, like ticket submission.
func (l *Limiter) AtCap(scope string, actorID int64, cap int) (bool, error) {
	n, err := l.counter.GetCount(key(scope, actorID))
	if err != nil {
		return false, err
	}
	return n >= int64(cap), nil
}

// Record consumes one slot from the actor's window.
func (l *Limiter) Record(scope string, actorID int64, window time.Duration) error {
	_, err := l.counter.IncrWithWindow(key(scope, actorID), window)
	return err
}
