package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter admits or rejects requests per identity based on a maximum
// count within a trailing time window.
//
// A Limiter must be created with New. The zero value is not usable.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a limiter admitting at most maxRequests per identity within
// any trailing window. Both parameters must be positive; configuration
// errors surface once here, never during steady-state operation.
func New(maxRequests int, window time.Duration) (*Limiter, error) {
	if maxRequests <= 0 {
		return nil, fmt.Errorf("ratelimit: max requests must be positive, got %d", maxRequests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}

	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		windows:     make(map[string][]time.Time),
		now:         time.Now,
	}, nil
}

// Allow decides whether a request from identity is admitted.
//
// The prune-decide-append sequence is atomic with respect to concurrent
// callers: with one slot remaining, exactly one of two racing calls is
// admitted. A rejection is an ordinary outcome, not an error.
func (l *Limiter) Allow(identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.pruneLocked(identity, now)

	if len(stamps) >= l.maxRequests {
		// Time until the oldest admission slides out of the window.
		retryAfter := l.window - now.Sub(stamps[0])
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
		}
	}

	stamps = append(stamps, now)
	l.windows[identity] = stamps

	return Decision{
		Allowed:   true,
		Remaining: l.maxRequests - len(stamps),
	}
}

// Reset clears all recorded admissions for one identity. Administrative
// override; the next Allow starts from an empty window.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, identity)
}

// Stats reports the current window occupancy for an identity. The window
// is pruned first so the count reflects only live admissions.
func (l *Limiter) Stats(identity string) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.pruneLocked(identity, l.now())
	return Stats{
		CountInWindow: len(stamps),
		Window:        l.window,
		MaxRequests:   l.maxRequests,
	}
}

// SweepIdle removes identities whose windows have fully drained and
// returns the number removed. Lazy pruning in Allow already bounds
// memory; the sweep only reclaims long-idle identities sooner.
func (l *Limiter) SweepIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	removed := 0
	for identity, stamps := range l.windows {
		live := false
		for _, t := range stamps {
			if !t.Before(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.windows, identity)
			removed++
		}
	}
	return removed
}

// pruneLocked drops timestamps older than the window for identity and
// returns the surviving slice. An identity whose window drains to empty
// keeps an empty slice until SweepIdle runs. Caller must hold mu.
func (l *Limiter) pruneLocked(identity string, now time.Time) []time.Time {
	stamps, found := l.windows[identity]
	if !found {
		return nil
	}

	cutoff := now.Add(-l.window)
	keep := 0
	for keep < len(stamps) && stamps[keep].Before(cutoff) {
		keep++
	}
	if keep > 0 {
		stamps = append(stamps[:0], stamps[keep:]...)
		l.windows[identity] = stamps
	}
	return stamps
}
