package ratelimit

import (
	"math"
	"time"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed indicates whether the request was admitted.
	Allowed bool

	// Remaining is how many further requests the identity may make
	// within the current window. Zero when rejected.
	Remaining int

	// RetryAfter is how long until the oldest admission slides out of
	// the window, freeing a slot. Zero when admitted.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, the
// form expected by HTTP Retry-After headers and user-facing wait
// messages. A rejected request always reports at least one second.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Stats is a read-only view of an identity's current window.
type Stats struct {
	// CountInWindow is the number of live admissions.
	CountInWindow int

	// Window is the configured window duration.
	Window time.Duration

	// MaxRequests is the configured admission cap.
	MaxRequests int
}
