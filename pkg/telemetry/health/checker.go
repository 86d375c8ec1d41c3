// Package health provides liveness and readiness checking for RVX
// Relay.
//
// Liveness is unconditional: a process that can serve /healthz is alive.
// Readiness runs registered named checks (provider reachability, store
// pings) and reports ready only when every check passes.
package health

import (
	"context"
	"sync"
	"time"
)

// Check probes one dependency. A nil error means healthy. Checks must
// honor the context deadline; the checker imposes one per probe.
type Check func(ctx context.Context) error

// Status is the result of one readiness evaluation.
type Status struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Checker evaluates registered readiness checks.
type Checker struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates a checker. Each probe is bounded by timeout
// (default 5s when non-positive).
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		timeout: timeout,
		checks:  make(map[string]Check),
	}
}

// Register adds a named readiness check. Re-registering a name replaces
// the previous check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Evaluate runs all checks and returns the aggregate status. Individual
// check results are reported as "ok" or the error text.
func (c *Checker) Evaluate(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := Status{Ready: true, Checks: make(map[string]string, len(checks))}
	for name, check := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := check(probeCtx)
		cancel()

		if err != nil {
			status.Ready = false
			status.Checks[name] = err.Error()
		} else {
			status.Checks[name] = "ok"
		}
	}
	return status
}
