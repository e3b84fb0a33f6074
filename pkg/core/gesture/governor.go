package gesture

import (
	"sync"
	"time"
)

const (
	// DefaultCooldown is the minimum spacing between classification calls.
	DefaultCooldown = 8 * time.Second
	// DefaultRetryAfter is applied when the classifier throttles without
	// suggesting a delay.
	DefaultRetryAfter = 10 * time.Second
)

// Governor gates access to the remote classifier. It enforces a single
// in-flight call, a minimum cooldown between calls, and any server-issued
// retry-after deadline. It never queues: a denied sample is simply dropped,
// which is preferable to building a backlog under a polling model.
type Governor struct {
	cooldown time.Duration

	mu             sync.Mutex
	inFlight       bool
	lastCallAt     time.Time
	retryNotBefore time.Time
}

// NewGovernor creates a governor with the given cooldown. A non-positive
// cooldown falls back to DefaultCooldown.
func NewGovernor(cooldown time.Duration) *Governor {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Governor{cooldown: cooldown}
}

// TryAcquire reports whether a classification attempt is admitted at now.
// On success the in-flight flag is set and lastCallAt is updated; the caller
// must call Release when the outstanding call completes, success or failure.
func (g *Governor) TryAcquire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight {
		return false
	}
	if now.Before(g.retryNotBefore) {
		return false
	}
	if !g.lastCallAt.IsZero() && now.Sub(g.lastCallAt) < g.cooldown {
		return false
	}

	g.inFlight = true
	g.lastCallAt = now
	return true
}

// Release clears the in-flight flag. Safe to call when nothing is in flight.
func (g *Governor) Release() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}

// Throttle records a server-issued retry-after deadline. A non-positive
// delay falls back to DefaultRetryAfter. The deadline takes precedence over
// the cooldown window for subsequent attempts.
func (g *Governor) Throttle(now time.Time, delay time.Duration) {
	if delay <= 0 {
		delay = DefaultRetryAfter
	}
	g.mu.Lock()
	deadline := now.Add(delay)
	if deadline.After(g.retryNotBefore) {
		g.retryNotBefore = deadline
	}
	g.mu.Unlock()
}

// Reset clears all governor state. Called when the capture loop is disabled.
func (g *Governor) Reset() {
	g.mu.Lock()
	g.inFlight = false
	g.lastCallAt = time.Time{}
	g.retryNotBefore = time.Time{}
	g.mu.Unlock()
}

// InFlight reports whether a classification call is outstanding.
func (g *Governor) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}
