package cooldown

import (
	"sync"
	"time"
)

// Gate rejects scaling actions for a service that scaled within the
// cooldown window. One window is shared by both directions: scaling up
// resets the timer for scale-down too, and vice versa.
type Gate struct {
	window    time.Duration
	lastScale map[string]time.Time
	mu        sync.RWMutex
}

func NewGate(window time.Duration) *Gate {
	return &Gate{
		window:    window,
		lastScale: make(map[string]time.Time),
	}
}

// SetWindow applies a hot-reloaded cooldown value. Existing timestamps are
// kept; only the window length changes.
func (g *Gate) SetWindow(window time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.window = window
}

// Allow reports whether the service may scale at the given time. A service
// that has never scaled is always allowed.
func (g *Gate) Allow(service string, now time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	last, exists := g.lastScale[service]
	if !exists {
		return true
	}
	return now.Sub(last) >= g.window
}

// Record marks a successful scaling action for the service.
func (g *Gate) Record(service string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastScale[service] = now
}

// Remaining returns how long the service must still wait, zero if it may
// scale now.
func (g *Gate) Remaining(service string, now time.Time) time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	last, exists := g.lastScale[service]
	if !exists {
		return 0
	}

	elapsed := now.Sub(last)
	if elapsed >= g.window {
		return 0
	}
	return g.window - elapsed
}

// Reset clears the service's timer. Used by tests and operator tooling.
func (g *Gate) Reset(service string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lastScale, service)
}
