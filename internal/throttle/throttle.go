// Package throttle provides a drop-excess rate gate: calls that arrive
// inside the cooldown window are discarded, not queued or delayed.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Action is the operation guarded by a gate. It runs fire-and-forget; the
// gate never awaits its completion.
type Action func(ctx context.Context)

// Gate throttles one logical action. Eligibility is decided synchronously
// under the mutex; the timestamp is advanced before the action is handed
// off, so overlapping in-flight runs cannot occur from scheduled calls but
// a still-pending run may coexist with the next eligible one.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	lastRun  time.Time
	action   Action

	now func() time.Time
}

// NewGate wraps action with a minimum interval between runs.
func NewGate(action Action, interval time.Duration) *Gate {
	return &Gate{
		interval: interval,
		action:   action,
		now:      time.Now,
	}
}

// Run fires the wrapped action if the interval has elapsed since the last
// eligible call. Ineligible calls return false and have no side effect.
// The zero lastRun sentinel makes the very first call always eligible.
func (g *Gate) Run(ctx context.Context) bool {
	g.mu.Lock()
	now := g.now()
	if !g.lastRun.IsZero() && now.Sub(g.lastRun) <= g.interval {
		g.mu.Unlock()
		return false
	}
	g.lastRun = now
	g.mu.Unlock()

	go g.action(ctx)
	return true
}

// RunSync behaves like Run but executes the action on the calling
// goroutine. Used where the caller already owns a worker goroutine.
func (g *Gate) RunSync(ctx context.Context) bool {
	g.mu.Lock()
	now := g.now()
	if !g.lastRun.IsZero() && now.Sub(g.lastRun) <= g.interval {
		g.mu.Unlock()
		return false
	}
	g.lastRun = now
	g.mu.Unlock()

	g.action(ctx)
	return true
}
