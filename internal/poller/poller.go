// Package poller drives repeated checks while an activity condition holds.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once on activation and then on every interval.
// Failures are the tick's own business; the poller never retries early.
type TickFunc func(ctx context.Context)

// Poller repeatedly fires registered ticks on a fixed period between
// Start and Stop. Restarting begins a fresh immediate-check cycle with no
// memory of elapsed time.
type Poller struct {
	interval time.Duration
	logger   zerolog.Logger
	ticks    []TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Poller instance.
func New(interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		panic("poller interval must be positive")
	}
	return &Poller{
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Register appends a tick function. Must be called before Start.
func (p *Poller) Register(fn TickFunc) {
	p.ticks = append(p.ticks, fn)
}

// Start begins the immediate-check plus interval cycle. Calling Start on
// an already-running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.logger.Debug().Dur("interval", p.interval).Msg("poller activated")
	go p.loop(runCtx, done)
}

// Stop cancels the recurring cycle and waits until no further tick can
// fire. Stopping twice, or stopping a never-started poller, is a no-op.
// In-flight work handed off by a tick is not aborted.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Debug().Msg("poller deactivated")
}

// Active reports whether the recurring cycle is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.fire(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fire(ctx)
		}
	}
}

func (p *Poller) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, tick := range p.ticks {
		tick(ctx)
	}
}
