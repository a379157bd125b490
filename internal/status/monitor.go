// Package status owns the connection-status panel state: it polls the
// health and transaction probes while somebody is watching and lets the
// checks go quiet otherwise.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"platform-pulse/internal/metrics"
	"platform-pulse/internal/poller"
	"platform-pulse/internal/probe"
	"platform-pulse/internal/throttle"
)

// Options tune monitor behaviour.
type Options struct {
	PollInterval time.Duration
	Throttle     time.Duration
	IdleTimeout  time.Duration
	PoolAddress  string
	TokenName    string
}

// Snapshot is the read-only view served to the UI.
type Snapshot struct {
	Health      probe.HealthSnapshot `json:"rpcHealth"`
	Tx          probe.TxSnapshot     `json:"transactions"`
	PoolAddress string               `json:"poolAddress,omitempty"`
	TokenName   string               `json:"tokenName,omitempty"`
	Polling     bool                 `json:"polling"`
}

// Monitor runs throttled probe checks on a fixed period while observer
// interest holds. Touch marks interest; after the idle window with no
// touches the recurring cycle stops. Re-touching restarts the
// immediate-check plus interval cycle from zero.
type Monitor struct {
	opts   Options
	logger zerolog.Logger

	health probe.HealthChecker
	tx     probe.TransactionChecker

	poll       *poller.Poller
	healthGate *throttle.Gate
	txGate     *throttle.Gate

	mu         sync.Mutex
	healthSnap probe.HealthSnapshot
	txSnap     probe.TxSnapshot
	lastTouch  time.Time
	baseCtx    context.Context

	metrics *metrics.Metrics
	now     func() time.Time
}

// NewMonitor constructs the monitor. The transaction state starts as
// Loading until the first check completes.
func NewMonitor(opts Options, health probe.HealthChecker, tx probe.TransactionChecker, m *metrics.Metrics, logger zerolog.Logger) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.Throttle <= 0 {
		opts.Throttle = opts.PollInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Minute
	}

	mon := &Monitor{
		opts:    opts,
		logger:  logger.With().Str("component", "status_monitor").Logger(),
		health:  health,
		tx:      tx,
		txSnap:  probe.TxSnapshot{Status: probe.TxLoading},
		baseCtx: context.Background(),
		metrics: m,
		now:     time.Now,
	}

	mon.healthGate = throttle.NewGate(mon.runHealth, opts.Throttle)
	mon.txGate = throttle.NewGate(mon.runTx, opts.Throttle)

	mon.poll = poller.New(opts.PollInterval, logger)
	mon.poll.Register(mon.tick)

	return mon
}

// Bind sets the context polling cycles derive from. Call before Touch.
func (m *Monitor) Bind(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
}

// Touch records observer interest and activates polling if it is idle.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.lastTouch = m.now()
	ctx := m.baseCtx
	m.mu.Unlock()

	m.poll.Start(ctx)
}

// Snapshot returns the current panel state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Health:      m.healthSnap,
		Tx:          m.txSnap,
		PoolAddress: m.opts.PoolAddress,
		TokenName:   m.opts.TokenName,
		Polling:     m.poll.Active(),
	}
}

// Active reports whether the recurring cycle is running.
func (m *Monitor) Active() bool {
	return m.poll.Active()
}

// Close stops polling. Safe to call more than once.
func (m *Monitor) Close() {
	m.poll.Stop()
}

func (m *Monitor) tick(ctx context.Context) {
	if m.metrics != nil {
		m.metrics.PollTicks.WithLabelValues("status").Inc()
	}

	m.healthGate.Run(ctx)
	m.txGate.Run(ctx)

	m.mu.Lock()
	idle := m.now().Sub(m.lastTouch) >= m.opts.IdleTimeout
	m.mu.Unlock()

	if idle {
		m.logger.Debug().Dur("idle_timeout", m.opts.IdleTimeout).Msg("no observers, stopping status polls")
		// Stop waits for the poll loop to drain; it cannot be called from
		// inside a tick without deadlocking.
		go m.poll.Stop()
	}
}

func (m *Monitor) runHealth(ctx context.Context) {
	snap := m.health.CheckHealth(ctx)
	m.mu.Lock()
	m.healthSnap = snap
	m.mu.Unlock()
}

func (m *Monitor) runTx(ctx context.Context) {
	snap, ok := m.tx.CheckTransactions(ctx)
	if !ok {
		return
	}
	m.mu.Lock()
	m.txSnap = snap
	m.mu.Unlock()
}
