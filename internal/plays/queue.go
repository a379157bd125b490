package plays

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"platform-pulse/internal/metrics"
)

// Notification is one queued toast. Owned by the queue; callers only ever
// see copies.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Win       bool      `json:"isWin"`
	CreatedAt time.Time `json:"createdAt"`
}

// QueueOptions tune display behaviour.
type QueueOptions struct {
	// DisplayDuration is how long an entry stays visible after insert.
	DisplayDuration time.Duration
	// MaxEntries caps the queue; the oldest entry is dropped silently
	// when a burst outruns the display duration.
	MaxEntries int
	// TokenDecimals scales base-unit amounts for display.
	TokenDecimals int32
	// TokenSymbol names the display unit.
	TokenSymbol string
}

// Queue turns settlement events into ordered, self-expiring notifications.
// Inserts are idempotent per event signature.
type Queue struct {
	opts   QueueOptions
	logger zerolog.Logger

	mu      sync.Mutex
	entries []Notification
	queued  map[string]struct{}

	metrics *metrics.Metrics
	now     func() time.Time
}

// NewQueue constructs an empty queue.
func NewQueue(opts QueueOptions, m *metrics.Metrics, logger zerolog.Logger) *Queue {
	if opts.DisplayDuration <= 0 {
		opts.DisplayDuration = 4 * time.Second
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 64
	}
	if opts.TokenSymbol == "" {
		opts.TokenSymbol = "SOL"
	}
	return &Queue{
		opts:    opts,
		logger:  logger.With().Str("component", "toast_queue").Logger(),
		queued:  make(map[string]struct{}),
		metrics: m,
		now:     time.Now,
	}
}

// Push derives a notification from event and appends it. Invalid events
// and duplicate signatures are skipped. Returns true when an entry was
// appended.
func (q *Queue) Push(event SettlementEvent) bool {
	if err := event.Validate(); err != nil {
		q.logger.Warn().Err(err).Str("signature", event.Signature.String()).Msg("skipping malformed settlement event")
		return false
	}

	message, win := FormatMessage(event, q.opts.TokenDecimals, q.opts.TokenSymbol)
	id := event.Signature.String()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked()

	if _, dup := q.queued[id]; dup {
		if q.metrics != nil {
			q.metrics.NotificationsDup.Inc()
		}
		return false
	}

	if len(q.entries) >= q.opts.MaxEntries {
		oldest := q.entries[0]
		q.entries = q.entries[1:]
		delete(q.queued, oldest.ID)
		if q.metrics != nil {
			q.metrics.DroppedOldest.Inc()
		}
	}

	q.entries = append(q.entries, Notification{
		ID:        id,
		Message:   message,
		Win:       win,
		CreatedAt: q.now(),
	})
	q.queued[id] = struct{}{}

	if q.metrics != nil {
		q.metrics.Notifications.Inc()
	}
	return true
}

// Snapshot returns the currently visible notifications in insert order.
func (q *Queue) Snapshot() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked()
	out := make([]Notification, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len reports the number of visible entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	return len(q.entries)
}

// RunJanitor sweeps expired entries every second so memory is reclaimed
// even when nobody reads snapshots. Returns when ctx is cancelled.
func (q *Queue) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.mu.Lock()
			q.pruneLocked()
			q.mu.Unlock()
		}
	}
}

// pruneLocked drops entries past their display duration. Entries are in
// insert order, so expiry is a prefix cut.
func (q *Queue) pruneLocked() {
	now := q.now()
	cut := 0
	for cut < len(q.entries) && now.Sub(q.entries[cut].CreatedAt) >= q.opts.DisplayDuration {
		delete(q.queued, q.entries[cut].ID)
		cut++
	}
	if cut > 0 {
		q.entries = q.entries[cut:]
	}
}
