// Package ticker tracks last-known and previous prices per instrument so
// the ticker tape can render change direction and magnitude.
package ticker

import (
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"platform-pulse/internal/feed"
	"platform-pulse/internal/metrics"
)

var dec100 = decimal.NewFromInt(100)

// Options tune change detection and eviction.
type Options struct {
	// RecentWindow bounds how long after a price change the entry is
	// flagged as recently changed.
	RecentWindow time.Duration
	// SignificantPct is the absolute percent change above which an entry
	// is flagged significant.
	SignificantPct float64
	// EvictAfterPolls drops instruments unseen for this many consecutive
	// feed polls.
	EvictAfterPolls int
}

type record struct {
	symbol      string
	current     decimal.Decimal
	previous    decimal.Decimal
	changedAt   time.Time
	unseenPolls int
}

// Transition is one actual price change produced by a poll, suitable for
// persistence.
type Transition struct {
	Mint          solana.PublicKey
	Symbol        string
	Price         decimal.Decimal
	PreviousPrice decimal.Decimal
	PercentChange decimal.Decimal
	ChangedAt     time.Time
}

// Entry is the derived per-instrument view served to the UI.
type Entry struct {
	Mint          solana.PublicKey `json:"mint"`
	Symbol        string           `json:"symbol"`
	Price         decimal.Decimal  `json:"price"`
	PercentChange decimal.Decimal  `json:"percentChange"`
	Increasing    bool             `json:"isIncreasing"`
	RecentChange  bool             `json:"isRecentChange"`
	Significant   bool             `json:"isSignificant"`
	ChangedAt     time.Time        `json:"changedAt"`
}

// Tracker maintains the price-history map. changedAt reflects the last
// actual price change, not the last sample, so the recent-change window
// is not reset by repeated identical quotes.
type Tracker struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	records map[solana.PublicKey]*record

	metrics *metrics.Metrics
	now     func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker(opts Options, m *metrics.Metrics, logger zerolog.Logger) *Tracker {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 5 * time.Minute
	}
	if opts.SignificantPct <= 0 {
		opts.SignificantPct = 2
	}
	if opts.EvictAfterPolls <= 0 {
		opts.EvictAfterPolls = 30
	}
	return &Tracker{
		opts:    opts,
		logger:  logger.With().Str("component", "ticker").Logger(),
		records: make(map[solana.PublicKey]*record),
		metrics: m,
		now:     time.Now,
	}
}

// Update records one price sample. A new instrument stores the price as
// both current and previous; a changed price shifts current into previous;
// an unchanged price writes nothing.
func (t *Tracker) Update(mint solana.PublicKey, symbol string, price decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.update(mint, symbol, price)
}

// update returns the transition when the sample changed an existing
// record's price. First observations store prev == cur and report no
// transition.
func (t *Tracker) update(mint solana.PublicKey, symbol string, price decimal.Decimal) (Transition, bool) {
	rec, exists := t.records[mint]
	if !exists {
		t.records[mint] = &record{
			symbol:    symbol,
			current:   price,
			previous:  price,
			changedAt: t.now(),
		}
		return Transition{}, false
	}

	rec.unseenPolls = 0
	if symbol != "" {
		rec.symbol = symbol
	}
	if rec.current.Equal(price) {
		return Transition{}, false
	}

	rec.previous = rec.current
	rec.current = price
	rec.changedAt = t.now()

	return Transition{
		Mint:          mint,
		Symbol:        rec.symbol,
		Price:         rec.current,
		PreviousPrice: rec.previous,
		PercentChange: percentChange(rec.current, rec.previous),
		ChangedAt:     rec.changedAt,
	}, true
}

// ObservePoll applies one full feed poll: updates every quoted instrument
// and ages out instruments the feed no longer mentions. The returned
// transitions cover only actual price changes.
func (t *Tracker) ObservePoll(quotes []feed.Quote) []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	var transitions []Transition
	seen := make(map[solana.PublicKey]struct{}, len(quotes))
	for _, q := range quotes {
		seen[q.Mint] = struct{}{}
		if tr, changed := t.update(q.Mint, q.Symbol, q.Price); changed {
			transitions = append(transitions, tr)
		}
	}

	for mint, rec := range t.records {
		if _, ok := seen[mint]; ok {
			continue
		}
		rec.unseenPolls++
		if rec.unseenPolls >= t.opts.EvictAfterPolls {
			t.logger.Debug().Str("mint", mint.String()).Msg("evicting instrument unseen by feed")
			delete(t.records, mint)
		}
	}

	if t.metrics != nil {
		t.metrics.TrackedTokens.Set(float64(len(t.records)))
	}
	return transitions
}

// Entries returns the derived view for every tracked instrument, ordered
// by symbol then mint for stable rendering.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.records))
	for mint, rec := range t.records {
		change := percentChange(rec.current, rec.previous)
		abs := change.Abs().InexactFloat64()
		entries = append(entries, Entry{
			Mint:          mint,
			Symbol:        rec.symbol,
			Price:         rec.current,
			PercentChange: change,
			Increasing:    change.IsPositive(),
			RecentChange:  now.Sub(rec.changedAt) < t.opts.RecentWindow,
			Significant:   abs > t.opts.SignificantPct,
			ChangedAt:     rec.changedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Symbol != entries[j].Symbol {
			return entries[i].Symbol < entries[j].Symbol
		}
		return entries[i].Mint.String() < entries[j].Mint.String()
	})
	return entries
}

// Len reports the number of tracked instruments.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(dec100)
}
