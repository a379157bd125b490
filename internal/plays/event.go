// Package plays consumes the settlement event stream and derives the
// short-lived toast notifications shown over the recent-plays feed.
package plays

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// BPSPerWhole is the basis-point scale of bet multiplier tables.
const BPSPerWhole = 10_000

// SettlementEvent is one completed wager from the upstream ledger stream.
// Events are immutable; the queue only reads them.
type SettlementEvent struct {
	Signature     solana.Signature
	User          solana.PublicKey
	TokenMint     solana.PublicKey
	Wager         uint64
	Bet           []uint64
	ResultIndex   int
	JackpotPayout uint64
	GameName      string
	Time          time.Time
}

var (
	errNoSignature    = errors.New("settlement event missing signature")
	errNoUser         = errors.New("settlement event missing user")
	errEmptyBet       = errors.New("settlement event has empty bet table")
	errBadResultIndex = errors.New("settlement event result index out of range")
	errZeroWager      = errors.New("settlement event has zero wager")
)

// Validate rejects events whose fields cannot feed the profit math.
// Invalid events are skipped by the queue, never fatal.
func (e SettlementEvent) Validate() error {
	if e.Signature.IsZero() {
		return errNoSignature
	}
	if e.User.IsZero() {
		return errNoUser
	}
	if len(e.Bet) == 0 {
		return errEmptyBet
	}
	if e.ResultIndex < 0 || e.ResultIndex >= len(e.Bet) {
		return errBadResultIndex
	}
	if e.Wager == 0 {
		return errZeroWager
	}
	return nil
}

// Multiplier is the winning multiplier drawn from the bet table.
func (e SettlementEvent) Multiplier() decimal.Decimal {
	return decimal.NewFromUint64(e.Bet[e.ResultIndex]).Div(decimal.NewFromInt(BPSPerWhole))
}

// Profit is payout minus wager in token base units. Negative for losses.
func (e SettlementEvent) Profit() decimal.Decimal {
	wager := decimal.NewFromUint64(e.Wager)
	payout := e.Multiplier().Mul(wager)
	return payout.Sub(wager)
}

// ScaledProfit converts profit from base units to a human-scaled amount.
func (e SettlementEvent) ScaledProfit(decimals int32) decimal.Decimal {
	return e.Profit().Shift(-decimals)
}

// ShortUser is the truncated user identifier used in display strings.
func (e SettlementEvent) ShortUser() string {
	encoded := e.User.String()
	if len(encoded) <= 5 {
		return encoded
	}
	return encoded[len(encoded)-5:]
}
