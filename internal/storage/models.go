package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceChange is one persisted ticker price transition. Only actual
// changes are written; unchanged samples leave no row.
type PriceChange struct {
	ID            int64
	Mint          string
	Symbol        string
	Price         decimal.Decimal
	PreviousPrice decimal.Decimal
	PercentChange decimal.Decimal
	ChangedAt     time.Time
	CreatedAt     time.Time
}

// SettledPlay is one persisted settlement event for the recent-plays feed.
type SettledPlay struct {
	Signature     string
	UserAddress   string
	TokenMint     string
	GameName      string
	Wager         decimal.Decimal
	Multiplier    decimal.Decimal
	Profit        decimal.Decimal
	JackpotPayout decimal.Decimal
	PlayedAt      time.Time
	CreatedAt     time.Time
}
