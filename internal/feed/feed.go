// Package feed retrieves token price quotes from the platform price API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Quote is one instrument's price at poll time.
type Quote struct {
	Mint   solana.PublicKey
	Symbol string
	Price  decimal.Decimal
}

// PriceFeed produces the per-poll quote list.
type PriceFeed interface {
	FetchPrices(ctx context.Context) ([]Quote, error)
}

// HTTPOptions parameterise the HTTP price feed.
type HTTPOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// HTTPFeed polls a JSON endpoint returning `[{mint, symbol, usdPrice}]`.
type HTTPFeed struct {
	opts   HTTPOptions
	logger zerolog.Logger
	client *http.Client
}

// NewHTTPFeed constructs a price feed client.
func NewHTTPFeed(opts HTTPOptions, logger zerolog.Logger) *HTTPFeed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFeed{
		opts:   opts,
		logger: logger.With().Str("component", "price_feed").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type quotePayload struct {
	Mint     string  `json:"mint"`
	Symbol   string  `json:"symbol"`
	USDPrice float64 `json:"usdPrice"`
}

// FetchPrices retrieves and normalises the current quote list. Entries
// with an unparsable mint are skipped, not fatal.
func (f *HTTPFeed) FetchPrices(ctx context.Context) ([]Quote, error) {
	if f.opts.URL == "" {
		return nil, fmt.Errorf("price feed url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var raw []quotePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(raw))
	for _, entry := range raw {
		mint, err := solana.PublicKeyFromBase58(entry.Mint)
		if err != nil {
			f.logger.Warn().Str("mint", entry.Mint).Msg("skipping quote with invalid mint")
			continue
		}
		quotes = append(quotes, Quote{
			Mint:   mint,
			Symbol: entry.Symbol,
			Price:  decimal.NewFromFloat(entry.USDPrice),
		})
	}
	return quotes, nil
}

var _ PriceFeed = (*HTTPFeed)(nil)
