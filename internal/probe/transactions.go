package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"platform-pulse/internal/metrics"
)

// TransactionsOptions parameterise the transaction-history probe.
type TransactionsOptions struct {
	BaseURL   string
	APIKey    string
	Creator   solana.PublicKey
	Timeout   time.Duration
	UserAgent string
}

// Transactions checks whether the platform creator address has any recent
// on-chain activity via the Helius transaction-history API.
type Transactions struct {
	opts    TransactionsOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	metrics *metrics.Metrics
}

// NewTransactions builds a transaction checker.
func NewTransactions(opts TransactionsOptions, m *metrics.Metrics, logger zerolog.Logger) *Transactions {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.helius.xyz"
	}

	return &Transactions{
		opts:    opts,
		logger:  logger.With().Str("component", "tx_probe").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		metrics: m,
	}
}

// CheckTransactions issues one history lookup with limit=1. An empty
// result is a successful negative; a fetch failure degrades to the same
// Unsecured state but is logged as an error. ok is false only when no
// creator address is configured.
func (t *Transactions) CheckTransactions(ctx context.Context) (TxSnapshot, bool) {
	if t.opts.Creator.IsZero() {
		return TxSnapshot{}, false
	}

	entries, err := t.fetch(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("transaction fetch failed")
		if t.metrics != nil {
			t.metrics.FetchFailures.WithLabelValues("transactions").Inc()
		}
		return TxSnapshot{Status: TxUnsecured, LastTransaction: nil}, true
	}

	if len(entries) == 0 {
		t.logger.Debug().Msg("no transactions found for creator address")
		return TxSnapshot{Status: TxUnsecured, LastTransaction: nil}, true
	}

	last := time.Unix(entries[0].Timestamp, 0).UTC()
	return TxSnapshot{Status: TxSecured, LastTransaction: &last}, true
}

type txEntry struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

func (t *Transactions) fetch(ctx context.Context) ([]txEntry, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s&limit=1",
		t.baseURL, t.opts.Creator.String(), url.QueryEscape(t.opts.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(t.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helius api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var entries []txEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ TransactionChecker = (*Transactions)(nil)
