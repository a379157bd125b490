package plays

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
)

// Stream delivers settlement events. Implementations own the channel and
// close it when the stream ends.
type Stream interface {
	Events() <-chan SettlementEvent
}

// HTTPStreamOptions parameterise the polling stream adapter.
type HTTPStreamOptions struct {
	URL          string
	PollInterval time.Duration
	Timeout      time.Duration
	UserAgent    string
}

// HTTPStream polls the platform's recent-settlements endpoint and replays
// new events, newest last, onto a channel. The endpoint returns entries
// newest-first; polling stops emitting once it reaches the last signature
// seen on the previous poll. Downstream consumers dedupe by signature, so
// the occasional replay across restarts is harmless.
type HTTPStream struct {
	opts   HTTPStreamOptions
	logger zerolog.Logger
	client *http.Client
	out    chan SettlementEvent

	lastSeen solana.Signature
}

// NewHTTPStream constructs the adapter. Run must be called to start
// polling.
func NewHTTPStream(opts HTTPStreamOptions, logger zerolog.Logger) *HTTPStream {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &HTTPStream{
		opts:   opts,
		logger: logger.With().Str("component", "settlement_stream").Logger(),
		client: &http.Client{Timeout: timeout},
		out:    make(chan SettlementEvent, 64),
	}
}

// Events returns the delivery channel. Closed when Run returns.
func (s *HTTPStream) Events() <-chan SettlementEvent {
	return s.out
}

// Run polls until ctx is cancelled. Fetch failures are logged and retried
// on the next interval.
func (s *HTTPStream) Run(ctx context.Context) {
	defer close(s.out)

	s.poll(ctx)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *HTTPStream) poll(ctx context.Context) {
	events, err := s.fetch(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("settlement poll failed")
		return
	}
	if len(events) == 0 {
		return
	}

	fresh := events
	for i, ev := range events {
		if ev.Signature == s.lastSeen {
			fresh = events[:i]
			break
		}
	}
	s.lastSeen = events[0].Signature

	// Replay oldest-first so queue order matches settlement order.
	for i := len(fresh) - 1; i >= 0; i-- {
		select {
		case s.out <- fresh[i]:
		case <-ctx.Done():
			return
		default:
			s.logger.Warn().Str("signature", fresh[i].Signature.String()).Msg("event channel full, dropping settlement")
		}
	}
}

type settlementPayload struct {
	Signature           string   `json:"signature"`
	User                string   `json:"user"`
	TokenMint           string   `json:"tokenMint"`
	Wager               uint64   `json:"wager"`
	Bet                 []uint64 `json:"bet"`
	ResultIndex         int      `json:"resultIndex"`
	JackpotPayoutToUser uint64   `json:"jackpotPayoutToUser"`
	GameName            string   `json:"gameName"`
	Time                int64    `json:"time"`
}

func (s *HTTPStream) fetch(ctx context.Context) ([]SettlementEvent, error) {
	if s.opts.URL == "" {
		return nil, fmt.Errorf("settlement stream url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("settlement api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var raw []settlementPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	events := make([]SettlementEvent, 0, len(raw))
	for _, entry := range raw {
		ev, err := decodePayload(entry)
		if err != nil {
			s.logger.Warn().Err(err).Str("signature", entry.Signature).Msg("skipping undecodable settlement")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodePayload(p settlementPayload) (SettlementEvent, error) {
	sig, err := solana.SignatureFromBase58(p.Signature)
	if err != nil {
		return SettlementEvent{}, fmt.Errorf("parse signature: %w", err)
	}
	user, err := solana.PublicKeyFromBase58(p.User)
	if err != nil {
		return SettlementEvent{}, fmt.Errorf("parse user: %w", err)
	}

	var mint solana.PublicKey
	if p.TokenMint != "" {
		mint, err = solana.PublicKeyFromBase58(p.TokenMint)
		if err != nil {
			return SettlementEvent{}, fmt.Errorf("parse token mint: %w", err)
		}
	}

	return SettlementEvent{
		Signature:     sig,
		User:          user,
		TokenMint:     mint,
		Wager:         p.Wager,
		Bet:           p.Bet,
		ResultIndex:   p.ResultIndex,
		JackpotPayout: p.JackpotPayoutToUser,
		GameName:      p.GameName,
		Time:          time.UnixMilli(p.Time).UTC(),
	}, nil
}

var _ Stream = (*HTTPStream)(nil)
