package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"platform-pulse/internal/metrics"
)

const healthRequestBody = `{"jsonrpc":"2.0","id":1,"method":"getHealth"}`

// HealthOptions parameterise the RPC health probe.
type HealthOptions struct {
	RPCURL  string
	Timeout time.Duration
}

// Health probes a Solana RPC node via the getHealth JSON-RPC method.
type Health struct {
	opts    HealthOptions
	logger  zerolog.Logger
	client  *http.Client
	metrics *metrics.Metrics
}

// NewHealth builds a health checker.
func NewHealth(opts HealthOptions, m *metrics.Metrics, logger zerolog.Logger) *Health {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Health{
		opts:    opts,
		logger:  logger.With().Str("component", "health_probe").Logger(),
		client:  &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// CheckHealth issues one getHealth call. Ping is wall-clock time around
// the call, rounded to the millisecond, recorded only on success.
func (h *Health) CheckHealth(ctx context.Context) HealthSnapshot {
	start := time.Now()

	snap, err := h.check(ctx)
	if err != nil {
		h.logger.Debug().Err(err).Msg("health probe failed")
		if h.metrics != nil {
			h.metrics.FetchFailures.WithLabelValues("health").Inc()
			h.metrics.RPCHealthy.Set(0)
		}
		return HealthSnapshot{Healthy: false, PingMillis: nil}
	}

	if snap.Healthy {
		ping := time.Since(start).Round(time.Millisecond).Milliseconds()
		snap.PingMillis = &ping
	}

	if h.metrics != nil {
		if snap.Healthy {
			h.metrics.RPCHealthy.Set(1)
			h.metrics.RPCPingMillis.Set(float64(*snap.PingMillis))
		} else {
			h.metrics.RPCHealthy.Set(0)
		}
	}
	return snap
}

func (h *Health) check(ctx context.Context) (HealthSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opts.RPCURL, bytes.NewReader([]byte(healthRequestBody)))
	if err != nil {
		return HealthSnapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return HealthSnapshot{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return HealthSnapshot{}, err
	}

	var body struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return HealthSnapshot{}, err
	}

	return HealthSnapshot{Healthy: body.Result == "ok"}, nil
}

var _ HealthChecker = (*Health)(nil)
